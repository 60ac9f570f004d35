// Package interfaces defines the contracts shared between pronto-utils packages
// so the scheduler can be tested without network access.
package interfaces

import (
	"context"
	"time"

	"github.com/giygas/pronto-utils/fetch"
)

// Fetcher retrieves remote files into local paths
type Fetcher interface {
	// EnsureDownloaded downloads url to path unless path exists and force is false
	EnsureDownloaded(ctx context.Context, url, path string, force bool) (fetch.Result, error)

	// DownloadAll fetches every source concurrently
	DownloadAll(ctx context.Context, sources []fetch.Source, force bool) ([]fetch.Result, error)
}

// RefreshStore keeps the outcome of scheduled refreshes.
// BeginUpdate/EndUpdate guard against overlapping refreshes.
type RefreshStore interface {
	GetLastRefreshed() time.Time
	GetLastAttempt() time.Time
	GetLastResults() []fetch.Result
	GetLastError() error
	IsUpdating() bool

	RecordRefresh(results []fetch.Result, err error)
	BeginUpdate() bool
	EndUpdate()
}

// Scheduler defines the contract for job scheduling
type Scheduler interface {
	Start() error
	Stop()
}
