// Package data provides thread-safe storage of the refresh state with atomic operations,
// so readers never observe a half-recorded refresh.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/pronto-utils/fetch"
	"github.com/giygas/pronto-utils/interfaces"
	"github.com/giygas/pronto-utils/logging"
)

// Compile-time check to ensure Container implements RefreshStore
var _ interfaces.RefreshStore = (*Container)(nil)

// errorBox lets atomic.Value hold a nil error
type errorBox struct {
	err error
}

// Container holds the last refresh outcome
type Container struct {
	lastResults   atomic.Value // []fetch.Result
	lastError     atomic.Value // errorBox
	lastRefreshed atomic.Value // time.Time, last fully successful refresh
	lastAttempt   atomic.Value // time.Time
	updating      atomic.Bool
}

// NewContainer creates a Container with empty state
func NewContainer() *Container {
	c := &Container{}
	c.lastResults.Store(make([]fetch.Result, 0))
	c.lastError.Store(errorBox{})
	c.lastRefreshed.Store(time.Time{})
	c.lastAttempt.Store(time.Time{})
	return c
}

// GetLastResults returns the per-source results of the last refresh
func (c *Container) GetLastResults() []fetch.Result {
	if v := c.lastResults.Load(); v != nil {
		if results, ok := v.([]fetch.Result); ok {
			return results
		}
	}

	logging.Warn("Refresh results are empty or invalid")
	return []fetch.Result{}
}

// GetLastError returns the error of the last refresh, nil when it succeeded
func (c *Container) GetLastError() error {
	if v := c.lastError.Load(); v != nil {
		if box, ok := v.(errorBox); ok {
			return box.err
		}
	}
	return nil
}

// GetLastRefreshed returns the time of the last fully successful refresh
func (c *Container) GetLastRefreshed() time.Time {
	if v := c.lastRefreshed.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}

	logging.Warn("Could not get the last refreshed value")
	return time.Time{}
}

// GetLastAttempt returns the time of the last refresh, successful or not
func (c *Container) GetLastAttempt() time.Time {
	if v := c.lastAttempt.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

// IsUpdating returns true if a refresh is in progress
func (c *Container) IsUpdating() bool {
	return c.updating.Load()
}

// RecordRefresh stores the outcome of a refresh. The refreshed time only moves on success.
func (c *Container) RecordRefresh(results []fetch.Result, err error) {
	now := time.Now()

	c.lastResults.Store(results)
	c.lastError.Store(errorBox{err: err})
	c.lastAttempt.Store(now)
	if err == nil {
		c.lastRefreshed.Store(now)
	}
}

// BeginUpdate marks the start of a refresh.
// Returns true if the refresh can proceed, false if another one is in progress
func (c *Container) BeginUpdate() bool {
	return c.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a refresh
func (c *Container) EndUpdate() {
	c.updating.Store(false)
}
