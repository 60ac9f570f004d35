// Package scheduler refreshes a fixed list of remote files on a daily schedule.
// Every refresh forces a download of each source and records the outcome in a RefreshStore.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/giygas/pronto-utils/fetch"
	"github.com/giygas/pronto-utils/health"
	"github.com/giygas/pronto-utils/interfaces"
	"github.com/giygas/pronto-utils/logging"
	"github.com/giygas/pronto-utils/metrics"
	"github.com/go-co-op/gocron"
)

// Compile-time checks
var (
	_ interfaces.Scheduler = (*Scheduler)(nil)
	_ interfaces.Fetcher   = (*fetch.Fetcher)(nil)
)

const monitorPeriod = 1 * time.Hour

// Scheduler handles scheduled refreshes and staleness monitoring using dependency injection
type Scheduler struct {
	store     interfaces.RefreshStore
	checker   *health.Checker
	fetcher   interfaces.Fetcher
	sources   []fetch.Source
	at        string
	scheduler *gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	monitored bool
}

// NewScheduler creates a scheduler refreshing sources at the given "HH:MM;HH:MM" times
func NewScheduler(store interfaces.RefreshStore, fetcher interfaces.Fetcher, sources []fetch.Source, at string) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:     store,
		checker:   health.NewChecker(store),
		fetcher:   fetcher,
		sources:   sources,
		at:        at,
		scheduler: gocron.NewScheduler(time.Local),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start runs an initial refresh, then schedules the following ones and the staleness monitor
func (s *Scheduler) Start() error {
	if len(s.sources) == 0 {
		return fmt.Errorf("no sources to refresh")
	}

	if err := s.refresh(); err != nil {
		logging.Error("Failed to perform initial refresh", "error", err)
		return fmt.Errorf("initial refresh failed: %w", err)
	}

	_, err := s.scheduler.Every(1).Days().At(s.at).Do(func() {
		if err := s.refresh(); err != nil {
			logging.Error("Failed to refresh sources", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule refreshes", "error", err)
		return fmt.Errorf("failed to schedule refreshes: %w", err)
	}

	s.scheduler.StartAsync()
	s.startStalenessMonitoring()

	return nil
}

// Stop stops scheduled refreshes and cancels a refresh in progress
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
	if s.monitored {
		<-s.done
	}
}

// NextRun returns the time of the next scheduled refresh, zero before Start
func (s *Scheduler) NextRun() time.Time {
	_, next := s.scheduler.NextRun()
	return next
}

// refresh force-downloads every source; a refresh already in progress makes it a no-op
func (s *Scheduler) refresh() error {
	if !s.store.BeginUpdate() {
		logging.Info("Refresh already in progress, skipping...")
		return nil
	}
	defer s.store.EndUpdate()

	logging.Info(fmt.Sprintf("Starting refresh at: %s", time.Now().Format(time.RFC3339)), "sources", len(s.sources))
	start := time.Now()

	results, err := s.fetcher.DownloadAll(s.ctx, s.sources, true)
	s.store.RecordRefresh(results, err)
	if err != nil {
		return fmt.Errorf("failed to refresh sources: %w", err)
	}

	var total int64
	for _, r := range results {
		total += r.Bytes
	}
	metrics.RefreshLastSuccess.SetToCurrentTime()

	logging.Info("Refresh completed", "duration", time.Since(start).String(), "files", len(results), "bytes", total)
	return nil
}

// startStalenessMonitoring warns when no refresh has succeeded for over a day
func (s *Scheduler) startStalenessMonitoring() {
	s.monitored = true
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(monitorPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.checkStaleness(time.Now())
			}
		}
	}()
}

func (s *Scheduler) checkStaleness(now time.Time) bool {
	report := s.checker.Check(now)
	if report.Stale() {
		logging.Warn("Files haven't been refreshed in over 25 hours",
			"status", report.Status,
			"last_refreshed", report.LastRefreshed,
			"last_error", report.LastError,
		)
		return true
	}
	return false
}
