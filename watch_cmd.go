package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/pronto-utils/data"
	"github.com/giygas/pronto-utils/fetch"
	"github.com/giygas/pronto-utils/health"
	"github.com/giygas/pronto-utils/logging"
	"github.com/giygas/pronto-utils/scheduler"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch URL=PATH [URL=PATH...]",
		Short: "Re-download files every day at the REFRESH_AT times",
		Long: `Downloads every source now, then again at each REFRESH_AT time
(default 06:00;18:00) until interrupted.

Example:
  pronto-utils watch https://example.com/trip.csv=data/trip.csv https://example.com/station.csv=data/station.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, a, args)
		},
	}
}

func runWatch(cmd *cobra.Command, a *app, args []string) error {
	sources := make([]fetch.Source, 0, len(args))
	for _, arg := range args {
		src, err := fetch.ParseSource(arg)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := data.NewContainer()
	s := scheduler.NewScheduler(store, a.fetcher, sources, a.cfg.RefreshSchedule())
	if err := s.Start(); err != nil {
		s.Stop()
		return err
	}

	report := health.NewChecker(store).Check(time.Now())
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %d sources (%s), next refresh at %s\n",
		report.Files, report.Status, s.NextRun().Format("2006-01-02 15:04"))

	<-ctx.Done()
	logging.Info("Shutting down watcher...")
	s.Stop()
	logging.Info("Watcher stopped")
	return nil
}
