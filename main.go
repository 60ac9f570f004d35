package main

import (
	"fmt"
	"os"

	"github.com/giygas/pronto-utils/config"
	"github.com/giygas/pronto-utils/fetch"
	"github.com/giygas/pronto-utils/logging"
	"github.com/giygas/pronto-utils/metrics"
	"github.com/spf13/cobra"
)

var version = "dev" // Set by build flags: -ldflags="-X main.version=1.0.0"

// app carries what every command needs once configuration is loaded
type app struct {
	cfg     *config.Config
	fetcher *fetch.Fetcher
	verbose bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command line and returns the process exit code.
// Metrics are written even when the command fails.
func run(args []string) int {
	a := &app{}
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	if teardownErr := a.teardown(); teardownErr != nil && err == nil {
		err = teardownErr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pronto-utils",
		Short: "Download Pronto cycle share data and slice it by year",
		Long: `pronto-utils fetches remote data files once and keeps them locally,
then filters their rows by the calendar year of a date column.

Configuration comes from the environment or a .env file
(ENV, LOG_LEVEL, LOG_FILE, DATA_DIR, DOWNLOAD_TIMEOUT, DOWNLOAD_RATE_LIMIT,
USER_AGENT, REFRESH_AT, METRICS_FILE).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newFetchCmd(a))
	rootCmd.AddCommand(newFilterCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))

	return rootCmd
}

func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	if err := logging.InitLogger(logging.Options{
		Env:      cfg.Env,
		Level:    cfg.LogLevel,
		Verbose:  a.verbose,
		FilePath: cfg.LogFile,
		Console:  os.Stderr,
	}); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	a.fetcher = fetch.New(
		fetch.WithTimeout(cfg.DownloadTimeout),
		fetch.WithRateLimit(cfg.DownloadRateLimit),
		fetch.WithUserAgent(cfg.UserAgent),
	)
	return nil
}

// teardown writes METRICS_FILE when configured and releases the log file
func (a *app) teardown() error {
	defer func() {
		if err := logging.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
	}()

	if a.cfg != nil && a.cfg.MetricsFile != "" {
		return metrics.WriteTextfile(a.cfg.MetricsFile)
	}
	return nil
}
