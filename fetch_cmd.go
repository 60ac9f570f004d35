package main

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newFetchCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch URL [PATH]",
		Short: "Download a file unless it already exists locally",
		Long: `Downloads URL to PATH when PATH does not exist yet, or always with --force.
Without PATH the file lands in DATA_DIR under the URL's base name.

Examples:
  pronto-utils fetch https://example.com/2015_trip_data.csv
  pronto-utils fetch https://example.com/2015_trip_data.csv data/trips.csv --force`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, a, args, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "download even if the file exists")

	return cmd
}

func runFetch(cmd *cobra.Command, a *app, args []string, force bool) error {
	rawURL := args[0]

	var dest string
	if len(args) == 2 {
		dest = args[1]
	} else {
		name, err := baseName(rawURL)
		if err != nil {
			return err
		}
		dest = filepath.Join(a.cfg.DataDir, name)
	}

	result, err := a.fetcher.EnsureDownloaded(cmd.Context(), rawURL, dest, force)
	if err != nil {
		return err
	}

	if result.Downloaded {
		fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s to %s (%d bytes)\n", rawURL, dest, result.Bytes)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "File %s already exists; not downloading\n", dest)
	}
	return nil
}

// baseName derives a local file name from the URL path
func baseName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("cannot derive a file name from %q, pass PATH explicitly", rawURL)
	}
	return name, nil
}
