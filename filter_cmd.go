package main

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/giygas/pronto-utils/logging"
	"github.com/giygas/pronto-utils/table"
	"github.com/spf13/cobra"
)

type filterOptions struct {
	column    string
	year      int
	delimiter string
	out       string
}

func newFilterCmd(a *app) *cobra.Command {
	opts := &filterOptions{}

	cmd := &cobra.Command{
		Use:   "filter FILE",
		Short: "Keep the rows whose date column falls in a given year",
		Long: `Loads a delimited file, parses --column as dates and writes the rows
dated in --year as CSV.

Examples:
  pronto-utils filter data/2015_trip_data.csv --column starttime --year 2015
  pronto-utils filter trips.tsv --column starttime --year 2015 --delimiter tab --out trips_2015.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.column, "column", "c", "", "date column to filter on (required)")
	cmd.Flags().IntVarP(&opts.year, "year", "y", 0, "calendar year to keep (required)")
	cmd.Flags().StringVarP(&opts.delimiter, "delimiter", "d", "", "field delimiter: a single character or 'tab' (default: detect)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write to this file instead of stdout")
	_ = cmd.MarkFlagRequired("column")
	_ = cmd.MarkFlagRequired("year")

	return cmd
}

func runFilter(cmd *cobra.Command, path string, opts *filterOptions) error {
	delimiter, err := parseDelimiter(opts.delimiter)
	if err != nil {
		return err
	}

	frame, err := table.ReadFile(path, table.ReadOptions{
		Delimiter:  delimiter,
		ParseDates: []string{opts.column},
	})
	if err != nil {
		return err
	}

	rows, err := table.RowsInYear(frame, opts.column, opts.year)
	if err != nil {
		return err
	}
	logging.Info("Rows selected", "file", path, "column", opts.column, "year", opts.year,
		"matched", rows.Nrow(), "total", frame.Nrow())

	var w io.Writer = cmd.OutOrStdout()
	if opts.out != "" {
		file, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.out, err)
		}
		defer func() {
			if err := file.Close(); err != nil {
				logging.Warn("Failed to close output file", "path", opts.out, "error", err)
			}
		}()
		w = file
	}

	return rows.WriteCSV(w)
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character or 'tab', got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
