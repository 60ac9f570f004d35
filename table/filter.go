package table

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// RowsInYear returns the rows of f whose value in column falls in the given calendar year.
// The year is read in each value's own offset, and rows keep their original order.
// A missing column yields ErrColumnNotFound and a column that is not date typed yields
// ErrNotDateColumn; in both cases the returned Frame is empty. f itself is never modified.
func RowsInYear(f Frame, column string, year int) (Frame, error) {
	if err := f.requireDate(column); err != nil {
		return Frame{}, err
	}

	filtered := f.df.Filter(dataframe.F{
		Colname:    column,
		Comparator: series.CompFunc,
		Comparando: inYear(year),
	})
	if filtered.Err != nil {
		return Frame{}, fmt.Errorf("failed to filter %q by year %d: %w", column, year, filtered.Err)
	}

	return Frame{df: filtered, types: copyTypes(f.types)}, nil
}

// inYear matches date cells of the given year; missing or unreadable cells never match
func inYear(year int) func(series.Element) bool {
	return func(el series.Element) bool {
		if el.IsNA() {
			return false
		}
		t, err := time.Parse(dateLayout, el.String())
		return err == nil && t.Year() == year
	}
}
