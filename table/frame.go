// Package table holds tabular datasets with declared column types and filters them by date.
//
// A Frame wraps a gota dataframe. gota has no temporal series type, so date columns are
// stored as RFC3339 strings and the Frame remembers which columns are dates.
package table

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrNotDateColumn  = errors.New("column is not date typed")
)

// ColumnType is the declared type of a column
type ColumnType string

const (
	TypeString ColumnType = "string"
	TypeInt    ColumnType = "int"
	TypeFloat  ColumnType = "float"
	TypeBool   ColumnType = "bool"
	TypeDate   ColumnType = "date"
)

// naValue is how gota marks a missing string element
const naValue = "NaN"

// dateLayout is the storage format of date cells
const dateLayout = time.RFC3339Nano

// Column is a named, typed column used to build a Frame
type Column struct {
	name   string
	typ    ColumnType
	values series.Series
}

func StringColumn(name string, values []string) Column {
	return Column{name: name, typ: TypeString, values: series.New(values, series.String, name)}
}

func IntColumn(name string, values []int) Column {
	return Column{name: name, typ: TypeInt, values: series.New(values, series.Int, name)}
}

func FloatColumn(name string, values []float64) Column {
	return Column{name: name, typ: TypeFloat, values: series.New(values, series.Float, name)}
}

func BoolColumn(name string, values []bool) Column {
	return Column{name: name, typ: TypeBool, values: series.New(values, series.Bool, name)}
}

// DateColumn builds a date column. The zero time is stored as a missing value.
func DateColumn(name string, values []time.Time) Column {
	cells := make([]string, len(values))
	for i, t := range values {
		cells[i] = formatDate(t)
	}
	return Column{name: name, typ: TypeDate, values: series.New(cells, series.String, name)}
}

// Frame is an immutable table. Operations return new Frames and never modify their input.
type Frame struct {
	df    dataframe.DataFrame
	types map[string]ColumnType
}

// NewFrame builds a Frame from columns of equal length with unique, non-empty names
func NewFrame(cols ...Column) (Frame, error) {
	types := make(map[string]ColumnType, len(cols))
	list := make([]series.Series, 0, len(cols))

	for _, col := range cols {
		if col.name == "" {
			return Frame{}, fmt.Errorf("column name cannot be empty")
		}
		if _, dup := types[col.name]; dup {
			return Frame{}, fmt.Errorf("duplicate column %q", col.name)
		}
		if col.values.Err != nil {
			return Frame{}, fmt.Errorf("invalid column %q: %w", col.name, col.values.Err)
		}
		types[col.name] = col.typ
		list = append(list, col.values)
	}

	df := dataframe.New(list...)
	if df.Err != nil {
		return Frame{}, fmt.Errorf("failed to build frame: %w", df.Err)
	}

	return Frame{df: df, types: types}, nil
}

// Nrow returns the number of rows
func (f Frame) Nrow() int {
	return f.df.Nrow()
}

// Names returns the column names in order
func (f Frame) Names() []string {
	return f.df.Names()
}

// Type returns the declared type of a column
func (f Frame) Type(column string) (ColumnType, bool) {
	t, ok := f.types[column]
	return t, ok
}

// Records returns the header followed by every row, formatted as strings
func (f Frame) Records() [][]string {
	return f.df.Records()
}

// Strings returns the cells of a column formatted as strings
func (f Frame) Strings(column string) ([]string, error) {
	if _, ok := f.types[column]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	return f.df.Col(column).Records(), nil
}

// Dates returns the values of a date column. Missing cells are the zero time.
func (f Frame) Dates(column string) ([]time.Time, error) {
	if err := f.requireDate(column); err != nil {
		return nil, err
	}

	col := f.df.Col(column)
	dates := make([]time.Time, col.Len())
	for i := range dates {
		el := col.Elem(i)
		if el.IsNA() {
			continue
		}
		t, err := time.Parse(dateLayout, el.String())
		if err != nil {
			return nil, fmt.Errorf("corrupt date in column %q row %d: %w", column, i+1, err)
		}
		dates[i] = t
	}
	return dates, nil
}

// WriteCSV writes the frame with a header line
func (f Frame) WriteCSV(w io.Writer) error {
	if err := f.df.WriteCSV(w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func (f Frame) requireDate(column string) error {
	typ, ok := f.types[column]
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	if typ != TypeDate {
		return fmt.Errorf("%w: %q is %s", ErrNotDateColumn, column, typ)
	}
	return nil
}

func copyTypes(types map[string]ColumnType) map[string]ColumnType {
	cp := make(map[string]ColumnType, len(types))
	for k, v := range types {
		cp[k] = v
	}
	return cp
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return naValue
	}
	return t.Format(dateLayout)
}

func columnTypeOf(t series.Type) ColumnType {
	switch t {
	case series.Int:
		return TypeInt
	case series.Float:
		return TypeFloat
	case series.Bool:
		return TypeBool
	default:
		return TypeString
	}
}

func seriesTypeOf(t ColumnType) series.Type {
	switch t {
	case TypeInt:
		return series.Int
	case TypeFloat:
		return series.Float
	case TypeBool:
		return series.Bool
	default:
		return series.String
	}
}
