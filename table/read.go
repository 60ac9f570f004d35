package table

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/giygas/pronto-utils/logging"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/charmap"
)

// DefaultDateLayouts are tried in order when a ParseDates column has no explicit layouts.
// Month-first forms match the Pronto trip exports.
var DefaultDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// ReadOptions controls how delimited text is loaded into a Frame
type ReadOptions struct {
	// Delimiter between fields; 0 detects one of ',', ';' or '\t' from the header line.
	Delimiter rune
	// ParseDates lists the columns to load as dates.
	ParseDates []string
	// DateLayouts overrides DefaultDateLayouts.
	DateLayouts []string
	// Types forces column types; unlisted columns are detected.
	Types map[string]ColumnType
}

// ReadFile loads a delimited text file with a header line
func ReadFile(path string, opts ReadOptions) (Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("Failed to close table file", "path", path, "error", err)
		}
	}()

	f, err := ReadCSV(file, opts)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return f, nil
}

// ReadCSV loads delimited text with a header line. Input that is not valid UTF-8 is decoded as ISO-8859-1.
func ReadCSV(r io.Reader, opts ReadOptions) (Frame, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read input: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Frame{}, fmt.Errorf("input is empty")
	}

	// Some exports are in iso-8859-1 and some in utf8
	if !utf8.Valid(raw) {
		raw, err = charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return Frame{}, fmt.Errorf("failed to decode ISO-8859-1 input: %w", err)
		}
	}

	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter = detectDelimiter(raw)
	}

	declared := make(map[string]ColumnType, len(opts.Types)+len(opts.ParseDates))
	for name, t := range opts.Types {
		declared[name] = t
	}
	for _, name := range opts.ParseDates {
		declared[name] = TypeDate
	}

	gotaTypes := make(map[string]series.Type, len(declared))
	for name, t := range declared {
		gotaTypes[name] = seriesTypeOf(t)
	}

	df := dataframe.ReadCSV(bytes.NewReader(raw),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.WithDelimiter(delimiter),
		dataframe.WithTypes(gotaTypes),
	)
	if df.Err != nil {
		return Frame{}, fmt.Errorf("failed to parse csv: %w", df.Err)
	}

	names := df.Names()
	for name, t := range declared {
		if t == TypeDate && !contains(names, name) {
			return Frame{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
	}

	layouts := opts.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	types := make(map[string]ColumnType, len(names))
	for i, t := range df.Types() {
		types[names[i]] = columnTypeOf(t)
	}

	for name, t := range declared {
		if t != TypeDate {
			continue
		}
		normalized, err := normalizeDates(df.Col(name), layouts)
		if err != nil {
			return Frame{}, err
		}
		df = df.Mutate(normalized)
		if df.Err != nil {
			return Frame{}, fmt.Errorf("failed to store dates of %q: %w", name, df.Err)
		}
		types[name] = TypeDate
	}

	logging.Debug("Table loaded", "rows", df.Nrow(), "columns", len(names), "delimiter", string(delimiter))
	return Frame{df: df, types: types}, nil
}

// normalizeDates rewrites a column of date text into the storage format
func normalizeDates(col series.Series, layouts []string) (series.Series, error) {
	cells := make([]string, col.Len())
	for i := range cells {
		el := col.Elem(i)
		text := strings.TrimSpace(el.String())
		if el.IsNA() || text == "" || text == "NA" || text == naValue {
			cells[i] = naValue
			continue
		}

		t, ok := parseDate(text, layouts)
		if !ok {
			return series.Series{}, fmt.Errorf("column %q row %d: %q matches no date layout", col.Name, i+1, text)
		}
		cells[i] = formatDate(t)
	}
	return series.New(cells, series.String, col.Name), nil
}

func parseDate(s string, layouts []string) (time.Time, bool) {
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// detectDelimiter picks the most frequent of ',', ';' and '\t' on the first line
func detectDelimiter(raw []byte) rune {
	header := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		header = raw[:i]
	}

	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(header, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
