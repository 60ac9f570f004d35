package table

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func tripsFrame(t *testing.T) Frame {
	t.Helper()
	f, err := NewFrame(
		IntColumn("trip_id", []int{1, 2, 3}),
		DateColumn("starttime", []time.Time{
			date(t, "2019-01-01T00:00:00Z"),
			date(t, "2020-06-15T08:30:00Z"),
			date(t, "2020-12-31T23:59:00Z"),
		}),
		StringColumn("station", []string{"BT-01", "CH-02", "UW-04"}),
	)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	return f
}

func TestRowsInYear(t *testing.T) {
	f := tripsFrame(t)

	got, err := RowsInYear(f, "starttime", 2020)
	if err != nil {
		t.Fatalf("RowsInYear failed: %v", err)
	}

	if got.Nrow() != 2 {
		t.Fatalf("Expected 2 rows, got %d", got.Nrow())
	}

	stations, err := got.Strings("station")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(stations, []string{"CH-02", "UW-04"}) {
		t.Errorf("Expected rows in original order, got %v", stations)
	}

	dates, err := got.Dates("starttime")
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range dates {
		if d.Year() != 2020 {
			t.Errorf("Unexpected date %s", d)
		}
	}

	if typ, _ := got.Type("starttime"); typ != TypeDate {
		t.Errorf("Filtered frame lost the date type, got %s", typ)
	}
}

func TestRowsInYearNoMatch(t *testing.T) {
	got, err := RowsInYear(tripsFrame(t), "starttime", 1999)
	if err != nil {
		t.Fatalf("RowsInYear failed: %v", err)
	}
	if got.Nrow() != 0 {
		t.Errorf("Expected no rows, got %d", got.Nrow())
	}
}

func TestRowsInYearDoesNotMutateInput(t *testing.T) {
	f := tripsFrame(t)
	before := f.Records()
	typesBefore := copyTypes(f.types)

	if _, err := RowsInYear(f, "starttime", 2020); err != nil {
		t.Fatalf("RowsInYear failed: %v", err)
	}

	if !reflect.DeepEqual(before, f.Records()) {
		t.Errorf("Input records changed:\nbefore %v\nafter  %v", before, f.Records())
	}
	if !reflect.DeepEqual(typesBefore, f.types) {
		t.Errorf("Input column types changed: %v", f.types)
	}
	if f.Nrow() != 3 {
		t.Errorf("Expected input to keep 3 rows, got %d", f.Nrow())
	}
}

func TestRowsInYearUsesValueOffset(t *testing.T) {
	f, err := NewFrame(DateColumn("starttime", []time.Time{
		date(t, "2020-12-31T22:00:00-05:00"), // 2021 in UTC
		date(t, "2021-01-01T01:00:00+02:00"), // 2020 in UTC
	}))
	if err != nil {
		t.Fatal(err)
	}

	got, err := RowsInYear(f, "starttime", 2020)
	if err != nil {
		t.Fatal(err)
	}
	if got.Nrow() != 1 {
		t.Fatalf("Expected 1 row, got %d", got.Nrow())
	}
	dates, _ := got.Dates("starttime")
	if dates[0].Month() != time.December {
		t.Errorf("Expected the December row, got %s", dates[0])
	}
}

func TestRowsInYearSkipsMissingDates(t *testing.T) {
	f, err := NewFrame(
		DateColumn("starttime", []time.Time{{}, date(t, "2020-03-01T00:00:00Z")}),
		StringColumn("id", []string{"a", "b"}),
	)
	if err != nil {
		t.Fatal(err)
	}

	got, err := RowsInYear(f, "starttime", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Nrow() != 0 {
		t.Errorf("Missing dates must never match, got %d rows", got.Nrow())
	}
}

func TestRowsInYearErrors(t *testing.T) {
	f := tripsFrame(t)

	tests := []struct {
		name   string
		column string
		want   error
	}{
		{"string column", "station", ErrNotDateColumn},
		{"int column", "trip_id", ErrNotDateColumn},
		{"missing column", "stoptime", ErrColumnNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RowsInYear(f, tt.column, 2020)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if got.Nrow() != 0 || len(got.Names()) != 0 {
				t.Errorf("Expected an empty frame on error, got %d rows", got.Nrow())
			}
		})
	}
}

func TestRowsInYearZeroFrame(t *testing.T) {
	if _, err := RowsInYear(Frame{}, "starttime", 2020); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("Expected ErrColumnNotFound on an empty frame, got %v", err)
	}
}

func TestNewFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		cols []Column
	}{
		{"empty name", []Column{StringColumn("", []string{"a"})}},
		{"duplicate", []Column{StringColumn("a", []string{"x"}), IntColumn("a", []int{1})}},
		{"length mismatch", []Column{StringColumn("a", []string{"x", "y"}), IntColumn("b", []int{1})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFrame(tt.cols...); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestDatesRequiresDateColumn(t *testing.T) {
	f := tripsFrame(t)
	if _, err := f.Dates("station"); !errors.Is(err, ErrNotDateColumn) {
		t.Errorf("Expected ErrNotDateColumn, got %v", err)
	}
	if _, err := f.Strings("nope"); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("Expected ErrColumnNotFound, got %v", err)
	}
}

const prontoTrips = `trip_id,starttime,stoptime,from_station_id,tripduration
431,10/13/2014 10:31,10/13/2014 10:48,CBD-06,985.935
432,10/13/2014 10:32,10/13/2014 10:48,CBD-06,926.375
9001,1/4/2015 9:05,1/4/2015 9:20,UW-04,900.5
9002,,1/5/2015 9:20,UW-04,880.0
`

func TestReadCSVParsesDates(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(prontoTrips), ReadOptions{ParseDates: []string{"starttime"}})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if f.Nrow() != 4 {
		t.Fatalf("Expected 4 rows, got %d", f.Nrow())
	}

	expectedTypes := map[string]ColumnType{
		"trip_id":         TypeInt,
		"starttime":       TypeDate,
		"stoptime":        TypeString,
		"from_station_id": TypeString,
		"tripduration":    TypeFloat,
	}
	for name, want := range expectedTypes {
		if got, _ := f.Type(name); got != want {
			t.Errorf("Column %s: expected %s, got %s", name, want, got)
		}
	}

	dates, err := f.Dates("starttime")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2014, time.October, 13, 10, 31, 0, 0, time.UTC)
	if !dates[0].Equal(want) {
		t.Errorf("Expected %s, got %s", want, dates[0])
	}
	if !dates[3].IsZero() {
		t.Errorf("Expected the empty cell to be missing, got %s", dates[3])
	}

	got, err := RowsInYear(f, "starttime", 2015)
	if err != nil {
		t.Fatal(err)
	}
	ids, _ := got.Strings("trip_id")
	if !reflect.DeepEqual(ids, []string{"9001"}) {
		t.Errorf("Expected trip 9001 only, got %v", ids)
	}

	// stoptime was not parsed, so it cannot be filtered by year
	if _, err := RowsInYear(f, "stoptime", 2015); !errors.Is(err, ErrNotDateColumn) {
		t.Errorf("Expected ErrNotDateColumn for an unparsed column, got %v", err)
	}
}

func TestReadCSVDelimiterDetection(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"tab", "id\tday\n1\t2020-01-02\n2\t2021-01-02\n"},
		{"semicolon", "id;day\n1;2020-01-02\n2;2021-01-02\n"},
		{"comma", "id,day\n1,2020-01-02\n2,2021-01-02\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ReadCSV(strings.NewReader(tt.input), ReadOptions{ParseDates: []string{"day"}})
			if err != nil {
				t.Fatalf("ReadCSV failed: %v", err)
			}
			if !reflect.DeepEqual(f.Names(), []string{"id", "day"}) {
				t.Fatalf("Unexpected columns %v", f.Names())
			}
			got, err := RowsInYear(f, "day", 2020)
			if err != nil {
				t.Fatal(err)
			}
			if got.Nrow() != 1 {
				t.Errorf("Expected 1 row, got %d", got.Nrow())
			}
		})
	}
}

func TestReadCSVLatin1(t *testing.T) {
	// "Café" encoded as ISO-8859-1
	input := []byte("name,opened\nCaf\xe9,2015-05-01\n")

	f, err := ReadCSV(bytes.NewReader(input), ReadOptions{ParseDates: []string{"opened"}})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	names, _ := f.Strings("name")
	if names[0] != "Café" {
		t.Errorf("Expected decoded UTF-8, got %q", names[0])
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  ReadOptions
		want  string
	}{
		{"empty", "  \n", ReadOptions{}, "empty"},
		{"bad date", "day\n2020-01-02\nyesterday\n", ReadOptions{ParseDates: []string{"day"}}, `row 2: "yesterday"`},
		{"missing date column", "day\n2020-01-02\n", ReadOptions{ParseDates: []string{"when"}}, "column not found"},
		{"custom layout mismatch", "day\n2020-01-02\n", ReadOptions{ParseDates: []string{"day"}, DateLayouts: []string{"02.01.2006"}}, "matches no date layout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), tt.opts)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestReadCSVForcedTypes(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("zip,day\n98101,01/02/2020\n"), ReadOptions{
		Types: map[string]ColumnType{"zip": TypeString, "day": TypeDate},
	})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if typ, _ := f.Type("zip"); typ != TypeString {
		t.Errorf("Expected forced string type, got %s", typ)
	}
	if typ, _ := f.Type("day"); typ != TypeDate {
		t.Errorf("Expected date type from Types, got %s", typ)
	}
}

func TestReadFileAndWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trip.csv")
	if err := os.WriteFile(path, []byte(prontoTrips), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := ReadFile(path, ReadOptions{ParseDates: []string{"starttime"}})
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	got, err := RowsInYear(f, "starttime", 2014)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := got.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %q", buf.String())
	}
	if lines[0] != "trip_id,starttime,stoptime,from_station_id,tripduration" {
		t.Errorf("Unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "431,2014-10-13T10:31:00Z,") {
		t.Errorf("Unexpected first row %q", lines[1])
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"), ReadOptions{}); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
