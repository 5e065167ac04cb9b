package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateStringAndMonthKey(t *testing.T) {
	d := NewDate(2025, 3, 7)
	if d.String() != "2025-03-07" {
		t.Fatalf("String() = %q", d.String())
	}
	if d.MonthKey() != "2025-03" {
		t.Fatalf("MonthKey() = %q", d.MonthKey())
	}
	var empty Date
	if !empty.IsEmpty() || empty.String() != "" || empty.MonthKey() != "" {
		t.Fatalf("zero date should be empty, got %q/%q", empty.String(), empty.MonthKey())
	}
}

func TestDateOfTruncatesTime(t *testing.T) {
	d := DateOf(time.Date(2024, 11, 8, 17, 45, 0, 0, time.UTC))
	if !d.Equal(NewDate(2024, 11, 8).Time) {
		t.Fatalf("DateOf kept the time of day: %v", d)
	}
	if !DateOf(time.Time{}).IsEmpty() {
		t.Fatalf("DateOf(zero) should be empty")
	}
}

func TestDatasetColumnIndexAndUndated(t *testing.T) {
	ds := &Dataset{
		Header: []string{"Row ID", " order date ", "Sales"},
		Records: []Record{
			{OrderDate: NewDate(2024, 1, 1)},
			{},
			{},
		},
	}
	if got := ds.ColumnIndex(ColumnOrderDate); got != 1 {
		t.Fatalf("ColumnIndex = %d, want 1", got)
	}
	if got := ds.ColumnIndex("Profit"); got != -1 {
		t.Fatalf("ColumnIndex(missing) = %d", got)
	}
	if got := ds.UndatedCount(); got != 2 {
		t.Fatalf("UndatedCount = %d, want 2", got)
	}
	var nilDS *Dataset
	if nilDS.Len() != 0 {
		t.Fatalf("nil dataset should have zero length")
	}
}

func TestViewRowNormalizesDate(t *testing.T) {
	ds := &Dataset{
		Header: []string{"Order Date", "Category"},
		Records: []Record{
			{OrderDate: NewDate(2016, 11, 8), Values: []string{"11/8/2016", "Furniture"}},
			{Values: []string{"garbage", "Technology"}},
		},
	}
	v := NewView(ds, ds.Records)
	if got := v.Row(0); got[0] != "2016-11-08" || got[1] != "Furniture" {
		t.Fatalf("Row(0) = %v", got)
	}
	if got := v.Row(1); got[0] != "" {
		t.Fatalf("undated row should export an empty date, got %q", got[0])
	}
	// Row must not alias the record values.
	if ds.Records[0].Values[0] != "11/8/2016" {
		t.Fatalf("Row mutated the dataset")
	}
}

func TestViewShortRowIsPadded(t *testing.T) {
	ds := &Dataset{Header: []string{"Order Date", "Category", "Notes"}}
	v := NewView(ds, []Record{{Values: []string{"", "Office"}}})
	if got := v.Row(0); len(got) != 3 || got[2] != "" {
		t.Fatalf("Row should pad to the header width, got %v", got)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	var err error = &UnsupportedFormatError{Name: "data.json", Extension: ".json"}
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("UnsupportedFormatError should match ErrUnsupportedFormat")
	}
	err = &SourceUnavailableError{Location: "Sample - Superstore.xls"}
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("SourceUnavailableError should match ErrSourceUnavailable")
	}
	err = &EmptyAggregationError{Rows: 2}
	if !errors.Is(err, ErrEmptyAggregation) {
		t.Fatalf("EmptyAggregationError should match ErrEmptyAggregation")
	}
}

func TestPivotValueAbsentIsZero(t *testing.T) {
	p := Pivot{
		Rows:    []string{"Furniture"},
		Columns: []string{"Consumer", "Corporate"},
		Cells: [][]decimal.NullDecimal{{
			{Decimal: decimal.NewFromInt(12), Valid: true},
			{},
		}},
	}
	if !p.Value(0, 0).Equal(decimal.NewFromInt(12)) {
		t.Fatalf("Value(0,0) = %s", p.Value(0, 0))
	}
	if !p.Value(0, 1).IsZero() {
		t.Fatalf("absent cell should be zero, got %s", p.Value(0, 1))
	}
}
