package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Column names every sales dataset is expected to carry.
const (
	ColumnOrderDate = "Order Date"
	ColumnCategory  = "Category"
	ColumnSegment   = "Segment"
	ColumnSales     = "Sales"
	ColumnProfit    = "Profit"
)

// RequiredColumns lists the columns the pipeline reads, in display order.
var RequiredColumns = []string{ColumnOrderDate, ColumnCategory, ColumnSegment, ColumnSales, ColumnProfit}

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatXLS    Format = "xls"
	FormatSheets Format = "sheets"
)

type (
	// Format identifies how a dataset was decoded.
	Format string

	// Date is a calendar date. The zero value means the source cell was
	// missing or could not be parsed.
	Date struct {
		time.Time
	}

	// Record is one row of the dataset.
	Record struct {
		OrderDate Date
		Category  string
		Segment   string
		Sales     decimal.NullDecimal
		Profit    decimal.NullDecimal
		// Values holds every original cell, aligned with Dataset.Header.
		Values []string
	}

	// Dataset is the table loaded for a session. It is never mutated after
	// load; filters derive views from it.
	Dataset struct {
		Name           string
		Format         Format
		Header         []string
		Records        []Record
		MissingColumns []string
		LoadedAt       time.Time
	}

	// FilteredView is the order-preserving subset of a Dataset that passed
	// every active filter.
	FilteredView struct {
		Header  []string
		Records []Record
		// dateColumn is the index of the order date in Header, or -1.
		dateColumn int
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// IsEmpty reports whether the date is missing.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD, or "" when missing.
func (d Date) String() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("2006-01-02")
}

// MonthKey returns the YYYY-MM period the date falls in.
func (d Date) MonthKey() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("2006-01")
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// ColumnIndex returns the position of name in the header, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	return indexOf(d.Header, name)
}

// UndatedCount returns how many records have a missing order date.
func (d *Dataset) UndatedCount() int {
	n := 0
	for _, r := range d.Records {
		if r.OrderDate.IsEmpty() {
			n++
		}
	}
	return n
}

// NewView wraps records selected from ds.
func NewView(ds *Dataset, records []Record) FilteredView {
	if ds == nil {
		return FilteredView{dateColumn: -1}
	}
	return FilteredView{
		Header:     ds.Header,
		Records:    records,
		dateColumn: ds.ColumnIndex(ColumnOrderDate),
	}
}

// Len returns the number of records in the view.
func (v FilteredView) Len() int {
	return len(v.Records)
}

// Empty reports whether no record passed the filters.
func (v FilteredView) Empty() bool {
	return len(v.Records) == 0
}

// AsDataset exposes the view as a dataset so it can be filtered again.
func (v FilteredView) AsDataset() *Dataset {
	return &Dataset{Header: v.Header, Records: v.Records}
}

// ColumnIndex returns the position of name in the header, or -1.
func (v FilteredView) ColumnIndex(name string) int {
	return indexOf(v.Header, name)
}

// Row returns the cells of record i as exported: original values with the
// order date normalized to YYYY-MM-DD.
func (v FilteredView) Row(i int) []string {
	rec := v.Records[i]
	out := make([]string, len(v.Header))
	copy(out, rec.Values)
	if v.dateColumn >= 0 && v.dateColumn < len(out) {
		out[v.dateColumn] = rec.OrderDate.String()
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}
