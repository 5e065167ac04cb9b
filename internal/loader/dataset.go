package loader

import (
	"fmt"
	"strings"
	"time"

	"salesboard/internal/core"
)

// FromRows builds a Dataset from a header row followed by data rows.
//
// Blank header cells are named Column_N. Fully blank rows are skipped. A
// required column that is absent leaves the matching Record field null and
// is listed in MissingColumns; the load itself still succeeds.
func FromRows(name string, format core.Format, rows [][]string) (*core.Dataset, error) {
	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, ErrEmptyFile
	}

	header := make([]string, len(trimTrailing(rows[start])))
	for i, h := range rows[start] {
		if i >= len(header) {
			break
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		header[i] = h
	}

	ds := &core.Dataset{
		Name:     name,
		Format:   format,
		Header:   header,
		LoadedAt: time.Now().UTC(),
	}

	cols := make(map[string]int, len(core.RequiredColumns))
	for _, c := range core.RequiredColumns {
		idx := ds.ColumnIndex(c)
		if idx < 0 {
			ds.MissingColumns = append(ds.MissingColumns, c)
		}
		cols[c] = idx
	}

	records := make([]core.Record, 0, len(rows)-start-1)
	for _, row := range rows[start+1:] {
		if isBlank(row) {
			continue
		}
		values := make([]string, len(header))
		copy(values, row)
		records = append(records, core.Record{
			OrderDate: ParseDate(cell(values, cols[core.ColumnOrderDate])),
			Category:  strings.TrimSpace(cell(values, cols[core.ColumnCategory])),
			Segment:   strings.TrimSpace(cell(values, cols[core.ColumnSegment])),
			Sales:     core.ParseAmount(cell(values, cols[core.ColumnSales])),
			Profit:    core.ParseAmount(cell(values, cols[core.ColumnProfit])),
			Values:    values,
		})
	}
	ds.Records = records
	return ds, nil
}

func cell(values []string, idx int) string {
	if idx < 0 || idx >= len(values) {
		return ""
	}
	return values[idx]
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
