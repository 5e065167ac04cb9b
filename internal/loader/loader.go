// Package loader decodes uploaded or default sales files into a core.Dataset.
//
// The decoder is chosen by file-name extension, never by sniffing content:
// .csv goes through encoding/csv, .xlsx through excelize and .xls through the
// BIFF8 decoder in xls.go. Only the first sheet of a workbook is read.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"salesboard/internal/core"
)

// ErrEmptyFile is returned when a supported file has no header row.
var ErrEmptyFile = errors.New("file contains no rows")

// FormatOf maps a file name to its decoder. Matching is case-insensitive.
func FormatOf(name string) (core.Format, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	switch ext {
	case ".csv":
		return core.FormatCSV, nil
	case ".xlsx":
		return core.FormatXLSX, nil
	case ".xls":
		return core.FormatXLS, nil
	}
	return "", &core.UnsupportedFormatError{Name: name, Extension: ext}
}

// Load reads r according to the extension of name.
func Load(name string, r io.Reader) (*core.Dataset, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	switch format {
	case core.FormatCSV:
		rows, err = readCSV(r)
	case core.FormatXLSX:
		rows, err = readXLSX(r)
	case core.FormatXLS:
		rows, err = readXLS(r)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(name), err)
	}
	return FromRows(filepath.Base(name), format, rows)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("no sheets")
	}
	return f.GetRows(sheet)
}

func trimTrailing(cells []string) []string {
	n := len(cells)
	for n > 0 && strings.TrimSpace(cells[n-1]) == "" {
		n--
	}
	return cells[:n]
}
