package loader

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesboard/internal/core"
	"salesboard/internal/sheets/memory"
)

const superstoreCSV = "\ufeffRow ID,Order Date,Category,Segment,Sales,Profit,Region\n" +
	"1,11/8/2016,Furniture,Consumer,261.96,41.9136,South\n" +
	"2,2016-11-08,Furniture,Consumer,731.94,219.582,South\n" +
	"\n" +
	"3,not a date,Office Supplies,Corporate,\"1,014.62\",-383.031,West\n" +
	"4,6/12/2016,,Home Office,n/a,,West\n"

func TestFormatOf(t *testing.T) {
	cases := []struct {
		name   string
		format core.Format
	}{
		{"orders.csv", core.FormatCSV},
		{"Orders.CSV", core.FormatCSV},
		{"report.xlsx", core.FormatXLSX},
		{"Sample - Superstore.xls", core.FormatXLS},
	}
	for _, tc := range cases {
		got, err := FormatOf(tc.name)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.format, got, tc.name)
	}

	for _, name := range []string{"data.json", "noext", "archive.xls.zip"} {
		_, err := FormatOf(name)
		var ufe *core.UnsupportedFormatError
		require.ErrorAs(t, err, &ufe, name)
		assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
		assert.Equal(t, name, ufe.Name)
	}
}

func TestLoadCSV(t *testing.T) {
	ds, err := Load("uploads/orders.csv", strings.NewReader(superstoreCSV))
	require.NoError(t, err)

	assert.Equal(t, "orders.csv", ds.Name)
	assert.Equal(t, core.FormatCSV, ds.Format)
	assert.Equal(t, []string{"Row ID", "Order Date", "Category", "Segment", "Sales", "Profit", "Region"}, ds.Header)
	assert.Empty(t, ds.MissingColumns)
	require.Len(t, ds.Records, 4, "blank line must be skipped")

	first := ds.Records[0]
	assert.Equal(t, "2016-11-08", first.OrderDate.String())
	assert.Equal(t, "Furniture", first.Category)
	assert.Equal(t, "Consumer", first.Segment)
	assert.True(t, first.Sales.Decimal.Equal(decimal.RequireFromString("261.96")))
	assert.Equal(t, "South", first.Values[6])

	assert.Equal(t, "2016-11-08", ds.Records[1].OrderDate.String())

	third := ds.Records[2]
	assert.True(t, third.OrderDate.IsEmpty(), "unparseable date becomes null")
	assert.True(t, third.Sales.Decimal.Equal(decimal.RequireFromString("1014.62")))
	assert.True(t, third.Profit.Decimal.Equal(decimal.RequireFromString("-383.031")))

	fourth := ds.Records[3]
	assert.Equal(t, "", fourth.Category)
	assert.False(t, fourth.Sales.Valid)
	assert.False(t, fourth.Profit.Valid)
	assert.Equal(t, 1, ds.UndatedCount())
}

func TestLoadCSV_MissingColumnsIsNotFatal(t *testing.T) {
	ds, err := Load("partial.csv", strings.NewReader("Order Date,Category,Sales\n2024-01-05,Technology,10\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{core.ColumnSegment, core.ColumnProfit}, ds.MissingColumns)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, "", ds.Records[0].Segment)
	assert.False(t, ds.Records[0].Profit.Valid)
}

func TestLoadCSV_Empty(t *testing.T) {
	_, err := Load("empty.csv", strings.NewReader("\n\n"))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestLoadCSV_BlankHeaderCells(t *testing.T) {
	ds, err := Load("odd.csv", strings.NewReader("Order Date,,Sales\n2024-01-05,x,1\n"))
	require.NoError(t, err)
	assert.Equal(t, "Column_2", ds.Header[1])
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load("orders.json", strings.NewReader("{}"))
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Order Date", "Category", "Segment", "Sales", "Profit"},
		{"2017-01-02", "Technology", "Corporate", 999.5, 120.25},
		{"2017-02-14", "Furniture", "Consumer", 10, -3},
	}
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, err := Load("Orders.XLSX", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, core.FormatXLSX, ds.Format)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, "2017-01-02", ds.Records[0].OrderDate.String())
	assert.True(t, ds.Records[0].Sales.Decimal.Equal(decimal.RequireFromString("999.5")))
	assert.True(t, ds.Records[1].Profit.Decimal.Equal(decimal.NewFromInt(-3)))
}

func TestLoadXLSX_Corrupt(t *testing.T) {
	_, err := Load("broken.xlsx", strings.NewReader("not a zip"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestParseDate(t *testing.T) {
	cases := map[string]string{
		"2016-11-08":           "2016-11-08",
		"11/8/2016":            "2016-11-08",
		"2016-11-08T00:00:00Z": "2016-11-08",
		"2016-11-08 13:45:00":  "2016-11-08",
		"11-08-16":             "2016-11-08",
		"8-Nov-2016":           "2016-11-08",
		"Nov 8, 2016":          "2016-11-08",
		"42682":                "2016-11-08",
		"2016.11":              "",
		"42682.5":              "",
		"":                     "",
		"tomorrow":             "",
		"-5":                   "",
		"13/45/2016":           "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseDate(in).String(), "input %q", in)
	}
}

func TestDefaultSource_MissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), DefaultFileName))
	_, err := src.Load(context.Background())

	var sue *core.SourceUnavailableError
	require.ErrorAs(t, err, &sue)
	assert.ErrorIs(t, err, core.ErrSourceUnavailable)
	assert.Contains(t, sue.Location, DefaultFileName)
}

func TestDefaultSource_NilIsUnavailable(t *testing.T) {
	var src *DefaultSource
	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, core.ErrSourceUnavailable)
}

func TestDefaultSource_SheetLoadedOnce(t *testing.T) {
	store := memory.New("Orders", [][]string{
		{"Order Date", "Category", "Segment", "Sales", "Profit"},
		{"2016-11-08", "Furniture", "Consumer", "261.96", "41.91"},
	})
	src := NewSheetSource(store)
	assert.Equal(t, "google sheets", src.Location())

	var wg sync.WaitGroup
	results := make([]*core.Dataset, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds, err := src.Load(context.Background())
			if err == nil {
				results[i] = ds
			}
		}(i)
	}
	wg.Wait()

	for _, ds := range results {
		require.NotNil(t, ds)
		assert.Same(t, results[0], ds)
	}
	assert.Equal(t, core.FormatSheets, results[0].Format)
	assert.Equal(t, 1, results[0].Len())

	_, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.Reads())
}

func TestDefaultSource_EmptySheet(t *testing.T) {
	src := NewSheetSource(memory.New("Orders", nil))
	_, err := src.Load(context.Background())
	assert.True(t, errors.Is(err, core.ErrSourceUnavailable))
}
