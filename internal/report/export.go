package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"salesboard/internal/core"
)

// Download names and content types for the filtered view.
const (
	CSVFileName     = "Processed_Data.csv"
	CSVContentType  = "text/csv; charset=utf-8"
	XLSXFileName    = "Processed_Data.xlsx"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteCSV writes the header and every row of the view as UTF-8 CSV.
func WriteCSV(w io.Writer, view core.FilteredView) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(view.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range view.Records {
		if err := cw.Write(view.Row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

const xlsxSheet = "Processed Data"

// WriteXLSX writes the view as a workbook with a styled, frozen header row
// and an auto-filter. Sales and Profit are stored as numbers.
func WriteXLSX(w io.Writer, view core.FilteredView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"3B528B"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(view.Header))
	for i, h := range view.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(view.Header) > 0 {
		last, _ := excelize.ColumnNumberToName(len(view.Header))
		if err := f.SetCellStyle(xlsxSheet, "A1", last+"1", headerStyle); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}

	salesCol := view.ColumnIndex(core.ColumnSales)
	profitCol := view.ColumnIndex(core.ColumnProfit)
	for i, rec := range view.Records {
		cells := view.Row(i)
		row := make([]interface{}, len(cells))
		for j, v := range cells {
			row[j] = v
		}
		if salesCol >= 0 && rec.Sales.Valid {
			row[salesCol] = rec.Sales.Decimal.InexactFloat64()
		}
		if profitCol >= 0 && rec.Profit.Valid {
			row[profitCol] = rec.Profit.Decimal.InexactFloat64()
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SetPanes(xlsxSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	if len(view.Header) > 0 {
		last, _ := excelize.ColumnNumberToName(len(view.Header))
		rng := fmt.Sprintf("A1:%s%d", last, view.Len()+1)
		if err := f.AutoFilter(xlsxSheet, rng, nil); err != nil {
			return fmt.Errorf("auto filter: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}
