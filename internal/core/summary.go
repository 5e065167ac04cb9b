package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Metrics are the scalar figures computed from a FilteredView.
type Metrics struct {
	TotalSales    decimal.Decimal `json:"total_sales"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	TotalOrders   int             `json:"total_orders"`
}

// MonthSales is the sales total of one calendar month.
type MonthSales struct {
	Year  int
	Month time.Month
	Sales decimal.Decimal
}

// Label returns the month as YYYY-MM.
func (m MonthSales) Label() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Label formats the amount with currency notation.
func (c CategoryAmount) Label() string {
	return FormatCurrency(c.Amount)
}

// Pivot is a two-dimensional sum indexed by row and column keys. A cell with
// Valid=false had no contributing record.
type Pivot struct {
	Rows    []string
	Columns []string
	Cells   [][]decimal.NullDecimal
}

// Value returns the cell amount, zero when the combination is absent.
func (p Pivot) Value(row, col int) decimal.Decimal {
	return p.Cells[row][col].Decimal
}
