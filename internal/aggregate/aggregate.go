// Package aggregate computes metrics and grouped totals over a FilteredView.
// Every function is pure and safe on an empty view.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"salesboard/internal/core"
)

// ScalarMetrics sums sales and profit and averages sales. Missing amounts
// are skipped; the mean divides by the number of records with a sales value
// and is zero when there are none.
func ScalarMetrics(view core.FilteredView) core.Metrics {
	m := core.Metrics{TotalOrders: view.Len()}
	counted := 0
	for _, r := range view.Records {
		if r.Sales.Valid {
			m.TotalSales = m.TotalSales.Add(r.Sales.Decimal)
			counted++
		}
		if r.Profit.Valid {
			m.TotalProfit = m.TotalProfit.Add(r.Profit.Decimal)
		}
	}
	if counted > 0 {
		m.AvgOrderValue = m.TotalSales.Div(decimal.NewFromInt(int64(counted)))
	}
	return m
}

// MonthlySales groups sales by calendar month of the order date, oldest
// first. Records without a date are not grouped.
func MonthlySales(view core.FilteredView) []core.MonthSales {
	type key struct {
		year  int
		month time.Month
	}
	totals := map[key]decimal.Decimal{}
	for _, r := range view.Records {
		if r.OrderDate.IsEmpty() {
			continue
		}
		k := key{r.OrderDate.Year(), r.OrderDate.Month()}
		sum := totals[k]
		if r.Sales.Valid {
			sum = sum.Add(r.Sales.Decimal)
		}
		totals[k] = sum
	}
	out := make([]core.MonthSales, 0, len(totals))
	for k, v := range totals {
		out = append(out, core.MonthSales{Year: k.year, Month: k.month, Sales: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// CategorySales groups sales by category, sorted by category name. Records
// with a missing category are not grouped.
func CategorySales(view core.FilteredView) []core.CategoryAmount {
	totals := map[string]decimal.Decimal{}
	for _, r := range view.Records {
		if r.Category == "" {
			continue
		}
		sum := totals[r.Category]
		if r.Sales.Valid {
			sum = sum.Add(r.Sales.Decimal)
		}
		totals[r.Category] = sum
	}
	out := make([]core.CategoryAmount, 0, len(totals))
	for name, v := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CategorySegmentProfit pivots the profit sum by category (rows) and
// segment (columns), both sorted. Combinations with no record are left
// invalid. A record contributes only when category, segment and profit are
// all present. A pivot without rows or columns is reported as a
// *core.EmptyAggregationError.
func CategorySegmentProfit(view core.FilteredView) (core.Pivot, error) {
	type cell struct{ row, col string }
	sums := map[cell]decimal.Decimal{}
	rowSet := map[string]bool{}
	colSet := map[string]bool{}
	for _, r := range view.Records {
		if r.Category == "" || r.Segment == "" || !r.Profit.Valid {
			continue
		}
		k := cell{r.Category, r.Segment}
		sums[k] = sums[k].Add(r.Profit.Decimal)
		rowSet[r.Category] = true
		colSet[r.Segment] = true
	}
	if len(rowSet) == 0 || len(colSet) == 0 {
		return core.Pivot{}, &core.EmptyAggregationError{Rows: len(rowSet), Columns: len(colSet)}
	}

	p := core.Pivot{Rows: sortedKeys(rowSet), Columns: sortedKeys(colSet)}
	p.Cells = make([][]decimal.NullDecimal, len(p.Rows))
	for i, row := range p.Rows {
		p.Cells[i] = make([]decimal.NullDecimal, len(p.Columns))
		for j, col := range p.Columns {
			if v, ok := sums[cell{row, col}]; ok {
				p.Cells[i][j] = decimal.NullDecimal{Decimal: v, Valid: true}
			}
		}
	}
	return p, nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
