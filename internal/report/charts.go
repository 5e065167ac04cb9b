package report

import (
	"fmt"
	"math"

	"salesboard/internal/core"
)

const heatmapTitle = "Profit by Category and Segment"

type (
	// ChartSeries is one line or bar series. Text, when set, labels each
	// point.
	ChartSeries struct {
		Name   string    `json:"name"`
		Values []float64 `json:"values"`
		Text   []string  `json:"text,omitempty"`
	}

	// ChartSpec describes a line or bar chart.
	ChartSpec struct {
		Type   string        `json:"type"`
		Title  string        `json:"title"`
		XLabel string        `json:"x_label"`
		YLabel string        `json:"y_label"`
		Labels []string      `json:"labels"`
		Series []ChartSeries `json:"series"`
	}

	// HeatmapCell is one annotated cell. Present is false when no record
	// contributed to the combination.
	HeatmapCell struct {
		Value     float64 `json:"value"`
		Label     string  `json:"label"`
		Present   bool    `json:"present"`
		Intensity float64 `json:"intensity"`
		Color     string  `json:"color"`
	}

	// HeatmapSpec is an annotated two-dimensional chart, or a notice when
	// there is nothing to draw.
	HeatmapSpec struct {
		Title   string          `json:"title"`
		Rows    []string        `json:"rows"`
		Columns []string        `json:"columns"`
		Cells   [][]HeatmapCell `json:"cells"`
		Notice  string          `json:"notice,omitempty"`
	}
)

// Empty reports whether the chart has no points.
func (c ChartSpec) Empty() bool {
	return len(c.Labels) == 0
}

// Empty reports whether the heatmap shows a notice instead of cells.
func (h HeatmapSpec) Empty() bool {
	return h.Notice != "" || len(h.Rows) == 0 || len(h.Columns) == 0
}

// emptyHeatmap shows notice in place of the grid. The axes are empty, not
// null, in JSON.
func emptyHeatmap(notice string) HeatmapSpec {
	return HeatmapSpec{
		Title:   heatmapTitle,
		Rows:    []string{},
		Columns: []string{},
		Cells:   [][]HeatmapCell{},
		Notice:  notice,
	}
}

// SalesTrendChart plots monthly sales as a line.
func SalesTrendChart(months []core.MonthSales) ChartSpec {
	spec := ChartSpec{
		Type:   "line",
		Title:  "Monthly Sales Trend",
		XLabel: "month_year",
		YLabel: "Sales",
		Labels: make([]string, len(months)),
	}
	series := ChartSeries{Name: "Sales", Values: make([]float64, len(months))}
	for i, m := range months {
		spec.Labels[i] = m.Label()
		series.Values[i] = m.Sales.InexactFloat64()
	}
	spec.Series = []ChartSeries{series}
	return spec
}

// CategoryChart plots sales per category as bars labeled with currency.
func CategoryChart(cats []core.CategoryAmount) ChartSpec {
	spec := ChartSpec{
		Type:   "bar",
		Title:  "Sales by Category",
		XLabel: "Category",
		YLabel: "Sales",
		Labels: make([]string, len(cats)),
	}
	series := ChartSeries{
		Name:   "Sales",
		Values: make([]float64, len(cats)),
		Text:   make([]string, len(cats)),
	}
	for i, c := range cats {
		spec.Labels[i] = c.Name
		series.Values[i] = c.Amount.InexactFloat64()
		series.Text[i] = c.Label()
	}
	spec.Series = []ChartSeries{series}
	return spec
}

// Heatmap annotates each pivot cell with its currency label and a color on
// a Viridis scale spanning the present values.
func Heatmap(p core.Pivot) HeatmapSpec {
	spec := HeatmapSpec{Title: heatmapTitle, Rows: p.Rows, Columns: p.Columns}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range p.Cells {
		for _, c := range row {
			if !c.Valid {
				continue
			}
			f := c.Decimal.InexactFloat64()
			lo = math.Min(lo, f)
			hi = math.Max(hi, f)
		}
	}

	spec.Cells = make([][]HeatmapCell, len(p.Cells))
	for i, row := range p.Cells {
		spec.Cells[i] = make([]HeatmapCell, len(row))
		for j, c := range row {
			if !c.Valid {
				spec.Cells[i][j] = HeatmapCell{}
				continue
			}
			f := c.Decimal.InexactFloat64()
			intensity := 0.5
			if hi > lo {
				intensity = (f - lo) / (hi - lo)
			}
			spec.Cells[i][j] = HeatmapCell{
				Value:     f,
				Label:     core.FormatCurrency(c.Decimal),
				Present:   true,
				Intensity: intensity,
				Color:     viridis(intensity),
			}
		}
	}
	return spec
}

var viridisStops = [][3]float64{
	{68, 1, 84},
	{59, 82, 139},
	{33, 145, 140},
	{94, 201, 98},
	{253, 231, 37},
}

// viridis maps t in [0,1] to a hex color.
func viridis(t float64) string {
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(viridisStops)-1)
	i := int(math.Floor(pos))
	if i >= len(viridisStops)-1 {
		i = len(viridisStops) - 2
	}
	frac := pos - float64(i)
	a, b := viridisStops[i], viridisStops[i+1]
	var rgb [3]int
	for k := range rgb {
		rgb[k] = int(math.Round(a[k] + (b[k]-a[k])*frac))
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}
