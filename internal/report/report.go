// Package report runs the dashboard pipeline: filter, aggregate, evaluate
// insights and shape everything the presentation layer draws.
package report

import (
	"errors"
	"fmt"
	"strings"

	"salesboard/internal/aggregate"
	"salesboard/internal/core"
	"salesboard/internal/filter"
	"salesboard/internal/insight"
)

// Notices shown in place of content.
const (
	NoticeEmptyHeatmap = "No data available for the heatmap. Try adjusting the filters."
	NoticeEmptyView    = "No records match the current filters."
)

type (
	// MetricCard is one formatted key figure.
	MetricCard struct {
		Title string `json:"title"`
		Value string `json:"value"`
	}

	// Table is the filtered view as display strings.
	Table struct {
		Header []string   `json:"header"`
		Rows   [][]string `json:"rows"`
	}

	// RenderedOutput is everything one render pass produces.
	RenderedOutput struct {
		Source     string              `json:"source"`
		Criteria   core.FilterCriteria `json:"-"`
		Options    filter.Options      `json:"-"`
		Metrics    core.Metrics        `json:"metrics"`
		Cards      []MetricCard        `json:"cards"`
		SalesTrend ChartSpec           `json:"sales_trend"`
		ByCategory ChartSpec           `json:"by_category"`
		Heatmap    HeatmapSpec         `json:"heatmap"`
		Table      Table               `json:"table"`
		Advisories []insight.Advisory  `json:"advisories"`
		Notices    []string            `json:"notices"`
		TotalRows  int                 `json:"total_rows"`
		View       core.FilteredView   `json:"-"`
	}
)

// Render recomputes the whole report for ds under c. Unset range bounds
// take the dataset extent. Render never fails: problems that leave a panel
// without data become notices and the other panels still render.
func Render(ds *core.Dataset, c core.FilterCriteria) RenderedOutput {
	c = filter.Merge(ds, c)
	out := RenderedOutput{
		Criteria:  c,
		Options:   filter.OptionsFor(ds),
		Notices:   []string{},
		TotalRows: ds.Len(),
	}
	if ds != nil {
		out.Source = ds.Name
		if len(ds.MissingColumns) > 0 {
			out.Notices = append(out.Notices, "Missing columns: "+strings.Join(ds.MissingColumns, ", "))
		}
	}
	if err := c.Validate(); err != nil {
		for _, e := range unjoin(err) {
			out.Notices = append(out.Notices, capitalize(e.Error())+".")
		}
	}

	view := filter.Apply(ds, c)
	out.View = view
	if view.Empty() {
		out.Notices = append(out.Notices, NoticeEmptyView)
	}

	out.Metrics = aggregate.ScalarMetrics(view)
	out.Cards = Cards(out.Metrics)
	out.SalesTrend = SalesTrendChart(aggregate.MonthlySales(view))
	out.ByCategory = CategoryChart(aggregate.CategorySales(view))

	pivot, err := aggregate.CategorySegmentProfit(view)
	if err != nil {
		out.Heatmap = emptyHeatmap(NoticeEmptyHeatmap)
	} else {
		out.Heatmap = Heatmap(pivot)
	}

	out.Table = TableOf(view)
	out.Advisories = insight.Evaluate(out.Metrics)
	return out
}

// PrependNotices puts notices ahead of the ones Render produced.
func (o *RenderedOutput) PrependNotices(notices []string) {
	merged := make([]string, 0, len(notices)+len(o.Notices))
	merged = append(merged, notices...)
	o.Notices = append(merged, o.Notices...)
}

// Cards formats the four key figures.
func Cards(m core.Metrics) []MetricCard {
	return []MetricCard{
		{Title: "Total Sales", Value: core.FormatCurrency(m.TotalSales)},
		{Title: "Avg. Order Value", Value: core.FormatCurrency(m.AvgOrderValue)},
		{Title: "Total Profit", Value: core.FormatCurrency(m.TotalProfit)},
		{Title: "Total Orders", Value: core.FormatCount(m.TotalOrders)},
	}
}

// TableOf renders every row of the view with all original columns.
func TableOf(view core.FilteredView) Table {
	t := Table{Header: view.Header, Rows: make([][]string, view.Len())}
	if t.Header == nil {
		t.Header = []string{}
	}
	for i := range view.Records {
		t.Rows[i] = view.Row(i)
	}
	return t
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ErrorNotice is the message shown when no dataset could be produced.
func ErrorNotice(err error) string {
	var ufe *core.UnsupportedFormatError
	switch {
	case errors.Is(err, core.ErrSourceUnavailable):
		return "No file uploaded. Please upload a dataset."
	case errors.As(err, &ufe):
		return fmt.Sprintf("Unsupported file %q. Upload a .csv, .xlsx or .xls file.", ufe.Name)
	}
	return "Could not read the dataset: " + err.Error()
}
