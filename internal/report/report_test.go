package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesboard/internal/core"
	"salesboard/internal/loader"
)

const ordersCSV = `Row ID,Order Date,Category,Segment,Sales,Profit
1,11/8/2016,Furniture,Consumer,261.96,41.9136
2,11/8/2016,Furniture,Consumer,731.94,219.582
3,6/12/2016,Office Supplies,Corporate,14.62,6.8714
4,10/11/2015,Furniture,Consumer,957.5775,-383.031
5,10/11/2015,Office Supplies,Consumer,22.368,2.5164
6,,Technology,Home Office,100,10
`

func loadOrders(t *testing.T) *core.Dataset {
	t.Helper()
	ds, err := loader.Load("orders.csv", strings.NewReader(ordersCSV))
	require.NoError(t, err)
	return ds
}

func TestRender_DefaultCriteria(t *testing.T) {
	ds := loadOrders(t)
	out := Render(ds, core.FilterCriteria{})

	assert.Equal(t, "orders.csv", out.Source)
	assert.Equal(t, 6, out.TotalRows)
	assert.Equal(t, 5, out.View.Len(), "undated record is excluded")
	assert.Equal(t, "2015-10-11", out.Criteria.Dates.Start.String())
	assert.Equal(t, "2016-11-08", out.Criteria.Dates.End.String())

	require.Len(t, out.Cards, 4)
	assert.Equal(t, MetricCard{Title: "Total Sales", Value: "$1,988.47"}, out.Cards[0])
	assert.Equal(t, "Total Orders", out.Cards[3].Title)
	assert.Equal(t, "5", out.Cards[3].Value)

	assert.Equal(t, "line", out.SalesTrend.Type)
	assert.Equal(t, []string{"2015-10", "2016-06", "2016-11"}, out.SalesTrend.Labels)

	assert.Equal(t, "bar", out.ByCategory.Type)
	assert.Equal(t, []string{"Furniture", "Office Supplies"}, out.ByCategory.Labels)
	assert.Equal(t, "$1,951.48", out.ByCategory.Series[0].Text[0])

	assert.False(t, out.Heatmap.Empty())
	assert.Equal(t, []string{"Furniture", "Office Supplies"}, out.Heatmap.Rows)
	assert.Equal(t, []string{"Consumer", "Corporate"}, out.Heatmap.Columns)
	assert.False(t, out.Heatmap.Cells[0][1].Present)
	assert.Equal(t, "-$121.54", out.Heatmap.Cells[0][0].Label)

	require.Len(t, out.Table.Rows, 5)
	assert.Equal(t, "2016-11-08", out.Table.Rows[0][1])

	// Total sales under 50,000 and average under 500.
	require.Len(t, out.Advisories, 1)
	assert.Equal(t, "weak_sales", out.Advisories[0].Rule)
	assert.Empty(t, out.Notices)
}

func TestRender_HeatmapNoticeKeepsOtherPanels(t *testing.T) {
	ds := loadOrders(t)
	out := Render(ds, core.FilterCriteria{Categories: []string{"Technology"}})

	// The only Technology record has no date, so the view is empty.
	assert.True(t, out.View.Empty())
	assert.True(t, out.Heatmap.Empty())
	assert.Equal(t, NoticeEmptyHeatmap, out.Heatmap.Notice)
	assert.Contains(t, out.Notices, NoticeEmptyView)
	assert.Equal(t, "$0.00", out.Cards[0].Value)
	assert.True(t, out.SalesTrend.Empty())
	assert.Empty(t, out.Table.Rows)
}

func TestRender_InvertedRangesAreReported(t *testing.T) {
	ds := loadOrders(t)
	c := core.FilterCriteria{
		Dates:  core.DateRange{Start: core.NewDate(2016, 12, 1), End: core.NewDate(2016, 1, 1)},
		Profit: core.ProfitRange{Min: decimal.NullDecimal{Decimal: decimal.NewFromInt(5), Valid: true}, Max: decimal.NullDecimal{Decimal: decimal.NewFromInt(1), Valid: true}},
	}
	out := Render(ds, c)
	assert.True(t, out.View.Empty())
	assert.Contains(t, out.Notices, "Start date is after end date.")
	assert.Contains(t, out.Notices, "Minimum profit is greater than maximum profit.")
	// The user's bounds are kept as given.
	assert.Equal(t, "2016-12-01", out.Criteria.Dates.Start.String())
}

func TestRender_MissingColumnsNotice(t *testing.T) {
	ds, err := loader.Load("thin.csv", strings.NewReader("Order Date,Sales\n2024-01-01,10\n"))
	require.NoError(t, err)
	out := Render(ds, core.FilterCriteria{})
	assert.Contains(t, out.Notices, "Missing columns: Category, Segment, Profit")
	assert.True(t, out.Heatmap.Empty())
}

func TestRender_NilDataset(t *testing.T) {
	out := Render(nil, core.FilterCriteria{})
	assert.Equal(t, 0, out.TotalRows)
	assert.True(t, out.View.Empty())
}

func TestRender_JSON(t *testing.T) {
	out := Render(loadOrders(t), core.FilterCriteria{})
	b, err := json.Marshal(out)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	for _, key := range []string{"metrics", "cards", "sales_trend", "by_category", "heatmap", "table", "advisories", "notices"} {
		assert.Contains(t, decoded, key)
	}
	assert.NotContains(t, decoded, "View")
}

func TestRender_JSONEmptyCollectionsAreArrays(t *testing.T) {
	cases := map[string]RenderedOutput{
		"no dataset":   Render(nil, core.FilterCriteria{}),
		"no heatmap":   Render(loadOrders(t), core.FilterCriteria{Categories: []string{"Technology"}}),
		"full default": Render(loadOrders(t), core.FilterCriteria{}),
	}
	for name, out := range cases {
		b, err := json.Marshal(out)
		require.NoError(t, err, name)

		var decoded struct {
			Notices    []interface{} `json:"notices"`
			Advisories []interface{} `json:"advisories"`
			Heatmap    struct {
				Rows    []interface{} `json:"rows"`
				Columns []interface{} `json:"columns"`
				Cells   []interface{} `json:"cells"`
			} `json:"heatmap"`
			Table struct {
				Header []interface{} `json:"header"`
				Rows   []interface{} `json:"rows"`
			} `json:"table"`
		}
		require.NoError(t, json.Unmarshal(b, &decoded), name)
		assert.NotNil(t, decoded.Notices, "%s: notices", name)
		assert.NotNil(t, decoded.Advisories, "%s: advisories", name)
		assert.NotNil(t, decoded.Heatmap.Rows, "%s: heatmap rows", name)
		assert.NotNil(t, decoded.Heatmap.Columns, "%s: heatmap columns", name)
		assert.NotNil(t, decoded.Heatmap.Cells, "%s: heatmap cells", name)
		assert.NotNil(t, decoded.Table.Header, "%s: table header", name)
		assert.NotNil(t, decoded.Table.Rows, "%s: table rows", name)
		assert.NotContains(t, string(b), "null", name)
	}
}

func TestPrependNotices(t *testing.T) {
	out := Render(loadOrders(t), core.FilterCriteria{})
	out.PrependNotices(nil)
	assert.NotNil(t, out.Notices)
	assert.Empty(t, out.Notices)

	out = Render(loadOrders(t), core.FilterCriteria{Categories: []string{"Technology"}})
	out.PrependNotices([]string{"Ignored invalid start date \"x\"."})
	assert.Equal(t, []string{"Ignored invalid start date \"x\".", NoticeEmptyView}, out.Notices)
}

func TestHeatmapColors(t *testing.T) {
	p := core.Pivot{
		Rows:    []string{"A"},
		Columns: []string{"X", "Y", "Z"},
		Cells: [][]decimal.NullDecimal{{
			{Decimal: decimal.NewFromInt(-10), Valid: true},
			{Decimal: decimal.NewFromInt(10), Valid: true},
			{},
		}},
	}
	h := Heatmap(p)
	assert.Equal(t, "#440154", h.Cells[0][0].Color)
	assert.Equal(t, "#fde725", h.Cells[0][1].Color)
	assert.Equal(t, 0.0, h.Cells[0][0].Intensity)
	assert.Equal(t, 1.0, h.Cells[0][1].Intensity)
	assert.False(t, h.Cells[0][2].Present)
	assert.Equal(t, "", h.Cells[0][2].Label)
}

func TestErrorNotice(t *testing.T) {
	assert.Equal(t, "No file uploaded. Please upload a dataset.", ErrorNotice(&core.SourceUnavailableError{}))
	assert.Contains(t, ErrorNotice(&core.UnsupportedFormatError{Name: "a.json", Extension: ".json"}), `"a.json"`)
	assert.Contains(t, ErrorNotice(errors.New("zip: not a valid zip file")), "zip")
}

func TestWriteCSV(t *testing.T) {
	out := Render(loadOrders(t), core.FilterCriteria{Categories: []string{"Office Supplies"}})
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, out.View))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Row ID", "Order Date", "Category", "Segment", "Sales", "Profit"}, rows[0])
	assert.Equal(t, []string{"3", "2016-06-12", "Office Supplies", "Corporate", "14.62", "6.8714"}, rows[1])
	assert.Equal(t, "5", rows[2][0])
}

func TestWriteCSV_EmptyViewStillHasHeader(t *testing.T) {
	out := Render(loadOrders(t), core.FilterCriteria{Categories: []string{"Nope"}})
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, out.View))
	assert.Equal(t, "Row ID,Order Date,Category,Segment,Sales,Profit\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	out := Render(loadOrders(t), core.FilterCriteria{})
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, out.View))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, xlsxSheet, f.GetSheetName(0))
	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "Order Date", rows[0][1])
	assert.Equal(t, "2016-11-08", rows[1][1])

	v, err := f.GetCellValue(xlsxSheet, "E2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "261.96", v)
}
