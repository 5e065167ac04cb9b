package aggregate

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesboard/internal/core"
)

func amt(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func view(records ...core.Record) core.FilteredView {
	return core.NewView(&core.Dataset{Header: core.RequiredColumns}, records)
}

func sampleView() core.FilteredView {
	return view(
		core.Record{OrderDate: core.NewDate(2024, 2, 3), Category: "Technology", Segment: "Corporate", Sales: amt("250"), Profit: amt("-40")},
		core.Record{OrderDate: core.NewDate(2023, 12, 31), Category: "Furniture", Segment: "Consumer", Sales: amt("100.10"), Profit: amt("10")},
		core.Record{OrderDate: core.NewDate(2024, 2, 20), Category: "Furniture", Segment: "Consumer", Sales: amt("40"), Profit: amt("5.5")},
		core.Record{OrderDate: core.NewDate(2024, 1, 5), Category: "Office Supplies", Segment: "Home Office", Sales: amt("9.90"), Profit: amt("1")},
		core.Record{OrderDate: core.NewDate(2024, 1, 9), Category: "Technology", Segment: "Consumer", Profit: amt("3")},
	)
}

func TestScalarMetrics(t *testing.T) {
	m := ScalarMetrics(sampleView())
	assert.Equal(t, 5, m.TotalOrders)
	assert.Equal(t, "400", m.TotalSales.String())
	assert.Equal(t, "-20.5", m.TotalProfit.String())
	// Four records carry a sales value.
	assert.Equal(t, "100", m.AvgOrderValue.String())
}

func TestScalarMetrics_EmptyViewGivesZero(t *testing.T) {
	m := ScalarMetrics(view())
	assert.True(t, m.TotalSales.IsZero())
	assert.True(t, m.AvgOrderValue.IsZero())
	assert.True(t, m.TotalProfit.IsZero())
	assert.Equal(t, 0, m.TotalOrders)
}

func TestMonthlySalesIsChronological(t *testing.T) {
	months := MonthlySales(sampleView())
	require.Len(t, months, 3)
	labels := []string{months[0].Label(), months[1].Label(), months[2].Label()}
	assert.Equal(t, []string{"2023-12", "2024-01", "2024-02"}, labels)
	assert.Equal(t, "290", months[2].Sales.String())
	assert.Equal(t, "9.9", months[1].Sales.String())
}

func TestMonthlySalesSumEqualsTotalSales(t *testing.T) {
	for _, v := range []core.FilteredView{sampleView(), view()} {
		sum := decimal.Zero
		for _, m := range MonthlySales(v) {
			sum = sum.Add(m.Sales)
		}
		assert.True(t, sum.Equal(ScalarMetrics(v).TotalSales), "sum %s", sum)
	}
}

func TestCategorySales(t *testing.T) {
	cats := CategorySales(sampleView())
	require.Len(t, cats, 3)
	assert.Equal(t, "Furniture", cats[0].Name)
	assert.Equal(t, "$140.10", cats[0].Label())
	assert.Equal(t, "Office Supplies", cats[1].Name)
	assert.Equal(t, "Technology", cats[2].Name)
	assert.Equal(t, "$250.00", cats[2].Label())

	assert.Empty(t, CategorySales(view()))
}

func TestCategorySegmentProfit(t *testing.T) {
	p, err := CategorySegmentProfit(sampleView())
	require.NoError(t, err)
	assert.Equal(t, []string{"Furniture", "Office Supplies", "Technology"}, p.Rows)
	assert.Equal(t, []string{"Consumer", "Corporate", "Home Office"}, p.Columns)

	assert.Equal(t, "15.5", p.Value(0, 0).String())
	assert.False(t, p.Cells[0][1].Valid, "Furniture/Corporate has no record")
	assert.True(t, p.Value(0, 1).IsZero())
	assert.Equal(t, "-40", p.Value(2, 1).String())
	assert.Equal(t, "3", p.Value(2, 0).String())
}

func TestCategorySegmentProfit_NoSegments(t *testing.T) {
	v := view(
		core.Record{OrderDate: core.NewDate(2024, 1, 1), Category: "Furniture", Sales: amt("1"), Profit: amt("1")},
		core.Record{OrderDate: core.NewDate(2024, 1, 2), Category: "Technology", Sales: amt("2"), Profit: amt("2")},
	)
	_, err := CategorySegmentProfit(v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrEmptyAggregation))

	// Records without a segment never reach the pivot, so no category row
	// survives either.
	var eae *core.EmptyAggregationError
	require.ErrorAs(t, err, &eae)
	assert.Equal(t, 0, eae.Rows)
	assert.Equal(t, 0, eae.Columns)
}

func TestCategorySegmentProfit_EmptyView(t *testing.T) {
	_, err := CategorySegmentProfit(view())
	assert.ErrorIs(t, err, core.ErrEmptyAggregation)
}
