package filter

// Criteria travel as URL query values between the page, the export links
// and the command-line tool. Malformed values are dropped and reported back
// so the caller can say what was ignored.

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salesboard/internal/core"
)

// Query parameter names shared by the filter form, the report endpoints,
// the export links and the command-line flags.
const (
	ParamStart     = "start"
	ParamEnd       = "end"
	ParamCategory  = "category"
	ParamSegment   = "segment"
	ParamProfitMin = "profit_min"
	ParamProfitMax = "profit_max"
)

const queryDateLayout = "2006-01-02"

// ParseQuery reads filter criteria from query values. Dates are
// YYYY-MM-DD; categories and segments may repeat. Each value that cannot be
// parsed leaves its bound unset and adds a message to ignored.
func ParseQuery(q url.Values) (c core.FilterCriteria, ignored []string) {
	parseDate := func(key, label string) core.Date {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return core.Date{}
		}
		t, err := time.Parse(queryDateLayout, v)
		if err != nil {
			ignored = append(ignored, fmt.Sprintf("Ignored invalid %s %q.", label, v))
			return core.Date{}
		}
		return core.DateOf(t)
	}
	parseAmount := func(key, label string) decimal.NullDecimal {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return decimal.NullDecimal{}
		}
		a := core.ParseAmount(v)
		if !a.Valid {
			ignored = append(ignored, fmt.Sprintf("Ignored invalid %s %q.", label, v))
		}
		return a
	}

	c.Dates.Start = parseDate(ParamStart, "start date")
	c.Dates.End = parseDate(ParamEnd, "end date")
	c.Categories = cleanValues(q[ParamCategory])
	c.Segments = cleanValues(q[ParamSegment])
	c.Profit.Min = parseAmount(ParamProfitMin, "minimum profit")
	c.Profit.Max = parseAmount(ParamProfitMax, "maximum profit")
	return c, ignored
}

// EncodeQuery is the inverse of ParseQuery for the bounds that are set.
func EncodeQuery(c core.FilterCriteria) url.Values {
	q := url.Values{}
	if !c.Dates.Start.IsEmpty() {
		q.Set(ParamStart, c.Dates.Start.String())
	}
	if !c.Dates.End.IsEmpty() {
		q.Set(ParamEnd, c.Dates.End.String())
	}
	for _, v := range c.Categories {
		q.Add(ParamCategory, v)
	}
	for _, v := range c.Segments {
		q.Add(ParamSegment, v)
	}
	if c.Profit.Min.Valid {
		q.Set(ParamProfitMin, c.Profit.Min.Decimal.String())
	}
	if c.Profit.Max.Valid {
		q.Set(ParamProfitMax, c.Profit.Max.Decimal.String())
	}
	return q
}

func cleanValues(values []string) []string {
	var out []string
	for _, v := range values {
		if v = sanitizeInput(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
