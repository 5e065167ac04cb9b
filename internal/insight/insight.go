// Package insight turns scalar metrics into advisory messages.
package insight

import (
	"github.com/shopspring/decimal"

	"salesboard/internal/core"
)

// Level sets how an advisory is displayed.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Advisory is a rule-triggered recommendation.
type Advisory struct {
	Rule    string `json:"rule"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Rule fires its advisory when Match holds for the metrics.
type Rule struct {
	Name    string
	Level   Level
	Message string
	Match   func(core.Metrics) bool
}

var (
	strongSalesThreshold = decimal.NewFromInt(100000)
	weakSalesThreshold   = decimal.NewFromInt(50000)
	highAvgOrderValue    = decimal.NewFromInt(500)
)

// DefaultRules are evaluated in this order.
var DefaultRules = []Rule{
	{
		Name:    "strong_sales",
		Level:   LevelSuccess,
		Message: "Sales performance is strong! Consider expanding product lines.",
		Match:   func(m core.Metrics) bool { return m.TotalSales.GreaterThan(strongSalesThreshold) },
	},
	{
		Name:    "weak_sales",
		Level:   LevelWarning,
		Message: "Sales are lower than expected. Consider revising pricing strategies.",
		Match:   func(m core.Metrics) bool { return m.TotalSales.LessThan(weakSalesThreshold) },
	},
	{
		Name:    "high_order_value",
		Level:   LevelInfo,
		Message: "High average order value detected. Consider loyalty programs.",
		Match:   func(m core.Metrics) bool { return m.AvgOrderValue.GreaterThan(highAvgOrderValue) },
	},
}

// Evaluate runs DefaultRules against m.
func Evaluate(m core.Metrics) []Advisory {
	return EvaluateRules(DefaultRules, m)
}

// EvaluateRules returns the advisory of every matching rule, in rule order.
// Rules are independent: a match never suppresses a later rule.
func EvaluateRules(rules []Rule, m core.Metrics) []Advisory {
	out := []Advisory{}
	for _, r := range rules {
		if r.Match != nil && r.Match(m) {
			out = append(out, Advisory{Rule: r.Name, Level: r.Level, Message: r.Message})
		}
	}
	return out
}
