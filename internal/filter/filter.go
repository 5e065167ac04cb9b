// Package filter derives FilteredViews from a Dataset.
package filter

import (
	"salesboard/internal/core"
)

// Apply returns the records of ds that satisfy every predicate in c, in
// their original order. ds is never modified.
//
// Records with a missing order date or missing profit never pass, since
// both ranges are always in force. An inverted range selects nothing. An
// empty category or segment set places no constraint on that dimension; a
// non-empty set rejects records whose value is missing.
func Apply(ds *core.Dataset, c core.FilterCriteria) core.FilteredView {
	if ds.Len() == 0 || c.Dates.Inverted() || c.Profit.Inverted() {
		return core.NewView(ds, []core.Record{})
	}
	cats := toSet(c.Categories)
	segs := toSet(c.Segments)

	out := make([]core.Record, 0, ds.Len())
	for _, r := range ds.Records {
		if !c.Dates.Contains(r.OrderDate) {
			continue
		}
		if cats != nil && !cats[r.Category] {
			continue
		}
		if segs != nil && !segs[r.Segment] {
			continue
		}
		if !c.Profit.Contains(r.Profit) {
			continue
		}
		out = append(out, r)
	}
	return core.NewView(ds, out)
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Options lists the choices offered by the filter widgets.
type Options struct {
	Categories []string
	Segments   []string
	Dates      core.DateRange
	Profit     core.ProfitRange
}

// OptionsFor collects the distinct non-empty categories and segments in
// first-seen order and the extents of order date and profit.
func OptionsFor(ds *core.Dataset) Options {
	var opts Options
	if ds.Len() == 0 {
		return opts
	}
	seenCat := map[string]bool{}
	seenSeg := map[string]bool{}
	for _, r := range ds.Records {
		if r.Category != "" && !seenCat[r.Category] {
			seenCat[r.Category] = true
			opts.Categories = append(opts.Categories, r.Category)
		}
		if r.Segment != "" && !seenSeg[r.Segment] {
			seenSeg[r.Segment] = true
			opts.Segments = append(opts.Segments, r.Segment)
		}
		if d := r.OrderDate; !d.IsEmpty() {
			if opts.Dates.Start.IsEmpty() || d.Before(opts.Dates.Start.Time) {
				opts.Dates.Start = d
			}
			if opts.Dates.End.IsEmpty() || d.After(opts.Dates.End.Time) {
				opts.Dates.End = d
			}
		}
		if p := r.Profit; p.Valid {
			if !opts.Profit.Min.Valid || p.Decimal.LessThan(opts.Profit.Min.Decimal) {
				opts.Profit.Min = p
			}
			if !opts.Profit.Max.Valid || p.Decimal.GreaterThan(opts.Profit.Max.Decimal) {
				opts.Profit.Max = p
			}
		}
	}
	return opts
}

// Defaults returns criteria spanning the full extent of ds with no
// category or segment constraint. Applying them keeps every record that has
// both an order date and a profit.
func Defaults(ds *core.Dataset) core.FilterCriteria {
	opts := OptionsFor(ds)
	return core.FilterCriteria{Dates: opts.Dates, Profit: opts.Profit}
}

// Merge fills the unset bounds of c from the dataset extent.
func Merge(ds *core.Dataset, c core.FilterCriteria) core.FilterCriteria {
	d := Defaults(ds)
	if c.Dates.Start.IsEmpty() {
		c.Dates.Start = d.Dates.Start
	}
	if c.Dates.End.IsEmpty() {
		c.Dates.End = d.Dates.End
	}
	if !c.Profit.Min.Valid {
		c.Profit.Min = d.Profit.Min
	}
	if !c.Profit.Max.Valid {
		c.Profit.Max = d.Profit.Max
	}
	return c
}
