package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

type (
	// DateRange is inclusive on both ends. A missing Start or End leaves
	// that side open.
	DateRange struct {
		Start Date
		End   Date
	}

	// ProfitRange is inclusive on both ends. An invalid Min or Max leaves
	// that side open.
	ProfitRange struct {
		Min decimal.NullDecimal
		Max decimal.NullDecimal
	}

	// FilterCriteria holds the active filters. Empty Categories or Segments
	// accept every value of that dimension.
	FilterCriteria struct {
		Dates      DateRange
		Categories []string
		Segments   []string
		Profit     ProfitRange
	}
)

// Inverted reports whether Start is after End.
func (r DateRange) Inverted() bool {
	return !r.Start.IsEmpty() && !r.End.IsEmpty() && r.Start.After(r.End.Time)
}

// Contains reports whether d lies within the range. Missing dates never do.
func (r DateRange) Contains(d Date) bool {
	if d.IsEmpty() {
		return false
	}
	if !r.Start.IsEmpty() && d.Before(r.Start.Time) {
		return false
	}
	if !r.End.IsEmpty() && d.After(r.End.Time) {
		return false
	}
	return true
}

// Inverted reports whether Min is greater than Max.
func (r ProfitRange) Inverted() bool {
	return r.Min.Valid && r.Max.Valid && r.Min.Decimal.GreaterThan(r.Max.Decimal)
}

// Contains reports whether p lies within the range. Missing amounts never do.
func (r ProfitRange) Contains(p decimal.NullDecimal) bool {
	if !p.Valid {
		return false
	}
	if r.Min.Valid && p.Decimal.LessThan(r.Min.Decimal) {
		return false
	}
	if r.Max.Valid && p.Decimal.GreaterThan(r.Max.Decimal) {
		return false
	}
	return true
}

// Validate reports inverted ranges. It never reorders bounds: an inverted
// range simply selects nothing.
func (c FilterCriteria) Validate() error {
	var errs []error
	if c.Dates.Inverted() {
		errs = append(errs, ErrInvalidDateRange)
	}
	if c.Profit.Inverted() {
		errs = append(errs, ErrInvalidProfitRange)
	}
	return errors.Join(errs...)
}
