package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable means there is no uploaded file and no default
	// source to fall back on. Rendering must stop.
	ErrSourceUnavailable = errors.New("no dataset source available")
	// ErrUnsupportedFormat is matched by every UnsupportedFormatError.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyAggregation is returned when the category × segment pivot has
	// no rows or no columns.
	ErrEmptyAggregation = errors.New("no data available for aggregation")

	ErrInvalidDateRange   = errors.New("start date is after end date")
	ErrInvalidProfitRange = errors.New("minimum profit is greater than maximum profit")
)

// SourceUnavailableError records where the default source was looked up.
type SourceUnavailableError struct {
	Location string
}

func (e *SourceUnavailableError) Error() string {
	if e.Location == "" {
		return ErrSourceUnavailable.Error()
	}
	return fmt.Sprintf("%s: %s not found", ErrSourceUnavailable, e.Location)
}

func (e *SourceUnavailableError) Unwrap() error { return ErrSourceUnavailable }

// UnsupportedFormatError names the rejected file and its extension.
type UnsupportedFormatError struct {
	Name      string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("%s %s for %q: expected .csv, .xlsx or .xls", ErrUnsupportedFormat, ext, e.Name)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// EmptyAggregationError reports the shape of a pivot that cannot be charted.
type EmptyAggregationError struct {
	Rows    int
	Columns int
}

func (e *EmptyAggregationError) Error() string {
	return fmt.Sprintf("%s (rows=%d, columns=%d)", ErrEmptyAggregation, e.Rows, e.Columns)
}

func (e *EmptyAggregationError) Unwrap() error { return ErrEmptyAggregation }
