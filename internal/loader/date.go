package loader

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"salesboard/internal/core"
)

// Month-first layouts come before day-first ones, so "03/04/2016" is read
// as March 4th.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"01-02-06",
	"1/2/06",
	"01-02-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"02.01.2006",
}

// Excel serial day numbers accepted by the numeric fallback: 1900-01-01
// through 9999-12-31. Only whole days are accepted, so text such as
// "2016.11" never reads as a serial.
const (
	minSerial = 1
	maxSerial = 2958465
)

// ParseDate reads a calendar date from a cell. Values that match no known
// layout yield the zero Date.
func ParseDate(s string) core.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t)
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && f >= minSerial && f <= maxSerial {
		if t, err := excelize.ExcelDateToTime(f, false); err == nil {
			return core.DateOf(t)
		}
	}
	return core.Date{}
}
