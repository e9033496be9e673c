// Package timerange turns a symbolic chart range into a trading-day lookback.
package timerange

import (
	"fmt"
	"strings"
	"time"
)

// Lookback is a count of trading days to show, or Unbounded.
type Lookback int

// Unbounded means the whole available history.
const Unbounded Lookback = -1

// IsUnbounded reports whether the lookback has no lower bound.
func (l Lookback) IsUnbounded() bool { return l == Unbounded }

// StartIndex maps the lookback onto a series of the given length. Unbounded,
// zero and lookbacks longer than the series all start at 0.
func (l Lookback) StartIndex(length int) int {
	n := int(l)
	if l.IsUnbounded() || n <= 0 || n > length {
		return 0
	}
	return length - n
}

type kind int

const (
	kindSpan kind = iota
	kindYTD
	kindMax
)

type entry struct {
	selector string
	kind     kind
	span     int // calendar days, kindSpan only
}

// Selector table in display order.
var table = []entry{
	{selector: "day", span: 2},
	{selector: "week", span: 5},
	{selector: "month", span: 30},
	{selector: "quarter", span: 90},
	{selector: "3 months", span: 90},
	{selector: "half year", span: 180},
	{selector: "6 months", span: 180},
	{selector: "1 year", span: 365},
	{selector: "year", span: 365},
	{selector: "2 years", span: 730},
	{selector: "5 years", span: 1826},
	{selector: "10 years", span: 3652},
	{selector: "year to date", kind: kindYTD},
	{selector: "ytd", kind: kindYTD},
	{selector: "max", kind: kindMax},
}

var bySelector = func() map[string]entry {
	m := make(map[string]entry, len(table))
	for _, e := range table {
		m[e.selector] = e
	}
	return m
}()

// DefaultSelector is used when a request names no range.
const DefaultSelector = "ytd"

// YTDStartDay is the day of January the year-to-date range starts on.
const YTDStartDay = 3

// Normalize trims and lowercases a selector.
func Normalize(selector string) string {
	return strings.ToLower(strings.TrimSpace(selector))
}

// Known reports whether the selector is in the table.
func Known(selector string) bool {
	_, ok := bySelector[Normalize(selector)]
	return ok
}

// Selectors lists the supported selectors in display order.
func Selectors() []string {
	out := make([]string, len(table))
	for i, e := range table {
		out[i] = e.selector
	}
	return out
}

// Resolve converts a selector into a lookback relative to today. Unknown
// selectors resolve to 0, which the caller treats as the full history.
func Resolve(selector string, today time.Time) Lookback {
	e, ok := bySelector[Normalize(selector)]
	if !ok {
		return 0
	}
	day := dateOf(today)
	switch e.kind {
	case kindMax:
		return Unbounded
	case kindYTD:
		start := time.Date(day.Year(), time.January, YTDStartDay, 0, 0, 0, 0, time.UTC)
		return Lookback(countWeekdays(start, day))
	default:
		return Lookback(weekdaysBack(day, e.span))
	}
}

// ValidateTable checks the selector table. A broken table is a startup
// failure, never a per-request one.
func ValidateTable() error {
	seen := make(map[string]bool, len(table))
	var hasYTD, hasMax bool
	for _, e := range table {
		if e.selector == "" || Normalize(e.selector) != e.selector {
			return fmt.Errorf("selector %q is not normalized", e.selector)
		}
		if seen[e.selector] {
			return fmt.Errorf("duplicate selector %q", e.selector)
		}
		seen[e.selector] = true
		switch e.kind {
		case kindSpan:
			if e.span <= 0 {
				return fmt.Errorf("selector %q has non-positive span %d", e.selector, e.span)
			}
		case kindYTD:
			hasYTD = true
		case kindMax:
			hasMax = true
		}
	}
	if !hasYTD || !hasMax {
		return fmt.Errorf("selector table must contain ytd and max")
	}
	if !seen[DefaultSelector] {
		return fmt.Errorf("default selector %q missing from table", DefaultSelector)
	}
	return nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// countWeekdays counts Monday to Friday dates in [from, to].
func countWeekdays(from, to time.Time) int {
	n := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if isWeekday(d) {
			n++
		}
	}
	return n
}

// weekdaysBack walks span calendar days back from today, today included.
func weekdaysBack(today time.Time, span int) int {
	n := 0
	d := today
	for ; span > 0; span-- {
		if isWeekday(d) {
			n++
		}
		d = d.AddDate(0, 0, -1)
	}
	return n
}
