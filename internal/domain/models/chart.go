package models

import (
	"sort"
	"strings"
	"time"
)

// Indicator names a technical indicator that can be overlaid on a chart.
type Indicator string

const (
	IndicatorMovingAverage Indicator = "moving_average"
	IndicatorBollinger     Indicator = "bollinger_bands"
	IndicatorRSI           Indicator = "rsi"
	IndicatorMACD          Indicator = "macd"
)

// AllIndicators lists every supported indicator in display order.
var AllIndicators = []Indicator{
	IndicatorMovingAverage,
	IndicatorBollinger,
	IndicatorRSI,
	IndicatorMACD,
}

// NoIndicators is the request token for an explicitly empty set.
const NoIndicators = "none"

func (i Indicator) order() int {
	for n, known := range AllIndicators {
		if known == i {
			return n
		}
	}
	return len(AllIndicators)
}

// ParseIndicator accepts a canonical indicator name, case-insensitively.
func ParseIndicator(s string) (Indicator, error) {
	name := Indicator(strings.ToLower(strings.TrimSpace(s)))
	if name.order() == len(AllIndicators) {
		return "", NewChartError(KindUnsupportedIndicator, "unsupported indicator %q", s)
	}
	return name, nil
}

// IndicatorSet is the set of indicators enabled for one request.
type IndicatorSet map[Indicator]struct{}

// NewIndicatorSet builds a set from the given indicators.
func NewIndicatorSet(indicators ...Indicator) IndicatorSet {
	set := make(IndicatorSet, len(indicators))
	for _, i := range indicators {
		set[i] = struct{}{}
	}
	return set
}

// AllIndicatorSet enables every indicator.
func AllIndicatorSet() IndicatorSet {
	return NewIndicatorSet(AllIndicators...)
}

// ParseIndicatorSet parses a comma separated list. "none" yields an empty
// set; any unknown name fails with an UnsupportedIndicator error.
func ParseIndicatorSet(raw string) (IndicatorSet, error) {
	if strings.EqualFold(strings.TrimSpace(raw), NoIndicators) {
		return IndicatorSet{}, nil
	}
	set := IndicatorSet{}
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		ind, err := ParseIndicator(part)
		if err != nil {
			return nil, err
		}
		set[ind] = struct{}{}
	}
	return set, nil
}

// Has reports whether the indicator is enabled.
func (s IndicatorSet) Has(i Indicator) bool {
	_, ok := s[i]
	return ok
}

// List returns the enabled indicators in display order.
func (s IndicatorSet) List() []Indicator {
	out := make([]Indicator, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].order() < out[b].order() })
	return out
}

// String joins the set for logging and cache keys.
func (s IndicatorSet) String() string {
	if len(s) == 0 {
		return NoIndicators
	}
	names := make([]string, 0, len(s))
	for _, i := range s.List() {
		names = append(names, string(i))
	}
	return strings.Join(names, ",")
}

// Point is one value of an indicator line.
type Point struct {
	Time  time.Time `json:"t"`
	Value float64   `json:"v"`
}

// Line is a named derived series aligned with the chart window.
type Line struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// IndicatorSeries groups the lines of one indicator, e.g. the three
// Bollinger bands. No lines means there was nothing to plot.
type IndicatorSeries struct {
	Indicator Indicator          `json:"indicator"`
	Params    map[string]float64 `json:"params,omitempty"`
	Lines     []Line             `json:"lines"`
}

// Line returns the line with the given name.
func (s IndicatorSeries) Line(name string) (Line, bool) {
	for _, l := range s.Lines {
		if l.Name == name {
			return l, true
		}
	}
	return Line{}, false
}

// Empty reports whether the indicator produced no values.
func (s IndicatorSeries) Empty() bool {
	for _, l := range s.Lines {
		if len(l.Points) > 0 {
			return false
		}
	}
	return true
}

// AxisHints are the numeric layout hints a renderer needs for the window.
type AxisHints struct {
	PriceMin        float64   `json:"price_min"`
	PriceMax        float64   `json:"price_max"`
	VolumeMax       float64   `json:"volume_max"`
	VolumeDirection []string  `json:"volume_direction"`
	RSILevels       []float64 `json:"rsi_levels,omitempty"`
}

// ChartBundle is the result of one chart request.
type ChartBundle struct {
	Symbol      string                        `json:"symbol"`
	Meta        SymbolMeta                    `json:"meta"`
	Range       string                        `json:"range"`
	Lookback    int                           `json:"lookback"`
	Scope       string                        `json:"scope"`
	Window      []Bar                         `json:"window"`
	Indicators  map[Indicator]IndicatorSeries `json:"indicators"`
	Axes        *AxisHints                    `json:"axes,omitempty"`
	GeneratedAt time.Time                     `json:"generated_at"`
}

// ChartEvent is published after a chart was built.
type ChartEvent struct {
	Symbol      string    `json:"symbol"`
	Range       string    `json:"range"`
	Scope       string    `json:"scope"`
	Indicators  []string  `json:"indicators"`
	Bars        int       `json:"bars"`
	LastClose   float64   `json:"last_close"`
	DurationMs  int64     `json:"duration_ms"`
	GeneratedAt time.Time `json:"generated_at"`
}
