package models

// Requests and payloads for the chart HTTP endpoints.

type ChartRequest struct {
	Symbol     string `param:"symbol" json:"symbol" validate:"required,max=20"`
	// Range and Indicators stay empty when omitted; the use case applies
	// the configured range and enables every indicator.
	Range      string `query:"range" json:"range" validate:"max=32"`
	Indicators string `query:"indicators" json:"indicators" validate:"max=128"`
	Scope      string `query:"scope" json:"scope" validate:"omitempty,oneof=window history"`
	Today      string `query:"today" json:"today" validate:"omitempty,datetime=2006-01-02"`
}

type InvalidateRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=20"`
}

type RangesRequest struct {
	Today string `query:"today" json:"today" validate:"omitempty,datetime=2006-01-02"`
}

// RangeInfo describes one time range selector as resolved for a given day.
type RangeInfo struct {
	Selector  string `json:"selector"`
	Lookback  int    `json:"lookback"`
	Unbounded bool   `json:"unbounded"`
}

// IndicatorInfo describes a supported indicator and its parameters.
type IndicatorInfo struct {
	Name   Indicator          `json:"name"`
	Lines  []string           `json:"lines"`
	Params map[string]float64 `json:"params"`
}
