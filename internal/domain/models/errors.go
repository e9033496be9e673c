package models

import "fmt"

// ErrorKind tags the recoverable failures of a chart request.
type ErrorKind string

const (
	KindInvalidSymbol        ErrorKind = "invalid_symbol"
	KindNoData               ErrorKind = "no_data"
	KindEmptyRange           ErrorKind = "empty_range"
	KindUnsupportedIndicator ErrorKind = "unsupported_indicator"
	KindInvalidParameter     ErrorKind = "invalid_parameter"
)

// ChartError is returned for every per-request failure. Reason is meant to
// be shown to the user in place of the chart.
type ChartError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *ChartError) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return e.Reason
}

func (e *ChartError) Unwrap() error { return e.Err }

// Is matches any ChartError of the same kind, so the sentinels below work
// with errors.Is.
func (e *ChartError) Is(target error) bool {
	t, ok := target.(*ChartError)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidSymbol        = &ChartError{Kind: KindInvalidSymbol}
	ErrNoData               = &ChartError{Kind: KindNoData}
	ErrEmptyRange           = &ChartError{Kind: KindEmptyRange}
	ErrUnsupportedIndicator = &ChartError{Kind: KindUnsupportedIndicator}
	ErrInvalidParameter     = &ChartError{Kind: KindInvalidParameter}
)

// NewChartError builds a ChartError with a formatted reason.
func NewChartError(kind ErrorKind, format string, args ...interface{}) *ChartError {
	return &ChartError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// WrapChartError attaches the underlying cause.
func WrapChartError(kind ErrorKind, err error, format string, args ...interface{}) *ChartError {
	return &ChartError{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}
