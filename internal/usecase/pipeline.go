package usecase

import (
	"fmt"
	"time"

	"StockCharts/internal/domain/models"
	"StockCharts/internal/services/indicators"
	"StockCharts/internal/services/timerange"
)

// ComputeScope selects which bars the indicators are computed over.
type ComputeScope string

const (
	// ScopeWindow computes over the displayed window only, so warm-up is
	// visible at its left edge.
	ScopeWindow ComputeScope = "window"
	// ScopeHistory computes over the full history and slices the result to
	// the window.
	ScopeHistory ComputeScope = "history"
)

// ParseComputeScope maps a config or request value to a scope. Empty means
// the fallback.
func ParseComputeScope(s string, fallback ComputeScope) (ComputeScope, error) {
	switch ComputeScope(s) {
	case "":
		return fallback, nil
	case ScopeWindow, ScopeHistory:
		return ComputeScope(s), nil
	default:
		return "", fmt.Errorf("unknown compute scope %q", s)
	}
}

// Pipeline turns a history, a range and an indicator set into a chart
// bundle. It holds configuration only and is safe for concurrent use.
type Pipeline struct {
	params indicators.Params
	axes   AxisConfig
	scope  ComputeScope
}

func NewPipeline(params indicators.Params, axes AxisConfig, scope ComputeScope) *Pipeline {
	if scope == "" {
		scope = ScopeWindow
	}
	return &Pipeline{params: params, axes: axes, scope: scope}
}

// Params returns the indicator parameters in use.
func (p *Pipeline) Params() indicators.Params { return p.params }

// Scope returns the default compute scope.
func (p *Pipeline) Scope() ComputeScope { return p.scope }

// Build uses the pipeline's default compute scope.
func (p *Pipeline) Build(history *models.History, selector string, today time.Time, enabled models.IndicatorSet) (*models.ChartBundle, error) {
	return p.BuildWithScope(history, selector, today, enabled, p.scope)
}

// BuildWithScope slices the history to the resolved range and computes the
// enabled indicators. The history is only read.
func (p *Pipeline) BuildWithScope(history *models.History, selector string, today time.Time, enabled models.IndicatorSet, scope ComputeScope) (*models.ChartBundle, error) {
	var meta models.SymbolMeta
	if history != nil {
		meta = history.Meta
	}
	if history.Len() == 0 {
		return nil, models.NewChartError(models.KindNoData, "no price history available for %s", meta.Symbol)
	}

	lookback := timerange.Resolve(selector, today)
	bars := history.Bars
	start := lookback.StartIndex(len(bars))

	window := make([]models.Bar, len(bars)-start)
	copy(window, bars[start:])
	if len(window) == 0 {
		return nil, models.NewChartError(models.KindEmptyRange, "range %q selects no bars for %s", selector, meta.Symbol)
	}

	// source is what indicators see; offset is where the window starts in it
	source, offset := window, 0
	if scope == ScopeHistory {
		source, offset = bars, start
	}
	closes := indicators.Closes(source)

	out := make(map[models.Indicator]models.IndicatorSeries, len(enabled))
	for _, ind := range enabled.List() {
		series, err := p.compute(ind, closes, window, offset)
		if err != nil {
			return nil, err
		}
		out[ind] = series
	}

	sel := timerange.Normalize(selector)
	return &models.ChartBundle{
		Symbol:      meta.Symbol,
		Meta:        meta,
		Range:       sel,
		Lookback:    int(lookback),
		Scope:       string(scope),
		Window:      window,
		Indicators:  out,
		Axes:        p.axes.Hints(window, enabled.Has(models.IndicatorRSI)),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (p *Pipeline) compute(ind models.Indicator, closes []float64, window []models.Bar, offset int) (models.IndicatorSeries, error) {
	series := models.IndicatorSeries{Indicator: ind, Params: map[string]float64{}}
	line := func(name string, values []float64) {
		if pts := alignPoints(values, window, offset); pts != nil {
			series.Lines = append(series.Lines, models.Line{Name: name, Points: pts})
		}
	}

	switch ind {
	case models.IndicatorMovingAverage:
		for _, n := range p.params.MAPeriods {
			name := maName(n)
			series.Params[name] = float64(n)
			line(name, indicators.MovingAverage(closes, n))
		}
	case models.IndicatorBollinger:
		series.Params["period"] = float64(p.params.BollingerPeriod)
		series.Params["k"] = p.params.BollingerK
		b := indicators.Bollinger(closes, p.params.BollingerPeriod, p.params.BollingerK)
		line("upper", b.Upper)
		line("middle", b.Middle)
		line("lower", b.Lower)
	case models.IndicatorRSI:
		series.Params["period"] = float64(p.params.RSIPeriod)
		line("rsi", indicators.RSI(closes, p.params.RSIPeriod))
	case models.IndicatorMACD:
		series.Params["fast"] = float64(p.params.MACDFast)
		series.Params["slow"] = float64(p.params.MACDSlow)
		series.Params["signal"] = float64(p.params.MACDSignal)
		m := indicators.MACD(closes, p.params.MACDFast, p.params.MACDSlow, p.params.MACDSignal)
		line("macd", m.MACD)
		line("signal", m.Signal)
		line("histogram", m.Histogram)
	default:
		return series, models.NewChartError(models.KindUnsupportedIndicator, "unsupported indicator %q", ind)
	}
	if series.Lines == nil {
		series.Lines = []models.Line{}
	}
	return series, nil
}

// alignPoints pairs values[offset:] with the window timestamps. Returns nil
// when there is nothing to plot.
func alignPoints(values []float64, window []models.Bar, offset int) []models.Point {
	if len(values) == 0 || len(values)-offset != len(window) {
		return nil
	}
	pts := make([]models.Point, len(window))
	for i, b := range window {
		pts[i] = models.Point{Time: b.Time, Value: values[offset+i]}
	}
	return pts
}

func maName(period int) string { return fmt.Sprintf("ma%d", period) }
