package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"StockCharts/internal/domain/models"
	domrepo "StockCharts/internal/domain/repository"
	"StockCharts/internal/services/timerange"
	applogger "StockCharts/pkg/logger"
)

// Tickers like AAPL, ^DJI, BRK-B, EURUSD=X or 7203.T.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-=^]{0,19}$`)

// NormalizeSymbol trims and upper-cases a user supplied ticker and rejects
// anything that cannot be one.
func NormalizeSymbol(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", models.NewChartError(models.KindInvalidSymbol, "symbol is required")
	}
	if !symbolPattern.MatchString(s) {
		return "", models.NewChartError(models.KindInvalidSymbol, "%q is not a valid ticker symbol", raw)
	}
	return s, nil
}

// ChartsUseCase serves chart bundles for symbols.
type ChartsUseCase struct {
	provider  domrepo.HistoryProvider
	pipeline  *Pipeline
	publisher domrepo.EventPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	now       func() time.Time

	defaultRange string
}

// ChartsOption configures ChartsUseCase.
type ChartsOption func(*ChartsUseCase)

// WithDefaultRange sets the selector used when a request names none.
func WithDefaultRange(selector string) ChartsOption {
	return func(uc *ChartsUseCase) {
		if s := timerange.Normalize(selector); s != "" {
			uc.defaultRange = s
		}
	}
}

func NewChartsUseCase(provider domrepo.HistoryProvider, pipeline *Pipeline, publisher domrepo.EventPublisher, metrics domrepo.Metrics, l *applogger.Logger, opts ...ChartsOption) *ChartsUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	uc := &ChartsUseCase{
		provider:     provider,
		pipeline:     pipeline,
		publisher:    publisher,
		metrics:      metrics,
		l:            l,
		now:          time.Now,
		defaultRange: timerange.DefaultSelector,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type ChartParams struct {
	Symbol string
	// Range is a selector such as "ytd" or "6mo". Unknown selectors show the
	// whole history.
	Range string
	// Indicators is a comma separated list or "none". Empty enables all.
	Indicators string
	// Scope overrides the pipeline's compute scope when set.
	Scope string
	// Today anchors relative ranges; zero means now.
	Today time.Time
}

// GetChart fetches the symbol's history and builds the chart bundle.
// Failures are *models.ChartError except upstream and context errors.
func (uc *ChartsUseCase) GetChart(ctx context.Context, p ChartParams) (*models.ChartBundle, error) {
	start := uc.now()
	bundle, err := uc.getChart(ctx, p)
	if err != nil {
		uc.recordError(err)
		return nil, err
	}
	elapsed := uc.now().Sub(start)
	label := bundle.Range
	if !timerange.Known(label) {
		label = "other"
	}
	uc.metrics.RecordBuild(label, elapsed.Seconds())

	uc.l.Debug("chart built",
		applogger.String("symbol", bundle.Symbol),
		applogger.String("range", bundle.Range),
		applogger.Int("bars", len(bundle.Window)),
		applogger.Float64("last_close", lastClose(bundle.Window)),
		applogger.Duration("took_ms", elapsed),
	)
	uc.publish(ctx, bundle, elapsed)
	return bundle, nil
}

func lastClose(bars []models.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	return bars[len(bars)-1].Close
}

func (uc *ChartsUseCase) getChart(ctx context.Context, p ChartParams) (*models.ChartBundle, error) {
	symbol, err := NormalizeSymbol(p.Symbol)
	if err != nil {
		return nil, err
	}

	enabled := models.AllIndicatorSet()
	if strings.TrimSpace(p.Indicators) != "" {
		if enabled, err = models.ParseIndicatorSet(p.Indicators); err != nil {
			return nil, err
		}
	}

	scope, err := ParseComputeScope(p.Scope, uc.pipeline.Scope())
	if err != nil {
		return nil, models.WrapChartError(models.KindInvalidParameter, err, "unknown compute scope %q", p.Scope)
	}

	selector := p.Range
	if strings.TrimSpace(selector) == "" {
		selector = uc.defaultRange
	}
	if !timerange.Known(selector) {
		uc.l.Debug("unknown range selector, showing full history", applogger.String("range", selector))
	}

	history, err := uc.provider.Fetch(ctx, symbol)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return nil, models.WrapChartError(models.KindNoData, err, "no price history available for %s", symbol)
		}
		uc.l.Error("history fetch failed",
			applogger.String("symbol", symbol),
			applogger.String("provider", uc.provider.Name()),
			applogger.Error(err),
		)
		return nil, err
	}
	if history.Meta.Symbol == "" {
		h := *history
		h.Meta = models.FallbackMeta(symbol)
		history = &h
	}

	today := p.Today
	if today.IsZero() {
		today = uc.now()
	}
	return uc.pipeline.BuildWithScope(history, selector, today, enabled, scope)
}

func (uc *ChartsUseCase) recordError(err error) {
	var ce *models.ChartError
	switch {
	case errors.As(err, &ce):
		uc.metrics.RecordError(string(ce.Kind))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		uc.metrics.RecordError("timeout")
	default:
		uc.metrics.RecordError("upstream")
	}
}

func (uc *ChartsUseCase) publish(ctx context.Context, b *models.ChartBundle, elapsed time.Duration) {
	if uc.publisher == nil {
		return
	}
	names := make([]string, 0, len(b.Indicators))
	for _, ind := range models.AllIndicators {
		if _, ok := b.Indicators[ind]; ok {
			names = append(names, string(ind))
		}
	}
	ev := &models.ChartEvent{
		Symbol:      b.Symbol,
		Range:       b.Range,
		Scope:       b.Scope,
		Indicators:  names,
		Bars:        len(b.Window),
		LastClose:   lastClose(b.Window),
		DurationMs:  elapsed.Milliseconds(),
		GeneratedAt: b.GeneratedAt,
	}
	if err := uc.publisher.PublishChartEvent(ctx, ev); err != nil {
		uc.l.Warn("chart event publish failed", applogger.String("symbol", b.Symbol), applogger.Error(err))
	}
}

// Ranges lists every known selector with its lookback as of today.
func (uc *ChartsUseCase) Ranges(today time.Time) []models.RangeInfo {
	if today.IsZero() {
		today = uc.now()
	}
	sels := timerange.Selectors()
	out := make([]models.RangeInfo, 0, len(sels))
	for _, s := range sels {
		lb := timerange.Resolve(s, today)
		out = append(out, models.RangeInfo{Selector: s, Lookback: int(lb), Unbounded: lb.IsUnbounded()})
	}
	return out
}

// Indicators describes the supported indicators with the configured params.
func (uc *ChartsUseCase) Indicators() []models.IndicatorInfo {
	p := uc.pipeline.Params()
	maLines := make([]string, 0, len(p.MAPeriods))
	maParams := make(map[string]float64, len(p.MAPeriods))
	for _, n := range p.MAPeriods {
		name := maName(n)
		maLines = append(maLines, name)
		maParams[name] = float64(n)
	}
	return []models.IndicatorInfo{
		{Name: models.IndicatorMovingAverage, Lines: maLines, Params: maParams},
		{
			Name:   models.IndicatorBollinger,
			Lines:  []string{"upper", "middle", "lower"},
			Params: map[string]float64{"period": float64(p.BollingerPeriod), "k": p.BollingerK},
		},
		{
			Name:   models.IndicatorRSI,
			Lines:  []string{"rsi"},
			Params: map[string]float64{"period": float64(p.RSIPeriod)},
		},
		{
			Name:  models.IndicatorMACD,
			Lines: []string{"macd", "signal", "histogram"},
			Params: map[string]float64{
				"fast":   float64(p.MACDFast),
				"slow":   float64(p.MACDSlow),
				"signal": float64(p.MACDSignal),
			},
		},
	}
}

// Invalidate drops a cached history when the provider memoizes.
func (uc *ChartsUseCase) Invalidate(ctx context.Context, rawSymbol string) error {
	symbol, err := NormalizeSymbol(rawSymbol)
	if err != nil {
		return err
	}
	hc, ok := uc.provider.(domrepo.HistoryCache)
	if !ok {
		return nil
	}
	return hc.Invalidate(ctx, symbol)
}
