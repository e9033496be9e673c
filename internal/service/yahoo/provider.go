package yahoo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"

	"StockCharts/internal/domain/models"
	domrepo "StockCharts/internal/domain/repository"
	xlogger "StockCharts/pkg/logger"
	xutil "StockCharts/pkg/util"
)

// Source is the raw Yahoo Finance surface the provider needs.
type Source interface {
	Chart(symbol string, start, end time.Time) ([]finance.ChartBar, finance.ChartMeta, error)
	Equity(symbol string) (*finance.Equity, error)
}

// financeSource calls Yahoo through finance-go.
type financeSource struct{}

func (financeSource) Chart(symbol string, start, end time.Time) ([]finance.ChartBar, finance.ChartMeta, error) {
	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var bars []finance.ChartBar
	for iter.Next() {
		bars = append(bars, *iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, finance.ChartMeta{}, err
	}
	return bars, iter.Meta(), nil
}

// Equity returns the quote plus the long name. Non equity instruments
// decode into the same shape with the equity-only fields left empty.
func (financeSource) Equity(symbol string) (*finance.Equity, error) {
	return equity.Get(symbol)
}

// Config controls the history window requested from Yahoo.
type Config struct {
	// HistoryStart is the first day requested. Zero means the earliest
	// date Yahoo accepts.
	HistoryStart time.Time
	// PricePlaces rounds prices to this many decimal places. Negative
	// disables rounding.
	PricePlaces int32
	// Timeout bounds one upstream call. Zero relies on the caller's context.
	Timeout time.Duration
	Clock   func() time.Time
}

// Provider fetches daily history and quote metadata from Yahoo Finance.
type Provider struct {
	src    Source
	cfg    Config
	logger *xlogger.Logger
}

var earliest = time.Date(1970, time.January, 2, 0, 0, 0, 0, time.UTC)

// NewProvider creates a provider backed by finance-go.
func NewProvider(cfg Config, logger *xlogger.Logger) *Provider {
	return NewProviderWithSource(financeSource{}, cfg, logger)
}

// NewProviderWithSource creates a provider over a custom source.
func NewProviderWithSource(src Source, cfg Config, logger *xlogger.Logger) *Provider {
	if cfg.HistoryStart.IsZero() {
		cfg.HistoryStart = earliest
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Provider{src: src, cfg: cfg, logger: logger}
}

func (p *Provider) Name() string { return "yahoo" }

type chartResult struct {
	bars []finance.ChartBar
	meta finance.ChartMeta
	err  error
}

type equityResult struct {
	eq  *finance.Equity
	err error
}

// Fetch returns the full daily history of symbol. finance-go has no context
// support, so cancellation abandons the call rather than aborting it.
func (p *Provider) Fetch(ctx context.Context, symbol string) (*models.History, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	now := p.cfg.Clock()
	end := now.AddDate(0, 0, 1)

	ch := make(chan chartResult, 1)
	go func() {
		bars, meta, err := p.src.Chart(symbol, p.cfg.HistoryStart, end)
		ch <- chartResult{bars: bars, meta: meta, err: err}
	}()

	var res chartResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.err != nil {
		if isNotFound(res.err) {
			return nil, fmt.Errorf("yahoo chart %s: %w", symbol, domrepo.ErrNotFound)
		}
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, res.err)
	}

	bars := ConvertBars(res.bars, p.cfg.PricePlaces, res.meta.Gmtoffset)
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo chart %s returned no bars: %w", symbol, domrepo.ErrNotFound)
	}

	return &models.History{
		Meta:      p.meta(ctx, symbol, res.meta),
		Bars:      bars,
		FetchedAt: now.UTC(),
	}, nil
}

// meta decorates the chart metadata with the equity quote. The quote call
// shares the fetch deadline; when it fails or runs out of time the chart
// still succeeds with fallback names.
func (p *Provider) meta(ctx context.Context, symbol string, cm finance.ChartMeta) models.SymbolMeta {
	meta := models.FallbackMeta(symbol)
	meta.Currency = cm.Currency
	meta.Exchange = cm.ExchangeName

	ch := make(chan equityResult, 1)
	go func() {
		eq, err := p.src.Equity(symbol)
		ch <- equityResult{eq: eq, err: err}
	}()

	var res equityResult
	select {
	case <-ctx.Done():
		res.err = ctx.Err()
	case res = <-ch:
	}
	if res.err != nil || res.eq == nil {
		if p.logger != nil {
			fields := []xlogger.Field{xlogger.String("symbol", symbol)}
			if res.err != nil {
				fields = append(fields, xlogger.Error(res.err))
			}
			p.logger.Warn("yahoo quote unavailable, using fallback metadata", fields...)
		}
		return meta
	}

	eq := res.eq
	if eq.Symbol != "" {
		meta.Symbol = eq.Symbol
	}
	if eq.ShortName != "" {
		meta.ShortName = eq.ShortName
	}
	meta.LongName = eq.LongName
	if eq.FullExchangeName != "" {
		meta.Exchange = eq.FullExchangeName
	}
	if eq.CurrencyID != "" {
		meta.Currency = eq.CurrencyID
	}
	return meta
}

// ConvertBars turns Yahoo decimal bars into daily float bars: sorted by day,
// one bar per day (the later one wins), bars with missing prices skipped.
// gmtOffset is the exchange offset in seconds from the chart metadata. Days
// are taken from the exchange's local date, so a Sydney session stamped
// 23:00 UTC on Sunday lands on Monday.
func ConvertBars(raw []finance.ChartBar, places int32, gmtOffset int) []models.Bar {
	byDay := make(map[time.Time]models.Bar, len(raw))
	for _, rb := range raw {
		if !rb.Close.IsPositive() || !rb.Open.IsPositive() || !rb.High.IsPositive() || !rb.Low.IsPositive() {
			continue
		}
		day := xutil.DayOf(time.Unix(int64(rb.Timestamp)+int64(gmtOffset), 0))
		vol := int64(rb.Volume)
		if vol < 0 {
			vol = 0
		}
		byDay[day] = models.Bar{
			Time:   day,
			Open:   price(rb.Open, places),
			High:   price(rb.High, places),
			Low:    price(rb.Low, places),
			Close:  price(rb.Close, places),
			Volume: vol,
		}
	}

	out := make([]models.Bar, 0, len(byDay))
	for _, b := range byDay {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func price(d decimal.Decimal, places int32) float64 {
	if places >= 0 {
		d = d.Round(places)
	}
	return d.InexactFloat64()
}

func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no data found") || strings.Contains(msg, "not found")
}
