package yahoo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/piquette/finance-go"
	"github.com/shopspring/decimal"

	domrepo "StockCharts/internal/domain/repository"
)

type fakeSource struct {
	bars      []finance.ChartBar
	meta      finance.ChartMeta
	chartErr  error
	equity    *finance.Equity
	equityErr error
	block     chan struct{}
	slowQuote chan struct{}
}

func (f *fakeSource) Chart(string, time.Time, time.Time) ([]finance.ChartBar, finance.ChartMeta, error) {
	if f.block != nil {
		<-f.block
	}
	return f.bars, f.meta, f.chartErr
}

func (f *fakeSource) Equity(string) (*finance.Equity, error) {
	if f.slowQuote != nil {
		<-f.slowQuote
	}
	return f.equity, f.equityErr
}

func rawBar(day time.Time, hour int, o, h, l, c float64, v int) finance.ChartBar {
	ts := day.Add(time.Duration(hour) * time.Hour).Unix()
	return finance.ChartBar{
		Open:      decimal.NewFromFloat(o),
		High:      decimal.NewFromFloat(h),
		Low:       decimal.NewFromFloat(l),
		Close:     decimal.NewFromFloat(c),
		AdjClose:  decimal.NewFromFloat(c),
		Volume:    v,
		Timestamp: int(ts),
	}
}

var (
	d1 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	d3 = time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC) }

func TestConvertBars(t *testing.T) {
	raw := []finance.ChartBar{
		rawBar(d3, 14, 3, 4, 2, 3.5, 300),
		rawBar(d1, 14, 1.123456, 2, 0.5, 1.5, 100),
		{Timestamp: int(d2.Add(14 * time.Hour).Unix())}, // null bar
		rawBar(d2, 14, 2, 3, 1, 2.5, 200),
		rawBar(d2, 20, 2, 3, 1, 2.75, 250), // same day, later wins
	}

	bars := ConvertBars(raw, 4, 0)
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			t.Fatalf("bars not strictly ascending at %d", i)
		}
	}
	if !bars[0].Time.Equal(d1) {
		t.Fatalf("first bar day = %s, want %s", bars[0].Time, d1)
	}
	if bars[0].Open != 1.1235 {
		t.Fatalf("open not rounded: %v", bars[0].Open)
	}
	if bars[1].Close != 2.75 || bars[1].Volume != 250 {
		t.Fatalf("duplicate day resolved to %+v", bars[1])
	}
}

func TestConvertBars_ExchangeOffset(t *testing.T) {
	sunday := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	monday := sunday.AddDate(0, 0, 1)
	// ASX opens at 10:00 AEDT, which is 23:00 UTC the day before
	raw := []finance.ChartBar{rawBar(sunday, 23, 7.5, 7.6, 7.4, 7.55, 1000)}

	if bars := ConvertBars(raw, 4, 11*3600); len(bars) != 1 || !bars[0].Time.Equal(monday) {
		t.Fatalf("with offset got %+v, want one bar on %s", bars, monday)
	}
	if bars := ConvertBars(raw, 4, 0); len(bars) != 1 || !bars[0].Time.Equal(sunday) {
		t.Fatalf("without offset got %+v, want one bar on %s", bars, sunday)
	}
}

func TestProvider_FetchWithQuote(t *testing.T) {
	src := &fakeSource{
		bars: []finance.ChartBar{rawBar(d1, 14, 1, 2, 0.5, 1.5, 100), rawBar(d2, 14, 2, 3, 1, 2.5, 200)},
		meta: finance.ChartMeta{Currency: "USD", ExchangeName: "NMS"},
		equity: &finance.Equity{
			Quote:    finance.Quote{Symbol: "AAPL", ShortName: "Apple Inc.", FullExchangeName: "NasdaqGS"},
			LongName: "Apple Inc. Common Stock",
		},
	}
	p := NewProviderWithSource(src, Config{PricePlaces: 4, Clock: fixedClock}, nil)

	h, err := p.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if h.Len() != 2 {
		t.Fatalf("got %d bars", h.Len())
	}
	if h.Meta.ShortName != "Apple Inc." || h.Meta.Exchange != "NasdaqGS" || h.Meta.Currency != "USD" {
		t.Fatalf("unexpected meta %+v", h.Meta)
	}
	if h.Meta.LongName != "Apple Inc. Common Stock" {
		t.Fatalf("LongName = %q", h.Meta.LongName)
	}
	if !h.FetchedAt.Equal(fixedClock()) {
		t.Fatalf("FetchedAt = %s", h.FetchedAt)
	}
}

func TestProvider_FallbackMeta(t *testing.T) {
	src := &fakeSource{
		bars:      []finance.ChartBar{rawBar(d1, 14, 1, 2, 0.5, 1.5, 100)},
		equityErr: errors.New("unauthorized"),
	}
	p := NewProviderWithSource(src, Config{PricePlaces: -1, Clock: fixedClock}, nil)

	h, err := p.Fetch(context.Background(), "^DJI")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if h.Meta.Symbol != "^DJI" || h.Meta.ShortName != "^DJI" {
		t.Fatalf("fallback meta = %+v", h.Meta)
	}
}

func TestProvider_UsesChartOffset(t *testing.T) {
	sunday := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{
		bars: []finance.ChartBar{rawBar(sunday, 23, 7.5, 7.6, 7.4, 7.55, 1000)},
		meta: finance.ChartMeta{Currency: "AUD", ExchangeName: "ASX", Gmtoffset: 39600},
	}
	p := NewProviderWithSource(src, Config{PricePlaces: 4, Clock: fixedClock}, nil)

	h, err := p.Fetch(context.Background(), "BHP.AX")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := h.Bars[0].Time.Weekday(); got != time.Monday {
		t.Fatalf("bar weekday = %s, want Monday", got)
	}
}

func TestProvider_SlowQuoteFallsBack(t *testing.T) {
	src := &fakeSource{
		bars:      []finance.ChartBar{rawBar(d1, 14, 1, 2, 0.5, 1.5, 100)},
		meta:      finance.ChartMeta{Currency: "USD", ExchangeName: "NMS"},
		equity:    &finance.Equity{Quote: finance.Quote{ShortName: "Apple Inc."}},
		slowQuote: make(chan struct{}),
	}
	defer close(src.slowQuote)
	p := NewProviderWithSource(src, Config{Timeout: 100 * time.Millisecond, Clock: fixedClock}, nil)

	start := time.Now()
	h, err := p.Fetch(context.Background(), "AAPL")
	took := time.Since(start)
	if took > time.Second {
		t.Fatalf("Fetch waited %s on the quote call", took)
	}
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if h.Meta.ShortName != "AAPL" || h.Meta.Currency != "USD" || h.Len() != 1 {
		t.Fatalf("want fallback meta with chart bars, got %+v", h)
	}
}

func TestProvider_NotFound(t *testing.T) {
	tests := []struct {
		name string
		src  *fakeSource
	}{
		{"no bars", &fakeSource{}},
		{"only null bars", &fakeSource{bars: []finance.ChartBar{{Timestamp: int(d1.Unix())}}}},
		{"upstream says not found", &fakeSource{chartErr: errors.New("No data found, symbol may be delisted")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProviderWithSource(tt.src, Config{Clock: fixedClock}, nil)
			_, err := p.Fetch(context.Background(), "ZZZZ")
			if !errors.Is(err, domrepo.ErrNotFound) {
				t.Fatalf("got %v, want ErrNotFound", err)
			}
		})
	}
}

func TestProvider_UpstreamError(t *testing.T) {
	p := NewProviderWithSource(&fakeSource{chartErr: errors.New("connection reset")}, Config{Clock: fixedClock}, nil)
	_, err := p.Fetch(context.Background(), "AAPL")
	if err == nil || errors.Is(err, domrepo.ErrNotFound) {
		t.Fatalf("got %v, want a non-NotFound error", err)
	}
}

func TestProvider_ContextCancelled(t *testing.T) {
	src := &fakeSource{block: make(chan struct{})}
	defer close(src.block)
	p := NewProviderWithSource(src, Config{Clock: fixedClock}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Fetch(ctx, "AAPL"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}
