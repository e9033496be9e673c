package usecase

import (
	"errors"
	"math"
	"testing"
	"time"

	"StockCharts/internal/domain/models"
	"StockCharts/internal/services/indicators"
	"StockCharts/internal/services/timerange"
)

var testToday = time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)

func makeHistory(symbol string, n int, closeAt func(i int) float64) *models.History {
	bars := make([]models.Bar, n)
	day := testToday.AddDate(0, 0, -n)
	for i := range bars {
		c := closeAt(i)
		bars[i] = models.Bar{
			Time:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return &models.History{Meta: models.FallbackMeta(symbol), Bars: bars}
}

func constant(v float64) func(int) float64 { return func(int) float64 { return v } }

func ramp(i int) float64 { return float64(i + 1) }

func newTestPipeline() *Pipeline {
	return NewPipeline(indicators.DefaultParams(), DefaultAxisConfig(), ScopeWindow)
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func assertLine(t *testing.T, s models.IndicatorSeries, name string, want float64, n int) {
	t.Helper()
	line, ok := s.Line(name)
	if !ok {
		t.Fatalf("%s: line %q missing", s.Indicator, name)
	}
	if len(line.Points) != n {
		t.Fatalf("%s/%s: %d points, want %d", s.Indicator, name, len(line.Points), n)
	}
	for i, p := range line.Points {
		if !near(p.Value, want) {
			t.Fatalf("%s/%s[%d] = %v, want %v", s.Indicator, name, i, p.Value, want)
		}
	}
}

func TestPipeline_ConstantSeries(t *testing.T) {
	h := makeHistory("FLAT", 300, constant(100))
	b, err := newTestPipeline().Build(h, "month", testToday, models.AllIndicatorSet())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := int(timerange.Resolve("month", testToday))
	if len(b.Window) != want {
		t.Fatalf("window = %d bars, want %d", len(b.Window), want)
	}
	if !b.Window[len(b.Window)-1].Time.Equal(h.Bars[len(h.Bars)-1].Time) {
		t.Fatal("window must end at the last bar")
	}

	ma := b.Indicators[models.IndicatorMovingAverage]
	assertLine(t, ma, "ma20", 100, want)
	assertLine(t, ma, "ma50", 100, want)
	bb := b.Indicators[models.IndicatorBollinger]
	for _, name := range []string{"upper", "middle", "lower"} {
		assertLine(t, bb, name, 100, want)
	}
	assertLine(t, b.Indicators[models.IndicatorRSI], "rsi", 50, want)
	macd := b.Indicators[models.IndicatorMACD]
	for _, name := range []string{"macd", "signal", "histogram"} {
		assertLine(t, macd, name, 0, want)
	}
}

func TestPipeline_AxisHints(t *testing.T) {
	h := makeHistory("FLAT", 300, constant(100))
	h.Bars[len(h.Bars)-1].Open = 101 // last bar closes below its open

	b, err := newTestPipeline().Build(h, "month", testToday, models.NewIndicatorSet(models.IndicatorRSI))
	if err != nil {
		t.Fatal(err)
	}
	ax := b.Axes
	if !near(ax.PriceMin, 99-0.02) || !near(ax.PriceMax, 101+0.02) {
		t.Fatalf("price axis = [%v, %v]", ax.PriceMin, ax.PriceMax)
	}
	if math.Abs(ax.VolumeMax-12500) > 1e-6 {
		t.Fatalf("volume max = %v", ax.VolumeMax)
	}
	if ax.VolumeDirection[0] != "up" || ax.VolumeDirection[len(ax.VolumeDirection)-1] != "down" {
		t.Fatalf("directions = %v", ax.VolumeDirection)
	}
	if len(ax.RSILevels) != 3 || ax.RSILevels[0] != 70 || ax.RSILevels[2] != 30 {
		t.Fatalf("rsi levels = %v", ax.RSILevels)
	}

	b, err = newTestPipeline().Build(h, "month", testToday, models.NewIndicatorSet(models.IndicatorMACD))
	if err != nil {
		t.Fatal(err)
	}
	if b.Axes.RSILevels != nil {
		t.Fatal("rsi levels without rsi")
	}
}

func TestPipeline_EmptyHistory(t *testing.T) {
	p := newTestPipeline()
	for _, h := range []*models.History{nil, {Meta: models.FallbackMeta("X")}} {
		_, err := p.Build(h, "ytd", testToday, models.AllIndicatorSet())
		if !errors.Is(err, models.ErrNoData) {
			t.Fatalf("got %v, want NoData", err)
		}
	}
}

func TestPipeline_UnknownSelectorShowsEverything(t *testing.T) {
	h := makeHistory("AAPL", 120, ramp)
	b, err := newTestPipeline().Build(h, "fortnight", testToday, models.AllIndicatorSet())
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Window) != 120 || b.Lookback != 0 {
		t.Fatalf("window = %d lookback = %d", len(b.Window), b.Lookback)
	}
	if b.Range != "fortnight" {
		t.Fatalf("range = %q", b.Range)
	}
}

func TestPipeline_MaxAndLongLookback(t *testing.T) {
	h := makeHistory("AAPL", 40, ramp)
	for _, sel := range []string{"max", "10 years"} {
		b, err := newTestPipeline().Build(h, sel, testToday, models.IndicatorSet{})
		if err != nil {
			t.Fatal(err)
		}
		if len(b.Window) != 40 {
			t.Fatalf("%s: window = %d", sel, len(b.Window))
		}
	}
}

func TestPipeline_EmptyIndicatorSet(t *testing.T) {
	h := makeHistory("AAPL", 60, ramp)
	b, err := newTestPipeline().Build(h, "month", testToday, models.IndicatorSet{})
	if err != nil {
		t.Fatal(err)
	}
	if b.Indicators == nil || len(b.Indicators) != 0 {
		t.Fatalf("indicators = %v, want empty map", b.Indicators)
	}
	if len(b.Window) == 0 {
		t.Fatal("window should still be returned")
	}
}

func TestPipeline_SingleBarHasEmptyLines(t *testing.T) {
	h1 := makeHistory("ONE", 1, ramp)
	b, err := newTestPipeline().Build(h1, "max", testToday, models.AllIndicatorSet())
	if err != nil {
		t.Fatal(err)
	}
	for ind, s := range b.Indicators {
		if !s.Empty() {
			t.Fatalf("%s should have no lines on a single bar", ind)
		}
		if s.Lines == nil {
			t.Fatalf("%s lines should be an empty list", ind)
		}
	}
}

func TestPipeline_HistoryScope(t *testing.T) {
	h := makeHistory("AAPL", 300, ramp)
	set := models.NewIndicatorSet(models.IndicatorMovingAverage)
	p := newTestPipeline()

	win, err := p.Build(h, "month", testToday, set)
	if err != nil {
		t.Fatal(err)
	}
	full, err := p.BuildWithScope(h, "month", testToday, set, ScopeHistory)
	if err != nil {
		t.Fatal(err)
	}
	if full.Scope != "history" || win.Scope != "window" {
		t.Fatalf("scopes = %q, %q", win.Scope, full.Scope)
	}

	start := len(h.Bars) - len(win.Window)
	winMA, _ := win.Indicators[models.IndicatorMovingAverage].Line("ma20")
	fullMA, _ := full.Indicators[models.IndicatorMovingAverage].Line("ma20")

	// window scope warms up inside the window
	if !near(winMA.Points[0].Value, h.Bars[start].Close) {
		t.Fatalf("window ma20[0] = %v, want %v", winMA.Points[0].Value, h.Bars[start].Close)
	}
	// history scope sees the 19 bars before the window
	var sum float64
	for i := start - 19; i <= start; i++ {
		sum += h.Bars[i].Close
	}
	if !near(fullMA.Points[0].Value, sum/20) {
		t.Fatalf("history ma20[0] = %v, want %v", fullMA.Points[0].Value, sum/20)
	}
	if len(fullMA.Points) != len(full.Window) {
		t.Fatalf("history-scope line not sliced to window: %d vs %d", len(fullMA.Points), len(full.Window))
	}
	if !fullMA.Points[0].Time.Equal(full.Window[0].Time) {
		t.Fatal("points not aligned with window")
	}
}

func TestPipeline_DoesNotMutateHistory(t *testing.T) {
	h := makeHistory("AAPL", 100, ramp)
	before := append([]models.Bar(nil), h.Bars...)

	b, err := newTestPipeline().Build(h, "month", testToday, models.AllIndicatorSet())
	if err != nil {
		t.Fatal(err)
	}
	b.Window[0].Close = -1

	for i := range before {
		if h.Bars[i] != before[i] {
			t.Fatalf("history bar %d changed", i)
		}
	}
}

func TestParseComputeScope(t *testing.T) {
	if s, err := ParseComputeScope("", ScopeHistory); err != nil || s != ScopeHistory {
		t.Fatalf("empty: %v %v", s, err)
	}
	if s, err := ParseComputeScope("window", ScopeHistory); err != nil || s != ScopeWindow {
		t.Fatalf("window: %v %v", s, err)
	}
	if _, err := ParseComputeScope("everything", ScopeWindow); err == nil {
		t.Fatal("expected error")
	}
}
