package indicators

import (
	"math"
	"testing"
	"time"

	"StockCharts/internal/domain/models"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func assertSeries(t *testing.T, label string, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: len %d, want %d", label, len(got), len(want))
	}
	for i := range want {
		assertClose(t, label, got[i], want[i], tol)
	}
}

// wavy is a deterministic series with trend, cycle and jitter.
func wavy(n int) []float64 {
	out := make([]float64, n)
	seed := uint32(7)
	for i := range out {
		seed = seed*1664525 + 1013904223
		jitter := float64(seed%1000)/1000 - 0.5
		out[i] = 100 + 10*math.Sin(float64(i)*0.3) + 0.05*float64(i) + jitter
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// ────────────────────────────────────────────────────────────
// Moving average
// ────────────────────────────────────────────────────────────

func TestMovingAverage_MinimumWindow(t *testing.T) {
	// 1, (1+2)/2, (1+2+3)/3, (2+3+4)/3, (3+4+5)/3
	got := MovingAverage([]float64{1, 2, 3, 4, 5}, 3)
	assertSeries(t, "MA(3)", got, []float64{1, 1.5, 2, 3, 4}, 1e-12)
}

func TestMovingAverage_PeriodOneIsIdentity(t *testing.T) {
	s := wavy(40)
	assertSeries(t, "MA(1)", MovingAverage(s, 1), s, 0)
}

func TestMovingAverage_LengthAndDefinedness(t *testing.T) {
	s := wavy(120)
	for _, p := range []int{1, 2, 5, 20, 50, 119, 500} {
		ma := MovingAverage(s, p)
		if len(ma) != len(s) {
			t.Fatalf("period %d: len %d, want %d", p, len(ma), len(s))
		}
		for i, v := range ma {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("period %d: undefined value at %d", p, i)
			}
		}
	}
}

func TestMovingAverage_DependsOnlyOnTrailingWindow(t *testing.T) {
	s := wavy(60)
	base := MovingAverage(s, 10)

	mutated := append([]float64(nil), s...)
	for i := 0; i < 30; i++ {
		mutated[i] = -1000
	}
	got := MovingAverage(mutated, 10)
	// index 39 reads s[30..39] only
	for i := 39; i < len(s); i++ {
		if got[i] != base[i] {
			t.Fatalf("index %d changed after mutating data outside its window", i)
		}
	}
}

func TestMovingAverage_ShortInput(t *testing.T) {
	if got := MovingAverage([]float64{42}, 3); got != nil {
		t.Fatalf("single point: got %v, want nil", got)
	}
	if got := MovingAverage(nil, 3); got != nil {
		t.Fatalf("nil input: got %v, want nil", got)
	}
	if got := MovingAverage([]float64{1, 2, 3}, 0); got != nil {
		t.Fatalf("period 0: got %v, want nil", got)
	}
}

func TestMovingAverage_DoesNotMutateInput(t *testing.T) {
	s := []float64{3, 1, 4, 1, 5}
	want := append([]float64(nil), s...)
	_ = MovingAverage(s, 2)
	_ = Bollinger(s, 2, 2)
	_ = RSI(s, 2)
	_ = MACD(s, 2, 3, 2)
	assertSeries(t, "input", s, want, 0)
}

// ────────────────────────────────────────────────────────────
// Rolling std / Bollinger
// ────────────────────────────────────────────────────────────

func TestRollingStd_Sample(t *testing.T) {
	// mean 5, squared deviations sum 32, sample variance 32/7
	s := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	std := RollingStd(s, 8)
	assertClose(t, "first", std[0], 0, 0)
	assertClose(t, "second", std[1], math.Sqrt2, 1e-12)
	assertClose(t, "last", std[7], math.Sqrt(32.0/7.0), 1e-12)
}

func TestBollinger_Ordering(t *testing.T) {
	s := wavy(200)
	for _, p := range []int{1, 5, 20} {
		b := Bollinger(s, p, 2)
		if len(b.Upper) != len(s) || len(b.Middle) != len(s) || len(b.Lower) != len(s) {
			t.Fatalf("period %d: misaligned band lengths", p)
		}
		for i := range s {
			if !(b.Upper[i] >= b.Middle[i] && b.Middle[i] >= b.Lower[i]) {
				t.Fatalf("period %d index %d: %f >= %f >= %f violated", p, i, b.Upper[i], b.Middle[i], b.Lower[i])
			}
		}
	}
}

func TestBollinger_MiddleIsMovingAverage(t *testing.T) {
	s := wavy(50)
	b := Bollinger(s, 20, 2)
	assertSeries(t, "middle", b.Middle, MovingAverage(s, 20), 0)

	std := RollingStd(s, 20)
	for i := range s {
		assertClose(t, "width", b.Upper[i]-b.Middle[i], 2*std[i], 1e-9)
	}
}

func TestBollinger_FlatSeriesCollapses(t *testing.T) {
	b := Bollinger(flat(30, 100), 20, 2)
	for i := range b.Middle {
		if b.Upper[i] != 100 || b.Middle[i] != 100 || b.Lower[i] != 100 {
			t.Fatalf("index %d: got %f/%f/%f, want 100", i, b.Upper[i], b.Middle[i], b.Lower[i])
		}
	}
}

func TestBollinger_ShortInput(t *testing.T) {
	if b := Bollinger([]float64{1}, 20, 2); !b.Empty() {
		t.Fatalf("expected empty bands for a single point")
	}
}

// ────────────────────────────────────────────────────────────
// RSI
// ────────────────────────────────────────────────────────────

func TestRSI_HandCalculated(t *testing.T) {
	// changes: -, +2, -1
	// index 1: avg loss 0 -> neutral
	// index 2: avg gain 2/3, avg loss 1/3, RS 2 -> 100 - 100/3
	got := RSI([]float64{10, 12, 11}, 14)
	assertSeries(t, "RSI(14)", got, []float64{50, 50, 100 - 100.0/3}, 1e-9)
}

func TestRSI_WindowDropsOldChanges(t *testing.T) {
	// period 2: index 3 sees changes at 2 (-1) and 3 (+3)
	got := RSI([]float64{10, 15, 14, 17}, 2)
	assertClose(t, "RSI(2)[3]", got[3], 75, 1e-9)
	// index 2 sees +5 and -1: RS 5
	assertClose(t, "RSI(2)[2]", got[2], 100-100.0/6, 1e-9)
}

func TestRSI_Bounds(t *testing.T) {
	s := wavy(300)
	for _, p := range []int{2, 7, 14, 50} {
		for i, v := range RSI(s, p) {
			if v < 0 || v > 100 {
				t.Fatalf("period %d index %d: RSI %f out of [0,100]", p, i, v)
			}
		}
	}
}

func TestRSI_NeutralCases(t *testing.T) {
	for i, v := range RSI(flat(40, 100), 14) {
		if v != NeutralRSI {
			t.Fatalf("flat series index %d: got %f, want %f", i, v, NeutralRSI)
		}
	}
	// no losses at all also resolves to neutral
	for i, v := range RSI([]float64{1, 2, 3, 4, 5}, 14) {
		if v != NeutralRSI {
			t.Fatalf("rising series index %d: got %f, want %f", i, v, NeutralRSI)
		}
	}
	// falling series has RS 0
	got := RSI([]float64{5, 4, 3}, 14)
	assertClose(t, "falling[0]", got[0], NeutralRSI, 0)
	assertClose(t, "falling[2]", got[2], 0, 1e-12)
}

func TestRSI_ShortInput(t *testing.T) {
	if got := RSI([]float64{100}, 14); got != nil {
		t.Fatalf("single point: got %v, want nil", got)
	}
}

// ────────────────────────────────────────────────────────────
// EMA / MACD
// ────────────────────────────────────────────────────────────

func TestEMA_SeededWithFirstValue(t *testing.T) {
	// alpha = 0.5
	got := EMA([]float64{1, 2, 3}, 3)
	assertSeries(t, "EMA(3)", got, []float64{1, 1.5, 2.25}, 1e-12)
}

func TestEMA_MatchesRecursiveDefinition(t *testing.T) {
	s := wavy(100)
	alpha := 2.0 / 13.0
	got := EMA(s, 12)
	prev := s[0]
	for i := range s {
		if i > 0 {
			prev = s[i]*alpha + prev*(1-alpha)
		}
		assertClose(t, "EMA(12)", got[i], prev, 1e-9)
	}
}

func TestMACD_HandCalculated(t *testing.T) {
	// EMA(1) is the series itself; EMA(3) = 1, 1.5, 2.25
	m := MACD([]float64{1, 2, 3}, 1, 3, 3)
	assertSeries(t, "macd", m.MACD, []float64{0, 0.5, 0.75}, 1e-12)
	assertSeries(t, "signal", m.Signal, []float64{0, 0.25, 0.5}, 1e-12)
	assertSeries(t, "histogram", m.Histogram, []float64{0, 0.25, 0.25}, 1e-12)
}

func TestMACD_HistogramIdentity(t *testing.T) {
	m := MACD(wavy(400), 12, 26, 9)
	if len(m.MACD) != 400 || len(m.Signal) != 400 || len(m.Histogram) != 400 {
		t.Fatalf("misaligned MACD lengths")
	}
	for i := range m.MACD {
		if m.Histogram[i] != m.MACD[i]-m.Signal[i] {
			t.Fatalf("index %d: histogram %v != %v - %v", i, m.Histogram[i], m.MACD[i], m.Signal[i])
		}
	}
}

func TestMACD_FlatSeriesIsZero(t *testing.T) {
	m := MACD(flat(100, 100), 12, 26, 9)
	for i := range m.Histogram {
		if m.MACD[i] != 0 || m.Signal[i] != 0 || m.Histogram[i] != 0 {
			t.Fatalf("index %d: got %v/%v/%v, want zeros", i, m.MACD[i], m.Signal[i], m.Histogram[i])
		}
	}
}

func TestMACD_ShortInput(t *testing.T) {
	if m := MACD([]float64{1}, 12, 26, 9); !m.Empty() {
		t.Fatalf("expected empty MACD for a single point")
	}
}

// ────────────────────────────────────────────────────────────
// Columns / params
// ────────────────────────────────────────────────────────────

func TestColumns(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := []models.Bar{
		{Time: day, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Time: day.AddDate(0, 0, 1), Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 250},
	}
	assertSeries(t, "closes", Closes(bars), []float64{1.5, 2.5}, 0)
	assertSeries(t, "volumes", Volumes(bars), []float64{100, 250}, 0)
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}

	tests := []struct {
		name string
		mut  func(*Params)
	}{
		{"no ma periods", func(p *Params) { p.MAPeriods = nil }},
		{"zero ma period", func(p *Params) { p.MAPeriods = []int{20, 0} }},
		{"negative k", func(p *Params) { p.BollingerK = -1 }},
		{"zero rsi", func(p *Params) { p.RSIPeriod = 0 }},
		{"fast not below slow", func(p *Params) { p.MACDFast = 26 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mut(&p)
			if err := p.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
