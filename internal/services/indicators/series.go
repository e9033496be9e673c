// Package indicators holds the pure series math behind the chart overlays.
// Every function returns slices aligned 1:1 with its input, or nil when the
// input is too short to produce anything meaningful.
package indicators

import (
	"fmt"

	"StockCharts/internal/domain/models"
)

// minPoints is the shortest series any indicator is computed for.
const minPoints = 2

// NeutralRSI is reported wherever the average loss of the window is zero.
const NeutralRSI = 50.0

// Closes extracts the close column.
func Closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume column as floats.
func Volumes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = float64(b.Volume)
	}
	return out
}

func tooShort(s []float64, period int) bool {
	return len(s) < minPoints || period < 1
}

func windowStart(i, period int) int {
	if lo := i - period + 1; lo > 0 {
		return lo
	}
	return 0
}

// Params are the tunable periods of the indicator set.
type Params struct {
	MAPeriods       []int   `yaml:"ma_periods" json:"ma_periods" default:"[20,50]"`
	BollingerPeriod int     `yaml:"bollinger_period" json:"bollinger_period" default:"20"`
	BollingerK      float64 `yaml:"bollinger_k" json:"bollinger_k" default:"2"`
	RSIPeriod       int     `yaml:"rsi_period" json:"rsi_period" default:"14"`
	MACDFast        int     `yaml:"macd_fast" json:"macd_fast" default:"12"`
	MACDSlow        int     `yaml:"macd_slow" json:"macd_slow" default:"26"`
	MACDSignal      int     `yaml:"macd_signal" json:"macd_signal" default:"9"`
}

// DefaultParams returns the classic chart settings.
func DefaultParams() Params {
	return Params{
		MAPeriods:       []int{20, 50},
		BollingerPeriod: 20,
		BollingerK:      2,
		RSIPeriod:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
	}
}

// Validate rejects parameter sets that cannot produce a chart.
func (p Params) Validate() error {
	if len(p.MAPeriods) == 0 {
		return fmt.Errorf("ma_periods cannot be empty")
	}
	for _, n := range p.MAPeriods {
		if n < 1 {
			return fmt.Errorf("ma_periods must be >= 1, got %d", n)
		}
	}
	if p.BollingerPeriod < 1 {
		return fmt.Errorf("bollinger_period must be >= 1, got %d", p.BollingerPeriod)
	}
	if p.BollingerK < 0 {
		return fmt.Errorf("bollinger_k must be >= 0, got %g", p.BollingerK)
	}
	if p.RSIPeriod < 1 {
		return fmt.Errorf("rsi_period must be >= 1, got %d", p.RSIPeriod)
	}
	if p.MACDFast < 1 || p.MACDSlow < 1 || p.MACDSignal < 1 {
		return fmt.Errorf("macd periods must be >= 1")
	}
	if p.MACDFast >= p.MACDSlow {
		return fmt.Errorf("macd_fast (%d) must be smaller than macd_slow (%d)", p.MACDFast, p.MACDSlow)
	}
	return nil
}
