package usecase

import (
	"math"

	"StockCharts/internal/domain/models"
)

// RSI reference levels: overbought, midline, oversold.
var rsiLevels = []float64{70, 50, 30}

// AxisConfig controls the layout hints attached to a chart bundle.
type AxisConfig struct {
	// PriceOffsetPct pads the price axis by this share of the window's range.
	PriceOffsetPct float64 `yaml:"price_offset_pct" default:"0.01"`
	// VolumeShare is the share of the panel the average volume bar fills.
	VolumeShare float64 `yaml:"volume_share" default:"0.08"`
}

// DefaultAxisConfig returns the stock chart layout defaults.
func DefaultAxisConfig() AxisConfig {
	return AxisConfig{PriceOffsetPct: 0.01, VolumeShare: 0.08}
}

// Hints computes axis ranges and volume bar directions for the window.
func (c AxisConfig) Hints(window []models.Bar, withRSI bool) *models.AxisHints {
	if len(window) == 0 {
		return nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	var volSum float64
	dirs := make([]string, len(window))
	for i, b := range window {
		lo = math.Min(lo, b.Low)
		hi = math.Max(hi, b.High)
		volSum += float64(b.Volume)
		if b.Close >= b.Open {
			dirs[i] = "up"
		} else {
			dirs[i] = "down"
		}
	}
	pad := (hi - lo) * c.PriceOffsetPct
	h := &models.AxisHints{
		PriceMin:        lo - pad,
		PriceMax:        hi + pad,
		VolumeDirection: dirs,
	}
	if c.VolumeShare > 0 {
		h.VolumeMax = volSum / float64(len(window)) / c.VolumeShare
	}
	if withRSI {
		h.RSILevels = append([]float64(nil), rsiLevels...)
	}
	return h
}
