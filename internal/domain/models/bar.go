package models

import "time"

// Bar is one trading day of OHLCV data.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// SymbolMeta carries the display information of a ticker.
type SymbolMeta struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"short_name"`
	LongName  string `json:"long_name,omitempty"`
	Exchange  string `json:"exchange,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

// DisplayName returns the best human readable name for the symbol.
func (m SymbolMeta) DisplayName() string {
	switch {
	case m.ShortName != "":
		return m.ShortName
	case m.LongName != "":
		return m.LongName
	default:
		return m.Symbol
	}
}

// FallbackMeta is used when a provider returns bars but no quote metadata.
func FallbackMeta(symbol string) SymbolMeta {
	return SymbolMeta{Symbol: symbol, ShortName: symbol}
}

// History is the full daily series of a symbol as returned by a provider.
// Bars are strictly ascending by Time. Holders treat it as read-only.
type History struct {
	Meta      SymbolMeta `json:"meta"`
	Bars      []Bar      `json:"bars"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Len returns the number of bars.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Bars)
}

// Last returns the most recent bar.
func (h *History) Last() (Bar, bool) {
	if h.Len() == 0 {
		return Bar{}, false
	}
	return h.Bars[len(h.Bars)-1], true
}
