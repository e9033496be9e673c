package indicators

// RSI computes the relative strength index from period-over-period changes.
// Average gains and losses use the minimum-window-1 trailing mean, and the
// first point has no prior value, so its change counts as zero. Any point
// whose average loss is zero reports NeutralRSI.
func RSI(s []float64, period int) []float64 {
	if tooShort(s, period) {
		return nil
	}
	gains := make([]float64, len(s))
	losses := make([]float64, len(s))
	for i := 1; i < len(s); i++ {
		switch d := s[i] - s[i-1]; {
		case d > 0:
			gains[i] = d
		case d < 0:
			losses[i] = -d
		}
	}
	avgGain := MovingAverage(gains, period)
	avgLoss := MovingAverage(losses, period)

	out := make([]float64, len(s))
	for i := range s {
		if avgLoss[i] == 0 {
			out[i] = NeutralRSI
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACDResult holds the three MACD lines.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// Empty reports whether MACD could not be computed.
func (m MACDResult) Empty() bool { return len(m.MACD) == 0 }

// MACD is EMA(fast) - EMA(slow), its EMA(signal) and their difference.
// All three lines are defined from the first point.
func MACD(s []float64, fast, slow, signal int) MACDResult {
	if tooShort(s, fast) || slow < 1 || signal < 1 {
		return MACDResult{}
	}
	f := EMA(s, fast)
	sl := EMA(s, slow)
	line := make([]float64, len(s))
	for i := range s {
		line[i] = f[i] - sl[i]
	}
	sig := EMA(line, signal)
	hist := make([]float64, len(s))
	for i := range s {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{MACD: line, Signal: sig, Histogram: hist}
}
