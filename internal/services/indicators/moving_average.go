package indicators

import "math"

// MovingAverage computes the trailing simple mean over period observations.
// The first period-1 points average whatever is available so far, so the
// output is defined everywhere the input is. out[i] only reads
// s[max(0, i-period+1) .. i].
func MovingAverage(s []float64, period int) []float64 {
	if tooShort(s, period) {
		return nil
	}
	out := make([]float64, len(s))
	for i := range s {
		lo := windowStart(i, period)
		sum := 0.0
		for _, v := range s[lo : i+1] {
			sum += v
		}
		out[i] = sum / float64(i+1-lo)
	}
	return out
}

// RollingStd is the sample standard deviation over the same trailing window
// as MovingAverage. A window holding a single observation has no spread and
// yields 0.
func RollingStd(s []float64, period int) []float64 {
	if tooShort(s, period) {
		return nil
	}
	out := make([]float64, len(s))
	for i := range s {
		lo := windowStart(i, period)
		n := i + 1 - lo
		if n < 2 {
			continue
		}
		mean := 0.0
		for _, v := range s[lo : i+1] {
			mean += v
		}
		mean /= float64(n)
		ss := 0.0
		for _, v := range s[lo : i+1] {
			d := v - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(n-1))
	}
	return out
}

// EMA is the exponential moving average with alpha = 2/(n+1), seeded with
// the first observation. Each point equals value*alpha + prev*(1-alpha),
// written in the incremental form so a flat series stays exactly flat.
func EMA(s []float64, n int) []float64 {
	if tooShort(s, n) {
		return nil
	}
	alpha := 2 / (float64(n) + 1)
	out := make([]float64, len(s))
	out[0] = s[0]
	for i := 1; i < len(s); i++ {
		out[i] = out[i-1] + alpha*(s[i]-out[i-1])
	}
	return out
}
