package indicators

import "math"

// Bands holds Bollinger band lines.
type Bands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Empty reports whether the bands could not be computed.
func (b Bands) Empty() bool { return len(b.Middle) == 0 }

// Bollinger returns middle = MovingAverage(s, period) with bands k sample
// standard deviations away. upper >= middle >= lower at every point.
func Bollinger(s []float64, period int, k float64) Bands {
	if tooShort(s, period) {
		return Bands{}
	}
	mid := MovingAverage(s, period)
	std := RollingStd(s, period)
	b := Bands{
		Upper:  make([]float64, len(s)),
		Middle: mid,
		Lower:  make([]float64, len(s)),
	}
	for i := range mid {
		w := math.Abs(k) * std[i]
		b.Upper[i] = mid[i] + w
		b.Lower[i] = mid[i] - w
	}
	return b
}
