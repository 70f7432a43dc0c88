// Package indicator computes moving averages and Bollinger bands over sparse
// numeric series. Absent readings are nil, and every output slot that cannot
// be computed stays nil so charts render gaps instead of false zeroes.
package indicator

import "math"

// Bands holds one Bollinger band series set. Slices share the input's length
// and indexing.
type Bands struct {
	Middle []*float64 `json:"middle"`
	Upper  []*float64 `json:"upper"`
	Lower  []*float64 `json:"lower"`
}

// PeriodFor maps a display-range length in days to the SMA/EMA look-back
// period.
func PeriodFor(rangeDays int) int {
	switch {
	case rangeDays <= 3:
		return 3
	case rangeDays <= 7:
		return 7
	default:
		return 30
	}
}

// BollingerPeriodFor maps a display-range length in days to the coarser
// Bollinger look-back period.
func BollingerPeriodFor(rangeDays int) int {
	switch {
	case rangeDays <= 3:
		return 5
	case rangeDays <= 10:
		return 10
	default:
		return 20
	}
}

// SMA computes the simple moving average with look-back p. The result has the
// same length as the input; a slot is nil when i < p-1 or when any reading in
// the window [i-p+1, i] is absent.
func SMA(values []*float64, p int) []*float64 {
	out := make([]*float64, len(values))
	if p <= 0 {
		return out
	}
	for i := p - 1; i < len(values); i++ {
		if v, ok := windowSum(values, i, p); ok {
			avg := v / float64(p)
			out[i] = &avg
		}
	}
	return out
}

// EMA computes the exponential moving average with look-back p and smoothing
// k = 2/(p+1). The series is seeded with the SMA value at the first index
// where a full window exists; before that, slots are nil. After seeding, an
// absent reading carries the previous EMA forward unchanged.
func EMA(values []*float64, p int) []*float64 {
	out := make([]*float64, len(values))
	if p <= 0 {
		return out
	}

	k := 2.0 / float64(p+1)
	seeded := false
	var prev float64

	for i := p - 1; i < len(values); i++ {
		if !seeded {
			sum, ok := windowSum(values, i, p)
			if !ok {
				continue
			}
			prev = sum / float64(p)
			seeded = true
		} else if v := values[i]; v != nil {
			prev = *v*k + prev*(1-k)
		}
		cur := prev
		out[i] = &cur
	}
	return out
}

// Bollinger computes the rolling mean with upper and lower bands at mean ± 2
// population standard deviations. Undefined slots follow the same rule as
// SMA.
func Bollinger(values []*float64, p int) Bands {
	b := Bands{
		Middle: make([]*float64, len(values)),
		Upper:  make([]*float64, len(values)),
		Lower:  make([]*float64, len(values)),
	}
	if p <= 0 {
		return b
	}

	for i := p - 1; i < len(values); i++ {
		sum, ok := windowSum(values, i, p)
		if !ok {
			continue
		}
		mean := sum / float64(p)

		var variance float64
		for j := i - p + 1; j <= i; j++ {
			d := *values[j] - mean
			variance += d * d
		}
		sigma := math.Sqrt(variance / float64(p))

		mid, up, low := mean, mean+2*sigma, mean-2*sigma
		b.Middle[i], b.Upper[i], b.Lower[i] = &mid, &up, &low
	}
	return b
}

// windowSum sums the p readings ending at index i. It reports false when the
// window is incomplete or contains an absent reading.
func windowSum(values []*float64, i, p int) (float64, bool) {
	if i-p+1 < 0 {
		return 0, false
	}
	var sum float64
	for j := i - p + 1; j <= i; j++ {
		if values[j] == nil {
			return 0, false
		}
		sum += *values[j]
	}
	return sum, true
}
