// Package resample thins long series down to a chartable point budget using
// fixed-stride sampling. Index 0 is always kept so the series start never
// shifts, and sampling an already-thinned series is a no-op.
package resample

import "hodlflow/models"

// Indices returns the positions to keep when thinning a series of the given
// length to at most max points. The stride is floor(length/max), clamped to at
// least 1, so the output can slightly exceed max; that bias keeps the sampling
// uniform and idempotent.
func Indices(length, max int) []int {
	if length <= 0 {
		return nil
	}
	if max <= 0 || length <= max {
		idx := make([]int, length)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	stride := length / max
	if stride < 1 {
		stride = 1
	}

	idx := make([]int, 0, length/stride+1)
	for i := 0; i < length; i += stride {
		idx = append(idx, i)
	}
	return idx
}

// Snapshots thins a snapshot series to roughly max points. The input slice is
// returned as-is when no thinning is needed.
func Snapshots(in []models.Snapshot, max int) []models.Snapshot {
	if max <= 0 || len(in) <= max {
		return in
	}
	idx := Indices(len(in), max)
	out := make([]models.Snapshot, 0, len(idx))
	for _, i := range idx {
		out = append(out, in[i])
	}
	return out
}

// Series thins a value series with the same stride rule as Snapshots, so a
// metric column stays aligned with its thinned snapshot axis.
func Series(in []*float64, max int) []*float64 {
	if max <= 0 || len(in) <= max {
		return in
	}
	idx := Indices(len(in), max)
	out := make([]*float64, 0, len(idx))
	for _, i := range idx {
		out = append(out, in[i])
	}
	return out
}
