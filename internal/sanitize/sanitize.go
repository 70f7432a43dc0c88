// Package sanitize scrubs invalid price readings before they reach charts or
// indicator math. Raw snapshots are kept intact in the cache; sanitization is
// applied on the way out.
package sanitize

import (
	"math"

	"hodlflow/models"
)

// Price returns v unchanged when it is a finite positive number, nil
// otherwise. Zero, negative, NaN and infinite readings are upstream collector
// glitches and must read as "absent", never as a real price.
func Price(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return nil
	}
	return v
}

// Snapshot returns a copy of s with every price column scrubbed. Non-price
// counters pass through untouched; a genuine zero holder count is data, not a
// glitch.
func Snapshot(s models.Snapshot) models.Snapshot {
	for _, field := range models.PriceFields {
		s.SetField(field, Price(s.Field(field)))
	}
	return s
}

// Chartable scrubs a series and drops every snapshot left with no price at
// all. The raw merged dataset keeps those records; only chart-bound series
// lose them.
func Chartable(in []models.Snapshot) []models.Snapshot {
	out := make([]models.Snapshot, 0, len(in))
	for i := range in {
		s := Snapshot(in[i])
		keep := false
		for _, field := range models.PriceFields {
			if s.Field(field) != nil {
				keep = true
				break
			}
		}
		if keep {
			out = append(out, s)
		}
	}
	return out
}

// Snapshots scrubs a series in one pass. The input slice is not modified.
func Snapshots(in []models.Snapshot) []models.Snapshot {
	if in == nil {
		return nil
	}
	out := make([]models.Snapshot, len(in))
	for i := range in {
		out[i] = Snapshot(in[i])
	}
	return out
}
