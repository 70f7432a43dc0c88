// Package analyze derives signed deltas and period comparisons from merged
// datasets: a unified holder-event feed with reconciled per-address deltas,
// and metric-level change summaries over a display window.
package analyze

import (
	"sort"

	"hodlflow/models"
)

// marketCapSupply is the fixed circulating supply used to derive market cap
// from price.
const marketCapSupply = 100_000_000

// MetricDelta summarizes how a scalar metric moved across a window. Percent
// is nil when no sane baseline exists.
type MetricDelta struct {
	Field    string   `json:"field"`
	Earliest *float64 `json:"earliest"`
	Latest   *float64 `json:"latest"`
	Delta    *float64 `json:"delta"`
	Percent  *float64 `json:"percent"`
}

// PeriodComparison holds the two half-window means of a metric and their
// relative change.
type PeriodComparison struct {
	Field         string   `json:"field"`
	FirstHalfAvg  *float64 `json:"first_half_avg"`
	SecondHalfAvg *float64 `json:"second_half_avg"`
	Percent       *float64 `json:"percent"`
}

// ReconcileHolderEvents merges change and removal events into one feed with a
// signed delta per event. Change events natively carry a delta; removal
// events do not, so deltas are derived by walking each address's events in
// chronological order and differencing consecutive hold amounts. The returned
// feed is sorted newest-first for display.
func ReconcileHolderEvents(changes []models.AddressChangeEvent, removals []models.AddressRemovalEvent) []models.HolderEvent {
	events := make([]models.HolderEvent, 0, len(changes)+len(removals))
	for i := range changes {
		c := &changes[i]
		d := c.AmountDelta
		events = append(events, models.HolderEvent{
			Kind:         models.EventChange,
			ID:           c.ID,
			OwnerAddress: c.OwnerAddress,
			Username:     c.Username,
			AvatarURL:    c.AvatarURL,
			HoldRank:     c.HoldRank,
			HoldAmount:   c.HoldAmount,
			RankDelta:    c.RankDelta,
			AmountDelta:  &d,
			OccurredAt:   c.ChangedAt,
		})
	}
	for i := range removals {
		r := &removals[i]
		events = append(events, models.HolderEvent{
			Kind:         models.EventRemoval,
			ID:           r.ID,
			OwnerAddress: r.OwnerAddress,
			Username:     r.Username,
			AvatarURL:    r.AvatarURL,
			HoldRank:     r.HoldRank,
			HoldAmount:   r.HoldAmount,
			RankDelta:    r.RankDelta,
			OccurredAt:   r.RemovedAt,
		})
	}
	if len(events) == 0 {
		return nil
	}

	byAddress := make(map[string][]*models.HolderEvent)
	for i := range events {
		e := &events[i]
		byAddress[e.OwnerAddress] = append(byAddress[e.OwnerAddress], e)
	}

	for _, group := range byAddress {
		sort.SliceStable(group, func(i, j int) bool {
			ti, tj := group[i].OccurredAt.Time, group[j].OccurredAt.Time
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
			// Same instant: a change settles before a removal.
			return group[i].Kind == models.EventChange && group[j].Kind == models.EventRemoval
		})

		havePrev := false
		var prev float64
		for _, e := range group {
			switch {
			case havePrev:
				e.ComputedDelta = e.HoldAmount - prev
			case e.Kind == models.EventChange && e.AmountDelta != nil:
				e.ComputedDelta = *e.AmountDelta
			default:
				// A removal with no prior sighting in this window reads as
				// the whole shown balance going to zero.
				e.ComputedDelta = -e.HoldAmount
			}
			prev = e.HoldAmount
			havePrev = true
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.Time.After(events[j].OccurredAt.Time)
	})
	return events
}

// SnapshotMetricDelta computes how a metric changed across a chronologically
// ordered (oldest-first) snapshot series. The baseline is the earliest record
// with a non-zero defined value, falling back to the earliest defined value;
// an all-zero prefix from before the metric existed must not anchor the
// percentage.
func SnapshotMetricDelta(snaps []models.Snapshot, field string) MetricDelta {
	out := MetricDelta{Field: field}

	var earliestDefined *float64
	for i := range snaps {
		v := snaps[i].Field(field)
		if v == nil {
			continue
		}
		if earliestDefined == nil {
			earliestDefined = v
		}
		if out.Earliest == nil && *v != 0 {
			out.Earliest = v
		}
		out.Latest = v
	}
	if out.Earliest == nil {
		out.Earliest = earliestDefined
	}
	if out.Earliest == nil || out.Latest == nil {
		return out
	}

	delta := *out.Latest - *out.Earliest
	out.Delta = &delta
	if *out.Earliest != 0 {
		pct := delta / *out.Earliest * 100
		out.Percent = &pct
	}
	return out
}

// ComparePeriods splits an oldest-first series at its midpoint and compares
// the mean of the two halves. Percent is nil when either half has no defined
// value or the first half's mean is zero.
func ComparePeriods(snaps []models.Snapshot, field string) PeriodComparison {
	out := PeriodComparison{Field: field}

	mid := len(snaps) / 2
	out.FirstHalfAvg = meanOf(snaps[:mid], field)
	out.SecondHalfAvg = meanOf(snaps[mid:], field)

	if out.FirstHalfAvg == nil || out.SecondHalfAvg == nil || *out.FirstHalfAvg == 0 {
		return out
	}
	pct := (*out.SecondHalfAvg - *out.FirstHalfAvg) / *out.FirstHalfAvg * 100
	out.Percent = &pct
	return out
}

// RelativeSeries rebases a value series to percent change from its first
// non-zero defined value, so assets with very different absolute prices share
// one axis. Slots before the baseline, and absent slots, stay nil.
func RelativeSeries(values []*float64) []*float64 {
	out := make([]*float64, len(values))
	var base *float64
	for i, v := range values {
		if v == nil {
			continue
		}
		if base == nil {
			if *v == 0 {
				continue
			}
			base = v
		}
		pct := (*v - *base) / *base * 100
		out[i] = &pct
	}
	return out
}

// MarketCap derives market capitalization from a token price using the fixed
// supply. Absent prices yield an absent cap.
func MarketCap(price *float64) *float64 {
	if price == nil {
		return nil
	}
	mc := *price * marketCapSupply
	return &mc
}

func meanOf(snaps []models.Snapshot, field string) *float64 {
	var sum float64
	var n int
	for i := range snaps {
		if v := snaps[i].Field(field); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}
