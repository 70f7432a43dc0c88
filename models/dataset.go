package models

import (
	"fmt"
	"time"
)

// DataRange selects the window of daily files to fetch. PresetDays > 0 means
// the trailing N days ending today; otherwise From/To bound an explicit
// window, with a zero To defaulting to today.
type DataRange struct {
	PresetDays int       `json:"preset_days,omitempty"`
	From       time.Time `json:"from,omitempty"`
	To         time.Time `json:"to,omitempty"`
}

// Preset builds a trailing-N-days range.
func Preset(days int) DataRange {
	return DataRange{PresetDays: days}
}

// Custom builds an explicit window.
func Custom(from, to time.Time) DataRange {
	return DataRange{From: from, To: to}
}

// IsPreset reports whether the range is a trailing-day preset.
func (r DataRange) IsPreset() bool {
	return r.PresetDays > 0
}

func (r DataRange) String() string {
	if r.IsPreset() {
		return fmt.Sprintf("preset_%d", r.PresetDays)
	}
	to := r.To
	if to.IsZero() {
		return fmt.Sprintf("custom_%s_open", r.From.Format("2006-01-02"))
	}
	return fmt.Sprintf("custom_%s_%s", r.From.Format("2006-01-02"), to.Format("2006-01-02"))
}

// Days returns the nominal window length used to look up indicator periods.
func (r DataRange) Days(now time.Time) int {
	if r.IsPreset() {
		return r.PresetDays
	}
	to := r.To
	if to.IsZero() {
		to = now
	}
	d := int(to.Sub(r.From).Hours()/24) + 1
	if d < 0 {
		return 0
	}
	return d
}

// DayBundle is one day's worth of fetched category files. Any slice may be
// empty; a day counts as present when at least one category has a record.
type DayBundle struct {
	Day           string                `json:"day"`
	Snapshots     []Snapshot            `json:"snapshots"`
	Ranking       []AddressRanking      `json:"ranking"`
	ChangeEvents  []AddressChangeEvent  `json:"change_events"`
	RemovalEvents []AddressRemovalEvent `json:"removal_events"`
}

// HasData reports whether any category yielded at least one record.
func (b *DayBundle) HasData() bool {
	if b == nil {
		return false
	}
	return len(b.Snapshots) > 0 || len(b.Ranking) > 0 ||
		len(b.ChangeEvents) > 0 || len(b.RemovalEvents) > 0
}

// CachedDataset is the immutable result of one merge cycle. Snapshots and
// events are sorted newest-first, the ranking by ascending hold rank. A fetch
// cycle always produces a new CachedDataset; cached ones are never mutated.
type CachedDataset struct {
	RangeKey      string                `json:"range_key"`
	FetchedAt     time.Time             `json:"fetched_at"`
	Snapshots     []Snapshot            `json:"snapshots"`
	ChangeEvents  []AddressChangeEvent  `json:"change_events"`
	RemovalEvents []AddressRemovalEvent `json:"removal_events"`
	Ranking       []AddressRanking      `json:"ranking"`
}

// Empty reports whether the merge yielded no records at all.
func (d *CachedDataset) Empty() bool {
	if d == nil {
		return true
	}
	return len(d.Snapshots) == 0 && len(d.ChangeEvents) == 0 &&
		len(d.RemovalEvents) == 0 && len(d.Ranking) == 0
}

// Latest returns the most recent snapshot, or nil for an empty series.
func (d *CachedDataset) Latest() *Snapshot {
	if d == nil || len(d.Snapshots) == 0 {
		return nil
	}
	return &d.Snapshots[0]
}
