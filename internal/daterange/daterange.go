// Package daterange turns a data range selection into the ordered list of
// daily file keys to fetch and the cache key the merged result is stored
// under. It is pure: callers inject the reference time.
package daterange

import (
	"time"

	"hodlflow/models"
)

const (
	// DayLayout is the calendar-day key format used by the file host paths.
	DayLayout = "2006-01-02"

	cacheKeyPrefix = "hodl_data_cache"
)

// Resolve expands a range into calendar-day keys in descending order, today
// first. A preset of N days yields exactly N keys. A custom range yields every
// day from To (or now) back to From inclusive; an inverted range resolves to
// an empty sequence rather than an error.
func Resolve(r models.DataRange, now time.Time) []string {
	if r.IsPreset() {
		days := make([]string, 0, r.PresetDays)
		end := truncateDay(now)
		for i := 0; i < r.PresetDays; i++ {
			days = append(days, end.AddDate(0, 0, -i).Format(DayLayout))
		}
		return days
	}

	to := r.To
	if to.IsZero() {
		to = now
	}
	start := truncateDay(r.From)
	end := truncateDay(to)
	if start.After(end) {
		return nil
	}

	var days []string
	for d := end; !d.Before(start); d = d.AddDate(0, 0, -1) {
		days = append(days, d.Format(DayLayout))
	}
	return days
}

// Key derives the cache key for a range. Preset ranges key on the day count,
// custom ranges on their calendar bounds, so a preset range fetched tomorrow
// reuses the same key while a custom range stays pinned.
func Key(r models.DataRange, now time.Time) string {
	if r.IsPreset() {
		return cacheKeyPrefix + "_" + r.String()
	}
	to := r.To
	if to.IsZero() {
		to = now
	}
	bounded := models.Custom(r.From, truncateDay(to))
	return cacheKeyPrefix + "_" + bounded.String()
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
