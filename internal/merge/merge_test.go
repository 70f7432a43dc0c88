package merge

import (
	"context"
	"errors"
	"testing"
	"time"

	"hodlflow/models"
)

// scriptedFetcher maps day keys to bundles and records the fetch order. Days
// absent from the map return "no data".
type scriptedFetcher struct {
	bundles map[string]*models.DayBundle
	fetched []string
	err     error
}

func (f *scriptedFetcher) FetchDay(_ context.Context, day string) (*models.DayBundle, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.fetched = append(f.fetched, day)
	return f.bundles[day], nil
}

func dayKeys(n int) []string {
	base := time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC)
	keys := make([]string, n)
	for i := range keys {
		keys[i] = base.AddDate(0, 0, -i).Format("2006-01-02")
	}
	return keys
}

func snapshotBundle(day string, price float64) *models.DayBundle {
	t, _ := time.Parse("2006-01-02", day)
	return &models.DayBundle{
		Day:       day,
		Snapshots: []models.Snapshot{{Price: &price, CreatedAt: models.NewTime(t)}},
	}
}

func TestRunAbortsAfterConsecutiveMissing(t *testing.T) {
	days := dayKeys(12)
	f := &scriptedFetcher{bundles: map[string]*models.DayBundle{}}
	for i, day := range days {
		// Positions 5, 6, 7 are missing; position 8 would have data.
		if i >= 5 && i <= 7 {
			continue
		}
		f.bundles[day] = snapshotBundle(day, float64(i+1))
	}

	ds, err := New(f, 3).Run(context.Background(), "preset_12", days)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(f.fetched) != 8 {
		t.Fatalf("walk must stop after the third consecutive miss: fetched %d days (%v)", len(f.fetched), f.fetched)
	}
	if f.fetched[len(f.fetched)-1] != days[7] {
		t.Fatalf("last fetched day must be position 7, got %s", f.fetched[len(f.fetched)-1])
	}
	if len(ds.Snapshots) != 5 {
		t.Fatalf("expected 5 snapshots from the present days, got %d", len(ds.Snapshots))
	}
}

func TestRunIsolatedGapsDoNotAbort(t *testing.T) {
	days := dayKeys(6)
	f := &scriptedFetcher{bundles: map[string]*models.DayBundle{}}
	for i, day := range days {
		// Every other day missing: gaps never reach three in a row.
		if i%2 == 1 {
			continue
		}
		f.bundles[day] = snapshotBundle(day, float64(i+1))
	}

	ds, err := New(f, 3).Run(context.Background(), "preset_6", days)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(f.fetched) != 6 {
		t.Fatalf("isolated gaps must not abort the walk: fetched %d days", len(f.fetched))
	}
	if len(ds.Snapshots) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(ds.Snapshots))
	}
}

func TestRunFirstRankingWins(t *testing.T) {
	days := dayKeys(3)
	newRank := []models.AddressRanking{{ID: 1, OwnerAddress: "new", HoldRank: 1}}
	oldRank := []models.AddressRanking{{ID: 2, OwnerAddress: "old", HoldRank: 1}}

	f := &scriptedFetcher{bundles: map[string]*models.DayBundle{
		days[0]: {Day: days[0], Ranking: newRank},
		days[1]: {Day: days[1], Ranking: oldRank},
	}}

	ds, err := New(f, 3).Run(context.Background(), "preset_3", days)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ds.Ranking) != 1 || ds.Ranking[0].OwnerAddress != "new" {
		t.Fatalf("the newest day's ranking must win, got %+v", ds.Ranking)
	}
}

func TestRunSortsNewestFirst(t *testing.T) {
	days := dayKeys(3)
	f := &scriptedFetcher{bundles: map[string]*models.DayBundle{}}
	for i, day := range days {
		f.bundles[day] = snapshotBundle(day, float64(i))
	}

	ds, err := New(f, 3).Run(context.Background(), "preset_3", days)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i := 1; i < len(ds.Snapshots); i++ {
		if ds.Snapshots[i].CreatedAt.Time.After(ds.Snapshots[i-1].CreatedAt.Time) {
			t.Fatalf("snapshots out of order at %d", i)
		}
	}
}

func TestRunNoData(t *testing.T) {
	f := &scriptedFetcher{bundles: map[string]*models.DayBundle{}}
	_, err := New(f, 3).Run(context.Background(), "preset_2", dayKeys(2))
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestRunPropagatesFetchError(t *testing.T) {
	wantErr := errors.New("context canceled")
	f := &scriptedFetcher{err: wantErr}
	_, err := New(f, 3).Run(context.Background(), "preset_2", dayKeys(2))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the fetch error to propagate, got %v", err)
	}
}
