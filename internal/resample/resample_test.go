package resample

import (
	"testing"

	"hodlflow/models"
)

func series(n int) []models.Snapshot {
	out := make([]models.Snapshot, n)
	for i := range out {
		v := float64(i)
		out[i].Price = &v
	}
	return out
}

func TestSnapshotsShortSeriesUntouched(t *testing.T) {
	in := series(100)
	got := Snapshots(in, 150)
	if len(got) != 100 {
		t.Fatalf("expected 100 points, got %d", len(got))
	}
}

func TestSnapshotsStride(t *testing.T) {
	in := series(1000)
	got := Snapshots(in, 150)

	// stride = floor(1000/150) = 6 -> indices 0, 6, 12, ... 996.
	if len(got) != 167 {
		t.Fatalf("expected 167 points, got %d", len(got))
	}
	if *got[0].Price != 0 {
		t.Errorf("first point must be index 0, got %v", *got[0].Price)
	}
	if *got[1].Price != 6 {
		t.Errorf("second point must be index 6, got %v", *got[1].Price)
	}
	if *got[len(got)-1].Price != 996 {
		t.Errorf("last point must be index 996, got %v", *got[len(got)-1].Price)
	}
}

func TestSnapshotsIdempotent(t *testing.T) {
	in := series(1000)
	once := Snapshots(in, 150)
	twice := Snapshots(once, 150)

	if len(twice) != len(once) {
		t.Fatalf("second pass changed the length: %d vs %d", len(twice), len(once))
	}
	for i := range once {
		if *once[i].Price != *twice[i].Price {
			t.Fatalf("second pass changed point %d: %v vs %v", i, *once[i].Price, *twice[i].Price)
		}
	}
}

func TestIndicesEdgeCases(t *testing.T) {
	if got := Indices(0, 10); got != nil {
		t.Errorf("empty series should yield nil, got %v", got)
	}
	if got := Indices(5, 0); len(got) != 5 {
		t.Errorf("non-positive budget keeps everything, got %d", len(got))
	}
	if got := Indices(1, 150); len(got) != 1 || got[0] != 0 {
		t.Errorf("single point kept as-is, got %v", got)
	}
}

func TestSeriesAlignsWithSnapshots(t *testing.T) {
	snaps := series(600)
	vals := make([]*float64, 600)
	for i := range vals {
		v := float64(i) * 10
		vals[i] = &v
	}

	gotSnaps := Snapshots(snaps, 150)
	gotVals := Series(vals, 150)
	if len(gotSnaps) != len(gotVals) {
		t.Fatalf("thinned lengths diverge: %d vs %d", len(gotSnaps), len(gotVals))
	}
	for i := range gotSnaps {
		if *gotVals[i] != *gotSnaps[i].Price*10 {
			t.Fatalf("point %d misaligned", i)
		}
	}
}
