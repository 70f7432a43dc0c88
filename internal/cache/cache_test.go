package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"hodlflow/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sampleDataset(key string) *models.CachedDataset {
	price := 1.5
	return &models.CachedDataset{
		RangeKey:  key,
		Snapshots: []models.Snapshot{{Price: &price}},
	}
}

func TestManagerRoundTrip(t *testing.T) {
	now := time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC)
	m := newManagerWithStore(NewMemoryStore(), 15*time.Minute, fixedClock(now))

	ctx := context.Background()
	m.Put(ctx, "hodl_data_cache_preset_3", sampleDataset("preset_3"))

	got := m.Get(ctx, "hodl_data_cache_preset_3")
	if got == nil {
		t.Fatal("expected a cache hit")
	}
	if got.RangeKey != "preset_3" || len(got.Snapshots) != 1 {
		t.Fatalf("round trip mangled the dataset: %+v", got)
	}
}

func TestManagerMiss(t *testing.T) {
	m := newManagerWithStore(NewMemoryStore(), 15*time.Minute, time.Now)
	if got := m.Get(context.Background(), "absent"); got != nil {
		t.Fatalf("expected a miss, got %+v", got)
	}
}

func TestManagerTTLBoundary(t *testing.T) {
	t0 := time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := t0
	m := newManagerWithStore(NewMemoryStore(), 15*time.Minute, func() time.Time { return clock })

	ctx := context.Background()
	m.Put(ctx, "k", sampleDataset("preset_3"))

	clock = t0.Add(899999 * time.Millisecond)
	if m.Get(ctx, "k") == nil {
		t.Fatal("entry must still be valid 1ms before the TTL")
	}

	clock = t0.Add(900001 * time.Millisecond)
	if got := m.Get(ctx, "k"); got != nil {
		t.Fatalf("entry must be expired 1ms past the TTL, got %+v", got)
	}
	// The expired entry is gone; an earlier clock cannot resurrect it.
	clock = t0
	if m.Get(ctx, "k") != nil {
		t.Fatal("expired entry must have been removed")
	}
}

func TestManagerCorruptEntryIsDropped(t *testing.T) {
	store := NewMemoryStore()
	m := newManagerWithStore(store, 15*time.Minute, time.Now)

	ctx := context.Background()
	if err := store.Set(ctx, "k", []byte("not json")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if got := m.Get(ctx, "k"); got != nil {
		t.Fatalf("corrupt entry must read as a miss, got %+v", got)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatal("corrupt entry must be deleted")
	}
}

// failingStore rejects writes, standing in for a full disk or quota limit.
type failingStore struct {
	*MemoryStore
	setErr error
}

func (s *failingStore) Set(ctx context.Context, key string, value []byte) error {
	return s.setErr
}

func TestManagerToleratesWriteFailure(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), setErr: errors.New("quota exceeded")}
	m := newManagerWithStore(store, 15*time.Minute, time.Now)

	// Must not panic or error; the caller's in-memory dataset stays valid.
	m.Put(context.Background(), "k", sampleDataset("preset_3"))
	if got := m.Get(context.Background(), "k"); got != nil {
		t.Fatalf("nothing should have been stored, got %+v", got)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	ctx := context.Background()
	if err := store.Set(ctx, "hodl_data_cache_preset_7", []byte(`{"timestamp":1}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	raw, err := store.Get(ctx, "hodl_data_cache_preset_7")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(raw) != `{"timestamp":1}` {
		t.Fatalf("unexpected payload: %s", raw)
	}

	if err := store.Delete(ctx, "hodl_data_cache_preset_7"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "hodl_data_cache_preset_7"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after delete, got %v", err)
	}
	// Deleting twice is fine.
	if err := store.Delete(ctx, "hodl_data_cache_preset_7"); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
}

func TestManagerInvalidate(t *testing.T) {
	m := newManagerWithStore(NewMemoryStore(), 15*time.Minute, time.Now)
	ctx := context.Background()

	m.Put(ctx, "k", sampleDataset("preset_3"))
	m.Invalidate(ctx, "k")
	if m.Get(ctx, "k") != nil {
		t.Fatal("invalidated entry must read as a miss")
	}
}
