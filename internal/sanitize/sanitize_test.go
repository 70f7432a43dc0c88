package sanitize

import (
	"math"
	"testing"

	"hodlflow/models"
)

func fp(v float64) *float64 { return &v }

func TestPrice(t *testing.T) {
	cases := []struct {
		name string
		in   *float64
		want *float64
	}{
		{"nil stays nil", nil, nil},
		{"zero becomes absent", fp(0), nil},
		{"negative becomes absent", fp(-5), nil},
		{"nan becomes absent", fp(math.NaN()), nil},
		{"positive infinity becomes absent", fp(math.Inf(1)), nil},
		{"tiny positive survives", fp(0.0001), fp(0.0001)},
		{"normal price survives", fp(1.23), fp(1.23)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Price(tc.in)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected %v, got nil", *tc.want)
			}
			if *got != *tc.want {
				t.Fatalf("expected %v, got %v", *tc.want, *got)
			}
		})
	}
}

func TestSnapshotScrubsOnlyPriceFields(t *testing.T) {
	s := models.Snapshot{
		Price:    fp(0),
		SOLPrice: fp(-1),
		BTCPrice: fp(65000),
		Holders:  fp(0),
	}

	got := Snapshot(s)

	if got.Price != nil {
		t.Errorf("zero price should be scrubbed, got %v", *got.Price)
	}
	if got.SOLPrice != nil {
		t.Errorf("negative sol price should be scrubbed, got %v", *got.SOLPrice)
	}
	if got.BTCPrice == nil || *got.BTCPrice != 65000 {
		t.Errorf("valid btc price should survive, got %v", got.BTCPrice)
	}
	if got.Holders == nil || *got.Holders != 0 {
		t.Errorf("zero holders is real data and must survive, got %v", got.Holders)
	}
	// The input value is untouched.
	if s.Price == nil || *s.Price != 0 {
		t.Errorf("input snapshot should not be modified")
	}
}

func TestSnapshotsPreservesLengthAndOrder(t *testing.T) {
	in := []models.Snapshot{
		{Price: fp(1.0)},
		{Price: fp(0)},
		{Price: fp(2.0)},
	}

	got := Snapshots(in)
	if len(got) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(got))
	}
	if got[0].Price == nil || *got[0].Price != 1.0 {
		t.Errorf("snapshot 0 price mangled: %v", got[0].Price)
	}
	if got[1].Price != nil {
		t.Errorf("snapshot 1 price should be scrubbed")
	}
	if got[2].Price == nil || *got[2].Price != 2.0 {
		t.Errorf("snapshot 2 price mangled: %v", got[2].Price)
	}

	if Snapshots(nil) != nil {
		t.Error("nil input should stay nil")
	}
}

func TestChartableDropsPricelessRecords(t *testing.T) {
	in := []models.Snapshot{
		{Price: fp(1.0)},
		{Price: fp(0), Holders: fp(5000)}, // all prices invalid, dropped
		{SOLPrice: fp(150)},
		{},
	}

	got := Chartable(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 chartable snapshots, got %d", len(got))
	}
	if got[0].Price == nil || *got[0].Price != 1.0 {
		t.Errorf("first chartable snapshot mangled: %v", got[0].Price)
	}
	if got[1].SOLPrice == nil || *got[1].SOLPrice != 150 {
		t.Errorf("second chartable snapshot mangled: %v", got[1].SOLPrice)
	}
}
