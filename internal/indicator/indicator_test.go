package indicator

import (
	"math"
	"testing"
)

func vals(fs ...float64) []*float64 {
	out := make([]*float64, len(fs))
	for i := range fs {
		v := fs[i]
		out[i] = &v
	}
	return out
}

func TestSMA(t *testing.T) {
	got := SMA(vals(1, 2, 3, 4, 5), 3)

	if got[0] != nil || got[1] != nil {
		t.Fatal("slots before a full window must be undefined")
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		g := got[i+2]
		if g == nil || *g != w {
			t.Fatalf("SMA[%d]: expected %v, got %v", i+2, w, g)
		}
	}
}

func TestSMAGapMakesWindowUndefined(t *testing.T) {
	in := vals(1, 2, 3, 4, 5)
	in[2] = nil
	got := SMA(in, 3)

	// Windows ending at 2, 3 and 4 all cover the gap.
	for i := 2; i <= 4; i++ {
		if got[i] != nil {
			t.Errorf("SMA[%d] covers an absent reading and must be undefined, got %v", i, *got[i])
		}
	}
}

func TestSMAShortSeries(t *testing.T) {
	got := SMA(vals(1, 2), 3)
	for i, g := range got {
		if g != nil {
			t.Errorf("SMA[%d] on a short series must be undefined, got %v", i, *g)
		}
	}
	if got := SMA(nil, 3); len(got) != 0 {
		t.Errorf("empty input must yield empty output, got %d slots", len(got))
	}
}

func TestEMASeedEqualsSMA(t *testing.T) {
	in := vals(10, 20, 30, 40, 50)
	p := 3

	sma := SMA(in, p)
	ema := EMA(in, p)

	if ema[0] != nil || ema[1] != nil {
		t.Fatal("EMA before the seed index must be undefined")
	}
	if ema[p-1] == nil || sma[p-1] == nil || *ema[p-1] != *sma[p-1] {
		t.Fatalf("EMA[p-1] must equal SMA[p-1]: ema=%v sma=%v", ema[p-1], sma[p-1])
	}

	// EMA[3] = 40*0.5 + 20*0.5 = 30, with k = 2/(3+1).
	if ema[3] == nil || *ema[3] != 30 {
		t.Fatalf("EMA[3]: expected 30, got %v", ema[3])
	}
}

func TestEMACarriesForwardOverGaps(t *testing.T) {
	in := vals(10, 20, 30, 0, 50)
	in[3] = nil
	ema := EMA(in, 3)

	if ema[2] == nil || *ema[2] != 20 {
		t.Fatalf("seed: expected 20, got %v", ema[2])
	}
	if ema[3] == nil || *ema[3] != 20 {
		t.Fatalf("gap must carry the previous EMA forward, got %v", ema[3])
	}
	// EMA[4] = 50*0.5 + 20*0.5 = 35.
	if ema[4] == nil || *ema[4] != 35 {
		t.Fatalf("EMA[4]: expected 35, got %v", ema[4])
	}
}

func TestBollinger(t *testing.T) {
	b := Bollinger(vals(2, 4, 6), 3)

	if b.Middle[0] != nil || b.Upper[1] != nil {
		t.Fatal("bands before a full window must be undefined")
	}

	// mean = 4, population sigma = sqrt(8/3).
	sigma := math.Sqrt(8.0 / 3.0)
	if b.Middle[2] == nil || *b.Middle[2] != 4 {
		t.Fatalf("middle: expected 4, got %v", b.Middle[2])
	}
	if b.Upper[2] == nil || math.Abs(*b.Upper[2]-(4+2*sigma)) > 1e-12 {
		t.Fatalf("upper: expected %v, got %v", 4+2*sigma, b.Upper[2])
	}
	if b.Lower[2] == nil || math.Abs(*b.Lower[2]-(4-2*sigma)) > 1e-12 {
		t.Fatalf("lower: expected %v, got %v", 4-2*sigma, b.Lower[2])
	}
}

func TestPeriodPolicy(t *testing.T) {
	cases := []struct{ days, sma, boll int }{
		{3, 3, 5},
		{7, 7, 10},
		{10, 30, 10},
		{30, 30, 20},
		{90, 30, 20},
	}
	for _, tc := range cases {
		if got := PeriodFor(tc.days); got != tc.sma {
			t.Errorf("PeriodFor(%d): expected %d, got %d", tc.days, tc.sma, got)
		}
		if got := BollingerPeriodFor(tc.days); got != tc.boll {
			t.Errorf("BollingerPeriodFor(%d): expected %d, got %d", tc.days, tc.boll, got)
		}
	}
}
