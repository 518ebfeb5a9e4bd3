package rating

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestExpectedEqualRatings(t *testing.T) {
	if got := Expected(1500, 1500); math.Abs(got-0.5) > eps {
		t.Errorf("Expected(1500,1500) = %v, want 0.5", got)
	}
	// A 400-point edge is 10:1 odds.
	if got := Expected(1900, 1500); math.Abs(got-10.0/11.0) > eps {
		t.Errorf("Expected(1900,1500) = %v, want %v", got, 10.0/11.0)
	}
	if sum := Expected(1620, 1480) + Expected(1480, 1620); math.Abs(sum-1) > eps {
		t.Errorf("expectations should sum to 1, got %v", sum)
	}
}

func TestMoVMultiplier(t *testing.T) {
	cases := []struct {
		name     string
		gameDiff int
		want     float64
	}{
		// 6-0 6-0: 12 games.
		{"bagel double", 12, math.Log(13) * 0.6},
		{"zero diff floors at 1", 0, 1.0},
		// ln(5)*0.6 = 0.9657, below the floor.
		{"small diff floors", 4, 1.0},
		{"negative treated by magnitude", -12, math.Log(13) * 0.6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MoVMultiplier(tc.gameDiff, 0.6, 1.0)
			if math.Abs(got-tc.want) > eps {
				t.Errorf("MoVMultiplier(%d) = %v, want %v", tc.gameDiff, got, tc.want)
			}
		})
	}
	if got := MoVMultiplier(12, 0.6, 1.0); math.Abs(got-1.5390) > 1e-4 {
		t.Errorf("MoVMultiplier(12) = %.4f, want ~1.5390", got)
	}
}

func TestDeltaZeroSum(t *testing.T) {
	p := Params{K: 32, MoVScale: 0.6, MoVFloor: 1}
	dw, dl := p.Delta(1500, 1500, 1, 0), p.Delta(1500, 1500, 0, 0)
	if math.Abs(dw-16) > eps || math.Abs(dl+16) > eps {
		t.Errorf("Delta at 1500/1500 = %v,%v want 16,-16", dw, dl)
	}

	dw, dl = p.Delta(1600, 1450, 1, 12), p.Delta(1450, 1600, 0, 12)
	if math.Abs(dw+dl) > eps {
		t.Errorf("deltas should cancel: %v + %v", dw, dl)
	}
	want := 32 * (1 - Expected(1600, 1450)) * math.Log(13) * 0.6
	if math.Abs(dw-want) > eps {
		t.Errorf("winner delta = %v, want %v", dw, want)
	}
}
