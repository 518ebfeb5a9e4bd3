package state

import (
	"testing"

	"github.com/pable/go-tennis-features/internal/model"
)

func winContribution(won bool) contribution {
	return matchContribution(Outcome{Won: won})
}

func TestRingEvictsOldest(t *testing.T) {
	r := newRing(3)
	r.push(winContribution(true))
	r.push(winContribution(false))
	r.push(winContribution(true))
	if got := r.sum[model.StatWinRate]; got.s != 2 || got.a != 3 {
		t.Fatalf("full ring sum: want 2/3, got %v/%v", got.s, got.a)
	}

	// The first win drops out.
	r.push(winContribution(false))
	if got := r.sum[model.StatWinRate]; got.s != 1 || got.a != 3 {
		t.Errorf("after eviction: want 1/3, got %v/%v", got.s, got.a)
	}
	if !r.full || r.next != 1 {
		t.Errorf("cursor: full=%v next=%d, want true 1", r.full, r.next)
	}
}

func TestSmooth(t *testing.T) {
	cases := []struct {
		name  string
		x     ratio
		c     float64
		prior float64
		want  float64
	}{
		{"no data returns prior", ratio{}, 10, 0.4, 0.4},
		{"one win", ratio{1, 1}, 10, 0.5, 6.0 / 11.0},
		{"zero C is raw rate", ratio{3, 4}, 0, 0.5, 0.75},
		{"zero C no data", ratio{}, 0, 0.3, 0.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := smooth(tc.x, tc.c, tc.prior); got != tc.want {
				t.Errorf("smooth = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMatchContributionWithoutServeStats(t *testing.T) {
	c := matchContribution(Outcome{Won: true, SetsPlayed: 3, TiebreaksPlayed: 1, TiebreaksWon: 1})
	if c[model.StatAcePct].a != 0 {
		t.Errorf("ace attempts without serve stats: want 0, got %v", c[model.StatAcePct].a)
	}
	if got := c[model.StatTiebreakRate]; got.s != 1 || got.a != 3 {
		t.Errorf("tiebreak rate: want 1/3, got %v/%v", got.s, got.a)
	}
	if got := c[model.StatTiebreakWonPct]; got.s != 1 || got.a != 1 {
		t.Errorf("tiebreak won: want 1/1, got %v/%v", got.s, got.a)
	}
}
