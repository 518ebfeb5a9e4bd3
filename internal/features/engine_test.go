package features

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/pable/go-tennis-features/internal/config"
	"github.com/pable/go-tennis-features/internal/model"
	"github.com/pable/go-tennis-features/internal/rating"
)

func day(n int) time.Time {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func entry(id string, rank int) model.PlayerEntry {
	return model.PlayerEntry{ID: id, Name: "P" + id, Rank: rank}
}

// match builds a hard-court record with a on the A side.
func match(d int, num int, a, b model.PlayerEntry, aWon bool, score string) model.MatchRecord {
	r := model.MatchRecord{
		TournamentID:    "T1",
		TournamentLevel: "A",
		Date:            day(d),
		MatchNum:        num,
		Surface:         model.SurfaceHard,
		Round:           "R32",
		BestOf:          3,
		Score:           score,
		PlayerA:         a,
		PlayerB:         b,
		WinnerID:        b.ID,
	}
	if aWon {
		r.WinnerID = a.ID
	}
	return r
}

func run(t *testing.T, recs []model.MatchRecord) ([]model.FeatureRow, *Engine) {
	t.Helper()
	e := New(config.Default().Engine, nil)
	var tbl Table
	if _, err := e.Run(context.Background(), slices.Values(recs), tbl.Add); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return tbl.Rows(), e
}

func diff(t *testing.T, r model.FeatureRow, name string) float64 {
	t.Helper()
	v, ok := r.Diff(name)
	if !ok {
		t.Fatalf("diff %s undefined", name)
	}
	return v
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

var (
	p1 = entry("1", 10)
	p2 = entry("2", 20)
	p3 = entry("3", 30)
)

func fourMatches() []model.MatchRecord {
	return []model.MatchRecord{
		match(0, 1, p1, p2, true, "6-4 6-4"),
		match(10, 1, p1, p2, true, "6-4 6-4"),
		match(15, 1, p2, p1, true, "6-4 6-4"),
		match(40, 1, p3, p1, false, "6-4 6-4"),
	}
}

func TestEndToEnd(t *testing.T) {
	rows, e := run(t, fourMatches())
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	params := rating.Params{K: 32, MoVScale: 0.6, MoVFloor: 1}

	// Match 1: both unseen.
	if v := diff(t, rows[0], "elo"); v != 0 {
		t.Errorf("row1 diff_elo = %v, want 0", v)
	}
	if v := diff(t, rows[0], "h2h"); v != 0 {
		t.Errorf("row1 diff_h2h = %v, want 0", v)
	}
	if _, ok := rows[0].Diff("days_since"); ok {
		t.Error("row1 diff_days_since should be undefined")
	}
	if !rows[0].A.IsFirstMatch || rows[0].A.DaysSinceLast != nil {
		t.Error("row1 A should be a first match")
	}

	// Match 2: 1516 vs 1484 on both global and hard.
	if v := diff(t, rows[1], "elo"); !near(v, 32) {
		t.Errorf("row2 diff_elo = %v, want 32", v)
	}
	if v := diff(t, rows[1], "h2h"); v != 1 {
		t.Errorf("row2 diff_h2h = %v, want 1", v)
	}
	if v := diff(t, rows[1], "days_since"); v != 0 {
		t.Errorf("row2 diff_days_since = %v, want 0", v)
	}
	if d := rows[1].A.DaysSinceLast; d == nil || *d != 10 {
		t.Errorf("row2 A days_since = %v, want 10", d)
	}

	// Match 3: A is player 2, who has lost twice.
	d2 := params.Delta(1516, 1484, 1, 4)
	r1, r2 := 1516+d2, 1484-d2
	if v := diff(t, rows[2], "elo"); !near(v, r2-r1) {
		t.Errorf("row3 diff_elo = %v, want %v", v, r2-r1)
	}
	if v := diff(t, rows[2], "h2h"); v != -2 {
		t.Errorf("row3 diff_h2h = %v, want -2", v)
	}
	if v := diff(t, rows[2], "days_since"); v != 0 {
		t.Errorf("row3 diff_days_since = %v, want 0", v)
	}

	// Match 4: newcomer 3 against player 1 after 1's loss.
	d3 := params.Delta(r2, r1, 1, 4)
	r1 -= d3
	if v := diff(t, rows[3], "elo"); !near(v, 1500-r1) {
		t.Errorf("row4 diff_elo = %v, want %v", v, 1500-r1)
	}
	if _, ok := rows[3].Diff("days_since"); ok {
		t.Error("row4 diff_days_since should be undefined for a newcomer")
	}
	if d := rows[3].B.DaysSinceLast; d == nil || *d != 25 {
		t.Errorf("row4 B days_since = %v, want 25", d)
	}
	if rows[3].Label() != 0 {
		t.Error("row4 label should be 0")
	}

	s, ok := e.Store().Get("3")
	if !ok || s.Matches != 1 {
		t.Errorf("player 3 summary = %+v", s)
	}
}

func TestMarginOfVictory(t *testing.T) {
	rows, e := run(t, []model.MatchRecord{match(0, 1, p1, p2, true, "6-0 6-0")})
	if len(rows) != 1 {
		t.Fatal("no row")
	}
	s, _ := e.Store().Get("1")
	want := 1500 + 16*rating.MoVMultiplier(12, 0.6, 1)
	if !near(s.RatingGlobal, want) {
		t.Errorf("rating = %v, want %v", s.RatingGlobal, want)
	}
	if s.RatingGlobal-1500 <= 16 {
		t.Error("6-0 6-0 should move ratings more than the floor")
	}
}

func rowsEqual(a, b model.FeatureRow) bool {
	if a.AWon != b.AWon || a.A.ID != b.A.ID || a.B.ID != b.B.ID || !a.Date.Equal(b.Date) {
		return false
	}
	va := append(append(a.A.Vector(), a.B.Vector()...), a.Diffs...)
	vb := append(append(b.A.Vector(), b.B.Vector()...), b.Diffs...)
	if len(va) != len(vb) {
		return false
	}
	for i := range va {
		if math.IsNaN(va[i]) && math.IsNaN(vb[i]) {
			continue
		}
		if va[i] != vb[i] {
			return false
		}
	}
	return true
}

func TestNoLeakage(t *testing.T) {
	recs := fourMatches()
	recs[1].PlayerA.Stats = model.MatchStats{HasServeStats: true, Aces: 10, ServePoints: 60, FirstServesIn: 40, FirstServeWon: 30}
	base, _ := run(t, recs)

	// Change everything about match 3 except who played and who won.
	mutated := slices.Clone(recs)
	mutated[2].Score = "7-6(5) 7-6(5)"
	mutated[2].PlayerA.Stats = model.MatchStats{HasServeStats: true, Aces: 25, DoubleFaults: 9, ServePoints: 90, BreakPointsFaced: 7, BreakPointsSaved: 1}
	got, _ := run(t, mutated)

	for i := 0; i <= 2; i++ {
		if !rowsEqual(base[i], got[i]) {
			t.Errorf("row %d changed after mutating match 3", i+1)
		}
	}
	if rowsEqual(base[3], got[3]) {
		t.Error("row 4 should reflect match 3")
	}
}

func TestReplayDeterministic(t *testing.T) {
	a, _ := run(t, fourMatches())
	b, _ := run(t, fourMatches())
	for i := range a {
		if !rowsEqual(a[i], b[i]) {
			t.Errorf("row %d differs between runs", i)
		}
	}
}

func TestOutOfOrder(t *testing.T) {
	recs := []model.MatchRecord{
		match(10, 1, p1, p2, true, "6-4 6-4"),
		match(5, 1, p1, p3, true, "6-4 6-4"),
	}
	e := New(config.Default().Engine, nil)
	var tbl Table
	sum, err := e.Run(context.Background(), slices.Values(recs), tbl.Add)
	var ooe *OutOfOrderRecordError
	if !errors.As(err, &ooe) {
		t.Fatalf("err = %v, want OutOfOrderRecordError", err)
	}
	if !ooe.Got.Date.Equal(day(5)) || !ooe.Prev.Date.Equal(day(10)) {
		t.Errorf("error keys = %v / %v", ooe.Prev, ooe.Got)
	}
	if tbl.Len() != 1 || sum.Matches != 1 {
		t.Errorf("rows=%d matches=%d, want 1", tbl.Len(), sum.Matches)
	}
}

func TestCancelBetweenMatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := New(config.Default().Engine, nil)
	emit := func(model.FeatureRow) error {
		cancel()
		return nil
	}
	sum, err := e.Run(ctx, slices.Values(fourMatches()), emit)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// The first match was emitted and applied in full.
	if sum.Matches != 1 || sum.Players != 2 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestEmitErrorAborts(t *testing.T) {
	boom := errors.New("disk full")
	e := New(config.Default().Engine, nil)
	_, err := e.Run(context.Background(), slices.Values(fourMatches()), func(model.FeatureRow) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if e.Store().Len() != 0 {
		t.Error("state was updated for an unemitted match")
	}
}

func TestRowContext(t *testing.T) {
	rec := match(0, 1, p1, p2, true, "6-4 6-4")
	rec.TournamentLevel, rec.Round = "G", "F"
	rows, _ := run(t, []model.MatchRecord{rec})
	if rows[0].TournamentPts != 2000 || rows[0].RoundImportance != 7 {
		t.Errorf("pts=%d importance=%d", rows[0].TournamentPts, rows[0].RoundImportance)
	}
	if len(rows[0].Names) != len(rows[0].Diffs) {
		t.Errorf("names=%d diffs=%d", len(rows[0].Names), len(rows[0].Diffs))
	}
}

func TestHomeFeature(t *testing.T) {
	home, away := entry("1", 10), entry("2", 20)
	home.Country, away.Country = "ESP", "SRB"
	rec := match(0, 1, home, away, true, "6-4 6-4")
	rec.TournamentName = "Madrid Masters"
	rows, _ := run(t, []model.MatchRecord{rec})

	if !rows[0].A.IsHome || rows[0].B.IsHome {
		t.Errorf("is_home: a=%v b=%v", rows[0].A.IsHome, rows[0].B.IsHome)
	}
	if d := diff(t, rows[0], "is_home"); d != 1 {
		t.Errorf("diff_is_home = %v, want 1", d)
	}
}

func TestIsHome(t *testing.T) {
	tests := []struct {
		country, tournament string
		want                bool
	}{
		{"FRA", "Roland Garros", true},
		{"usa", "us open", true},
		{"GBR", "Queens Club", true},
		{"GBR", "Roland Garros", false},
		{"SRB", "Belgrade", false},
		{"", "Madrid Masters", false},
	}
	for _, tt := range tests {
		if got := IsHome(tt.country, tt.tournament); got != tt.want {
			t.Errorf("IsHome(%q, %q) = %v, want %v", tt.country, tt.tournament, got, tt.want)
		}
	}
}

func TestTournamentPoints(t *testing.T) {
	tests := []struct {
		level, name string
		draw        int
		want        int
	}{
		{"G", "Wimbledon", 128, 2000},
		{"M", "Indian Wells Masters", 96, 1000},
		{"F", "Tour Finals", 8, 1500},
		{"D", "Davis Cup WG", 4, 0},
		{"A", "Rotterdam", 32, 500},
		{"A", "Washington", 48, 500},
		{"A", "Doha", 32, 250},
		{"C", "Challenger", 32, 0},
	}
	for _, tt := range tests {
		if got := TournamentPoints(tt.level, tt.name, tt.draw); got != tt.want {
			t.Errorf("TournamentPoints(%q, %q, %d) = %d, want %d", tt.level, tt.name, tt.draw, got, tt.want)
		}
	}
	if RoundImportance("R16") != 4 || RoundImportance("Q1") != 1 {
		t.Error("round importance")
	}
}
