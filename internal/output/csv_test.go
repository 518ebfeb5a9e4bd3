package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"slices"
	"testing"
	"time"

	"github.com/pable/go-tennis-features/internal/config"
	"github.com/pable/go-tennis-features/internal/features"
	"github.com/pable/go-tennis-features/internal/model"
)

func records() []model.MatchRecord {
	p1 := model.PlayerEntry{ID: "104925", Name: "Novak Djokovic", Rank: 1}
	p2 := model.PlayerEntry{ID: "104745", Name: "Rafael Nadal", Rank: 2}
	p3 := model.PlayerEntry{ID: "999001", Name: "Qualifier, Jr."}
	d := time.Date(2019, 1, 14, 0, 0, 0, 0, time.UTC)
	mk := func(day, num int, a, b model.PlayerEntry, winner, score string) model.MatchRecord {
		return model.MatchRecord{
			TournamentID: "2019-580", TournamentName: "Australian Open", TournamentLevel: "G",
			Date: d.AddDate(0, 0, day), MatchNum: num, Surface: model.SurfaceHard,
			Round: "R128", BestOf: 5, Score: score, PlayerA: a, PlayerB: b, WinnerID: winner,
		}
	}
	return []model.MatchRecord{
		mk(0, 1, p1, p3, "104925", "6-3 6-4 6-4"),
		mk(0, 2, p3, p2, "104745", "6-4 6-3 7-6(4)"),
		mk(13, 127, p2, p1, "104925", "6-3 6-2 6-3"),
	}
}

func build(t *testing.T) []byte {
	t.Helper()
	e := features.New(config.Default().Engine, nil)
	var buf bytes.Buffer
	w := NewWriter(&buf, e.Names())
	if _, err := e.Run(context.Background(), slices.Values(records()), w.Write); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return buf.Bytes()
}

func TestWriteTable(t *testing.T) {
	out := build(t)
	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	header := rows[0]
	col := func(name string) int {
		i := slices.Index(header, name)
		if i < 0 {
			t.Fatalf("missing column %s", name)
		}
		return i
	}
	for _, r := range rows[1:] {
		if len(r) != len(header) {
			t.Fatalf("row width %d, header %d", len(r), len(header))
		}
	}

	first := rows[1]
	if first[col("a_days_since")] != "" || first[col("diff_days_since")] != "" {
		t.Error("days since should be empty on a first match")
	}
	if first[col("b_rank")] != "" {
		t.Errorf("absent rank = %q, want empty", first[col("b_rank")])
	}
	if first[col("tournament_points")] != "2000" || first[col("round_importance")] != "1" {
		t.Errorf("context = %v", first[:10])
	}
	if first[col("b_name")] != "Qualifier, Jr." {
		t.Errorf("quoted name = %q", first[col("b_name")])
	}
	if first[col("label")] != "1" {
		t.Errorf("label = %q", first[col("label")])
	}

	final := rows[3]
	if final[col("diff_h2h")] != "0" || final[col("diff_days_since")] != "0" || final[col("label")] != "0" {
		t.Errorf("final row h2h=%q days=%q label=%q",
			final[col("diff_h2h")], final[col("diff_days_since")], final[col("label")])
	}
	if final[col("a_days_since")] != "13" {
		t.Errorf("a_days_since = %q, want 13", final[col("a_days_since")])
	}
}

func TestReplayIsByteIdentical(t *testing.T) {
	if !bytes.Equal(build(t), build(t)) {
		t.Error("two runs over the same input produced different CSV")
	}
}

func TestEmptyTableHasHeader(t *testing.T) {
	var buf bytes.Buffer
	names := model.FeatureNames(config.Default().Engine.TrackedWindows())
	w := NewWriter(&buf, names)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || len(rows[0]) != len(Header(names)) {
		t.Errorf("got %d rows", len(rows))
	}
}
