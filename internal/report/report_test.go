package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/pable/go-tennis-features/internal/model"
	"github.com/pable/go-tennis-features/internal/parser"
	"github.com/pable/go-tennis-features/internal/storage"
)

func TestWilsonCI(t *testing.T) {
	lo, hi := wilsonCI(0, 0)
	if lo != 0 || hi != 1 {
		t.Errorf("empty sample = [%v, %v], want [0, 1]", lo, hi)
	}
	lo, hi = wilsonCI(5, 10)
	if math.Abs((lo+hi)/2-0.5) > 1e-12 {
		t.Errorf("5/10 interval not centred: [%v, %v]", lo, hi)
	}
	if lo < 0.2 || hi > 0.8 {
		t.Errorf("5/10 interval = [%v, %v]", lo, hi)
	}
	if lo, _ := wilsonCI(10, 10); lo <= 0.6 {
		t.Errorf("10/10 lower bound = %v", lo)
	}
}

func TestPrintRatingTable(t *testing.T) {
	var buf bytes.Buffer
	p := storage.PlayerRating{PlayerID: "104925", Name: "Novak Djokovic", Global: 2101.4, Matches: 80, LastMatch: "2019-11-20"}
	p.Surface[model.SurfaceHard] = 2150
	PrintRatingTable(&buf, []storage.PlayerRating{p}, "104925")
	out := buf.String()
	for _, want := range []string{"Novak Djokovic", "2101", "2150", ">"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintMalformedTableLimit(t *testing.T) {
	var buf bytes.Buffer
	var ms []*parser.MalformedRecordError
	for i := 0; i < 5; i++ {
		ms = append(ms, &parser.MalformedRecordError{File: "/data/atp_matches_2019.csv", Line: i + 2, Field: "tourney_date", Reason: "missing"})
	}
	PrintMalformedTable(&buf, ms, 3)
	out := buf.String()
	if !strings.Contains(out, "atp_matches_2019.csv") || strings.Contains(out, "/data/") {
		t.Errorf("file column should show the base name:\n%s", out)
	}
	if !strings.Contains(out, "(2 more not shown)") {
		t.Errorf("missing overflow note:\n%s", out)
	}
}
