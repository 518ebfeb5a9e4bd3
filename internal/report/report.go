package report

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-tennis-features/internal/model"
	"github.com/pable/go-tennis-features/internal/parser"
	"github.com/pable/go-tennis-features/internal/storage"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// shortID trims a run id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// PrintRunSummary prints a one-line summary header for a run.
func PrintRunSummary(w io.Writer, r storage.Run) {
	fmt.Fprintf(w, "\nRun: %s  |  Created: %s  |  Matches: %d  |  Players: %d  |  Skipped: %d  |  Rank warnings: %d\n",
		shortID(r.ID), r.CreatedAt.Format("2006-01-02 15:04"), r.Matches, r.Players, r.Skipped, r.Warnings)
	if r.OutPath != "" {
		fmt.Fprintf(w, "Output: %s\n", r.OutPath)
	}
	fmt.Fprintln(w)
}

// PrintRunsTable lists stored runs, newest first.
func PrintRunsTable(w io.Writer, runs []storage.Run) {
	table := newTable(w)
	table.Header("RUN", "CREATED", "FILES", "MATCHES", "PLAYERS", "SKIPPED", "WARN", "DIGEST")
	for _, r := range runs {
		table.Append(
			shortID(r.ID),
			r.CreatedAt.Format("2006-01-02 15:04"),
			strconv.Itoa(len(r.Inputs)),
			strconv.Itoa(r.Matches),
			strconv.Itoa(r.Players),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Warnings),
			r.Digest[:min(12, len(r.Digest))],
		)
	}
	table.Render()
}

// PrintRatingTable prints final ratings. If focus is non-empty, that
// player's row is marked with ">".
func PrintRatingTable(w io.Writer, ratings []storage.PlayerRating, focus string) {
	table := newTable(w)
	table.Header(" ", "#", "PLAYER", "ID", "ELO", "CLAY", "GRASS", "HARD", "CARPET", "M", "LAST", "ROOKIE")
	for i, p := range ratings {
		marker := " "
		if focus != "" && p.PlayerID == focus {
			marker = ">"
		}
		rookie := ""
		if p.Rookie {
			rookie = "yes"
		}
		row := []any{marker, strconv.Itoa(i + 1), p.Name, p.PlayerID, fmt.Sprintf("%.0f", p.Global)}
		for _, s := range model.Surfaces {
			row = append(row, fmt.Sprintf("%.0f", p.Surface[s]))
		}
		row = append(row, strconv.Itoa(p.Matches), p.LastMatch, rookie)
		table.Append(row...)
	}
	table.Render()
}

// PrintTrendTable prints a player's matches in replay order with the
// pre-match ratings of both sides.
func PrintTrendTable(w io.Writer, points []storage.TrendPoint) {
	table := newTable(w)
	table.Header("DATE", "TOURNAMENT", "RND", "SURF", "OPPONENT", "ELO", "OPP_ELO", "EDGE", "W/L", "ΔELO")
	for i, p := range points {
		res := "L"
		if p.Won {
			res = "W"
		}
		// The next match's pre-match rating includes this result.
		change := "—"
		if i+1 < len(points) {
			change = fmt.Sprintf("%+.1f", points[i+1].Elo-p.Elo)
		}
		table.Append(
			p.Date,
			p.TournamentName,
			p.Round,
			p.Surface,
			p.OpponentName,
			fmt.Sprintf("%.0f", p.Elo),
			fmt.Sprintf("%.0f", p.OpponentElo),
			fmt.Sprintf("%+.0f", p.Elo-p.OpponentElo),
			res,
			change,
		)
	}
	table.Render()
}

// PrintPlayerOverview prints the win-loss record across points with a 95%
// interval on the win rate.
func PrintPlayerOverview(w io.Writer, name string, points []storage.TrendPoint) {
	wins := 0
	for _, p := range points {
		if p.Won {
			wins++
		}
	}
	n := len(points)
	lo, hi := wilsonCI(wins, n)
	pct := 0.0
	if n > 0 {
		pct = float64(wins) / float64(n) * 100
	}
	fmt.Fprintf(w, "\n%s  |  %d-%d  |  Win: %.1f%% [%.1f%%, %.1f%%]  |  Sample: %s\n\n",
		name, wins, n-wins, pct, lo*100, hi*100, sampleFlag(n))
}

func sampleFlag(n int) string {
	switch {
	case n >= 50:
		return "OK"
	case n >= 20:
		return "LOW"
	default:
		return "VERY_LOW"
	}
}

// wilsonCI computes the 95% Wilson score confidence interval for a proportion.
// Returns (lo, hi) as fractions in [0, 1].
func wilsonCI(hits, n int) (lo, hi float64) {
	if n == 0 {
		return 0, 1
	}
	z := 1.96
	p := float64(hits) / float64(n)
	nf := float64(n)
	denom := 1 + z*z/nf
	center := (p + z*z/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf)) / denom
	return math.Max(0, center-half), math.Min(1, center+half)
}

// PrintMalformedTable lists up to limit skipped input rows.
func PrintMalformedTable(w io.Writer, malformed []*parser.MalformedRecordError, limit int) {
	if len(malformed) == 0 {
		return
	}
	table := newTable(w)
	table.Header("FILE", "LINE", "FIELD", "REASON")
	for i, m := range malformed {
		if i == limit {
			break
		}
		table.Append(filepath.Base(m.File), strconv.Itoa(m.Line), m.Field, m.Reason)
	}
	table.Render()
	if len(malformed) > limit {
		fmt.Fprintf(w, "(%d more not shown)\n", len(malformed)-limit)
	}
}

// PrintQueryTable prints the result of a raw query.
func PrintQueryTable(w io.Writer, cols []string, rows [][]string) {
	table := newTable(w)
	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
}
