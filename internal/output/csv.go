// Package output writes feature rows as the CSV training table.
package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pable/go-tennis-features/internal/model"
)

var contextColumns = []string{
	"date", "tournament_id", "tournament_name", "tournament_level", "tournament_points",
	"match_num", "round", "round_importance", "surface", "best_of",
	"a_id", "a_name", "b_id", "b_name",
}

// Header returns the CSV header for the given base feature names.
func Header(names []string) []string {
	h := make([]string, 0, len(contextColumns)+3*len(names)+1)
	h = append(h, contextColumns...)
	for _, prefix := range []string{"a_", "b_", "diff_"} {
		for _, n := range names {
			h = append(h, prefix+n)
		}
	}
	return append(h, "label")
}

// Writer streams feature rows as CSV. The header is written before the
// first row, or on Flush if there were no rows.
type Writer struct {
	cw      *csv.Writer
	names   []string
	started bool
	rec     []string
}

// NewWriter returns a Writer for rows whose Names equal names.
func NewWriter(w io.Writer, names []string) *Writer {
	return &Writer{cw: csv.NewWriter(w), names: names}
}

func (w *Writer) header() error {
	if w.started {
		return nil
	}
	w.started = true
	return w.cw.Write(Header(w.names))
}

// Write appends one row. It has the signature of an emit func.
func (w *Writer) Write(r model.FeatureRow) error {
	if err := w.header(); err != nil {
		return err
	}
	rec := w.rec[:0]
	rec = append(rec,
		r.Date.Format("2006-01-02"), r.TournamentID, r.TournamentName, r.TournamentLevel,
		strconv.Itoa(r.TournamentPts), strconv.Itoa(r.MatchNum), r.Round,
		strconv.Itoa(r.RoundImportance), r.Surface.String(), strconv.Itoa(r.BestOf),
		r.A.ID, r.A.Name, r.B.ID, r.B.Name,
	)
	rec = appendValues(rec, r.A.Vector())
	rec = appendValues(rec, r.B.Vector())
	rec = appendValues(rec, r.Diffs)
	rec = append(rec, strconv.Itoa(r.Label()))
	w.rec = rec
	return w.cw.Write(rec)
}

// Flush writes any buffered data and reports the first write error.
func (w *Writer) Flush() error {
	if err := w.header(); err != nil {
		return err
	}
	w.cw.Flush()
	return w.cw.Error()
}

// appendValues formats vs with the shortest exact representation; undefined
// values are empty cells.
func appendValues(rec []string, vs []float64) []string {
	for _, v := range vs {
		if !model.IsDefined(v) {
			rec = append(rec, "")
			continue
		}
		rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return rec
}
