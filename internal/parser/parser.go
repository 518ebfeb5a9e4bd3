package parser

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pable/go-tennis-features/internal/model"
)

// MalformedRecordError describes an input row that was dropped.
type MalformedRecordError struct {
	File   string
	Line   int
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %s", filepath.Base(e.File), e.Line, e.Field, e.Reason)
}

// Options configures ParseFiles.
type Options struct {
	Logger *zap.Logger
	// MaxParallel bounds concurrent file reads; <= 0 means one per file.
	MaxParallel int
}

// Stream is a chronologically ordered, validated set of match records.
type Stream struct {
	records   []model.MatchRecord
	Malformed []*MalformedRecordError
	Files     []string
	Rows      int    // data rows read, including malformed ones
	Digest    string // sha256 over the input files in path order
}

// Len returns the number of valid records.
func (s *Stream) Len() int { return len(s.records) }

// Skipped returns the number of dropped rows.
func (s *Stream) Skipped() int { return len(s.Malformed) }

// All yields the records in processing order.
func (s *Stream) All() iter.Seq[model.MatchRecord] {
	return func(yield func(model.MatchRecord) bool) {
		for _, r := range s.records {
			if !yield(r) {
				return
			}
		}
	}
}

// NewStream sorts recs into processing order. Seq values are reassigned
// from the slice position so ties keep their input order.
func NewStream(recs []model.MatchRecord) *Stream {
	out := make([]model.MatchRecord, len(recs))
	copy(out, recs)
	for i := range out {
		out[i].Seq = i
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Key().Less(out[j].Key())
	})
	return &Stream{records: out, Rows: len(out)}
}

type fileResult struct {
	records   []model.MatchRecord
	malformed []*MalformedRecordError
	rows      int
	digest    []byte
}

// ParseFiles reads Sackmann-layout match CSVs concurrently, validates each
// row, and returns the merged stream in processing order. Malformed rows
// are dropped and reported in Stream.Malformed; I/O and header errors are
// fatal.
func ParseFiles(ctx context.Context, paths []string, opts Options) (*Stream, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(paths) == 0 {
		return nil, errors.New("no input files")
	}
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	results := make([]fileResult, len(sorted))
	g, ctx := errgroup.WithContext(ctx)
	if opts.MaxParallel > 0 {
		g.SetLimit(opts.MaxParallel)
	}
	for i, path := range sorted {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := parseFile(path)
			if err != nil {
				return err
			}
			results[i] = res
			logger.Debug("read match file",
				zap.String("file", path),
				zap.Int("rows", res.rows),
				zap.Int("malformed", len(res.malformed)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		recs      []model.MatchRecord
		malformed []*MalformedRecordError
		rows      int
	)
	h := sha256.New()
	for _, res := range results {
		recs = append(recs, res.records...)
		malformed = append(malformed, res.malformed...)
		rows += res.rows
		h.Write(res.digest)
	}
	s := NewStream(recs)
	s.Files = sorted
	s.Malformed = malformed
	s.Rows = rows
	s.Digest = fmt.Sprintf("%x", h.Sum(nil))

	for _, m := range s.Malformed {
		logger.Warn("skipped malformed record",
			zap.String("file", m.File),
			zap.Int("line", m.Line),
			zap.String("field", m.Field),
			zap.String("reason", m.Reason))
	}
	return s, nil
}

func parseFile(path string) (fileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	// Hash file for the run idempotency key.
	h := sha256.New()
	recs, malformed, rows, err := Parse(io.TeeReader(f, h), path)
	if err != nil {
		return fileResult{}, err
	}
	return fileResult{records: recs, malformed: malformed, rows: rows, digest: h.Sum(nil)}, nil
}

// Parse reads one CSV from r. name labels errors. The returned records are
// in file order; Seq is the row index within the file.
func Parse(r io.Reader, name string) (recs []model.MatchRecord, malformed []*MalformedRecordError, rows int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read header %s: %w", name, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, req := range []string{"tourney_date", "winner_id", "loser_id"} {
		if _, ok := cols[req]; !ok {
			return nil, nil, 0, fmt.Errorf("%s: missing required column %q", name, req)
		}
	}

	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		rows++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				malformed = append(malformed, &MalformedRecordError{File: name, Line: pe.Line, Field: "csv", Reason: pe.Err.Error()})
				continue
			}
			return nil, nil, 0, fmt.Errorf("read %s: %w", name, err)
		}
		line, _ := cr.FieldPos(0)
		rec, merr := parseRow(fields, cols)
		if merr != nil {
			merr.File, merr.Line = name, line
			malformed = append(malformed, merr)
			continue
		}
		rec.Seq = len(recs)
		recs = append(recs, rec)
	}
	return recs, malformed, rows, nil
}

// row gives typed access to a CSV record by column name.
type row struct {
	fields []string
	cols   map[string]int
}

func (r row) str(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// intVal returns the integer value of col; absent or unparseable values are 0
// and ok is false.
func (r row) intVal(col string) (v int, ok bool) {
	s := r.str(col)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	// Some exports write integers as floats ("185.0").
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

func (r row) intOr0(col string) int {
	v, _ := r.intVal(col)
	return v
}

func (r row) floatVal(col string) float64 {
	f, err := strconv.ParseFloat(r.str(col), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseRow(fields []string, cols map[string]int) (model.MatchRecord, *MalformedRecordError) {
	r := row{fields: fields, cols: cols}

	date, err := parseDate(r.str("tourney_date"))
	if err != nil {
		return model.MatchRecord{}, &MalformedRecordError{Field: "tourney_date", Reason: err.Error()}
	}
	winner := r.str("winner_id")
	loser := r.str("loser_id")
	switch {
	case winner == "":
		return model.MatchRecord{}, &MalformedRecordError{Field: "winner_id", Reason: "missing"}
	case loser == "":
		return model.MatchRecord{}, &MalformedRecordError{Field: "loser_id", Reason: "missing"}
	case winner == loser:
		return model.MatchRecord{}, &MalformedRecordError{Field: "loser_id", Reason: "same player as winner"}
	}

	rec := model.MatchRecord{
		TournamentID:    r.str("tourney_id"),
		TournamentName:  r.str("tourney_name"),
		TournamentLevel: r.str("tourney_level"),
		DrawSize:        r.intOr0("draw_size"),
		Date:            date,
		MatchNum:        r.intOr0("match_num"),
		Surface:         model.ParseSurface(r.str("surface")),
		Round:           r.str("round"),
		BestOf:          r.intOr0("best_of"),
		Score:           r.str("score"),
		Minutes:         r.intOr0("minutes"),
		WinnerID:        winner,
	}
	w := parseEntry(r, "winner_", "w_")
	l := parseEntry(r, "loser_", "l_")
	if winnerIsA(rec.TournamentID, rec.MatchNum, winner, loser) {
		rec.PlayerA, rec.PlayerB = w, l
	} else {
		rec.PlayerA, rec.PlayerB = l, w
	}
	return rec, nil
}

func parseEntry(r row, prefix, statPrefix string) model.PlayerEntry {
	e := model.PlayerEntry{
		ID:         r.str(prefix + "id"),
		Name:       r.str(prefix + "name"),
		Hand:       r.str(prefix + "hand"),
		HeightCm:   r.intOr0(prefix + "ht"),
		Country:    r.str(prefix + "ioc"),
		Age:        r.floatVal(prefix + "age"),
		Rank:       r.intOr0(prefix + "rank"),
		RankPoints: r.intOr0(prefix + "rank_points"),
		Seed:       r.intOr0(prefix + "seed"),
		Entry:      r.str(prefix + "entry"),
	}
	svpt, ok := r.intVal(statPrefix + "svpt")
	if !ok {
		return e
	}
	e.Stats = model.MatchStats{
		HasServeStats:    true,
		Aces:             r.intOr0(statPrefix + "ace"),
		DoubleFaults:     r.intOr0(statPrefix + "df"),
		ServePoints:      svpt,
		FirstServesIn:    r.intOr0(statPrefix + "1stIn"),
		FirstServeWon:    r.intOr0(statPrefix + "1stWon"),
		SecondServeWon:   r.intOr0(statPrefix + "2ndWon"),
		ServiceGames:     r.intOr0(statPrefix + "SvGms"),
		BreakPointsSaved: r.intOr0(statPrefix + "bpSaved"),
		BreakPointsFaced: r.intOr0(statPrefix + "bpFaced"),
	}
	return e
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing")
	}
	// Dates exported through spreadsheets may carry a ".0" suffix.
	s = strings.TrimSuffix(s, ".0")
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// winnerIsA decides the A/B side from a hash of the match identity so the
// label is balanced and stable across runs.
func winnerIsA(tourneyID string, matchNum int, winner, loser string) bool {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%d|%s|%s", tourneyID, matchNum, winner, loser)
	return h.Sum32()%2 == 0
}
