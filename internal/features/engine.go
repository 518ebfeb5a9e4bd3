// Package features replays match records in order and emits one
// leakage-free feature row per match.
package features

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/pable/go-tennis-features/internal/config"
	"github.com/pable/go-tennis-features/internal/model"
	"github.com/pable/go-tennis-features/internal/parser"
	"github.com/pable/go-tennis-features/internal/state"
)

// OutOfOrderRecordError is returned when a record sorts before its
// predecessor. Replaying it would leak later state into earlier rows.
type OutOfOrderRecordError struct {
	Prev, Got model.OrderKey
}

func (e *OutOfOrderRecordError) Error() string {
	return fmt.Sprintf("record %s out of order after %s", e.Got, e.Prev)
}

// Summary describes a finished run.
type Summary struct {
	Matches  int
	Players  int
	Warnings int // players first seen without a rank
}

// Engine drives the read-emit-write cycle over a Store.
type Engine struct {
	store  *state.Store
	names  []string
	logger *zap.Logger

	prev    model.OrderKey
	started bool
	matches int
}

// New returns an engine with a fresh player store.
func New(cfg config.Engine, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	st := state.New(cfg, logger)
	return &Engine{
		store:  st,
		names:  model.FeatureNames(st.Windows()),
		logger: logger,
	}
}

// Store exposes the player state, e.g. for final ratings.
func (e *Engine) Store() *state.Store { return e.store }

// Names returns the base feature names shared by every emitted row.
func (e *Engine) Names() []string { return e.names }

// Run replays seq. For each record it snapshots both players, emits the
// row, and only then applies the result. An error from emit aborts the
// run. Cancellation is checked between matches, so the store always holds
// whole matches. Calling Run again continues the same replay.
func (e *Engine) Run(ctx context.Context, seq iter.Seq[model.MatchRecord], emit func(model.FeatureRow) error) (Summary, error) {
	for rec := range seq {
		if err := ctx.Err(); err != nil {
			return e.summary(), err
		}
		key := rec.Key()
		if e.started && key.Less(e.prev) {
			return e.summary(), &OutOfOrderRecordError{Prev: e.prev, Got: key}
		}
		e.prev, e.started = key, true

		if err := e.step(&rec, emit); err != nil {
			return e.summary(), err
		}
		e.matches++
		if e.matches%10000 == 0 {
			e.logger.Info("replay progress",
				zap.Int("matches", e.matches),
				zap.Int("players", e.store.Len()),
				zap.Time("date", rec.Date))
		}
	}
	return e.summary(), nil
}

func (e *Engine) step(rec *model.MatchRecord, emit func(model.FeatureRow) error) error {
	a := e.store.PreMatch(rec.PlayerA, rec.PlayerB.ID, rec.Surface, rec.Date)
	b := e.store.PreMatch(rec.PlayerB, rec.PlayerA.ID, rec.Surface, rec.Date)

	if err := emit(e.row(rec, a, b)); err != nil {
		return fmt.Errorf("emit %s: %w", rec.Key(), err)
	}

	score := parser.ParseScore(rec.Score)
	gd := score.GameDiff()
	sets := len(score.Sets)
	tbPlayed, tbWinner := score.Tiebreaks()
	aWon := rec.AWon()
	tbA, tbB := tbWinner, tbPlayed-tbWinner
	if !aWon {
		tbA, tbB = tbB, tbA
	}

	for _, o := range []state.Outcome{
		{Self: a, Opponent: b, Won: aWon, GameDiff: gd, Stats: rec.PlayerA.Stats,
			SetsPlayed: sets, TiebreaksPlayed: tbPlayed, TiebreaksWon: tbA},
		{Self: b, Opponent: a, Won: !aWon, GameDiff: gd, Stats: rec.PlayerB.Stats,
			SetsPlayed: sets, TiebreaksPlayed: tbPlayed, TiebreaksWon: tbB},
	} {
		if err := e.store.Apply(o); err != nil {
			return fmt.Errorf("apply %s: %w", rec.Key(), err)
		}
	}
	return nil
}

func (e *Engine) row(rec *model.MatchRecord, a, b state.Snapshot) model.FeatureRow {
	r := model.FeatureRow{
		Date:            rec.Date,
		TournamentID:    rec.TournamentID,
		TournamentName:  rec.TournamentName,
		TournamentLevel: rec.TournamentLevel,
		TournamentPts:   TournamentPoints(rec.TournamentLevel, rec.TournamentName, rec.DrawSize),
		MatchNum:        rec.MatchNum,
		Round:           rec.Round,
		RoundImportance: RoundImportance(rec.Round),
		Surface:         rec.Surface,
		BestOf:          rec.BestOf,
		A:               playerFeatures(a, rec.TournamentName),
		B:               playerFeatures(b, rec.TournamentName),
		Names:           e.names,
		AWon:            rec.AWon(),
	}
	r.Diffs = model.DiffVectors(r.A.Vector(), r.B.Vector())
	return r
}

func playerFeatures(s state.Snapshot, tournament string) model.PlayerFeatures {
	return model.PlayerFeatures{
		ID:              s.Entry.ID,
		Name:            s.Entry.Name,
		Elo:             s.Blended(),
		EloGlobal:       s.RatingGlobal,
		EloSurface:      s.RatingSurface,
		Rank:            s.Entry.Rank,
		RankPoints:      s.Entry.RankPoints,
		Seed:            s.Entry.Seed,
		IsSeeded:        s.Entry.Seed > 0,
		Age:             s.Entry.Age,
		HeightCm:        s.Entry.HeightCm,
		MatchesPlayed:   s.MatchesPlayed,
		IsFirstMatch:    !s.Seen,
		IsRookie:        s.Rookie,
		DaysSinceLast:   s.DaysSinceLast,
		ReturningLayoff: s.Layoff,
		H2HWins:         s.H2HWins,
		IsHome:          IsHome(s.Entry.Country, tournament),
		SurfaceWinPct:   s.SurfaceWinPct,
		YTDWins:         s.YTDWins,
		YTDLosses:       s.YTDLosses,
		YTDWinPct:       s.YTDWinPct(),
		Confidence:      s.Confidence,
		Rates:           s.Rates,

		YTDBPSavePct:      s.YTDBPSavePct,
		YTDTiebreakWonPct: s.YTDTiebreakWonPct,
	}
}

func (e *Engine) summary() Summary {
	return Summary{
		Matches:  e.matches,
		Players:  e.store.Len(),
		Warnings: e.store.Warnings(),
	}
}

// Table is the in-memory output table. Rows are appended in emit order
// and never modified.
type Table struct {
	rows []model.FeatureRow
}

// Add appends r. It has the signature of an emit func.
func (t *Table) Add(r model.FeatureRow) error {
	t.rows = append(t.rows, r)
	return nil
}

// Rows returns the emitted rows.
func (t *Table) Rows() []model.FeatureRow { return t.rows }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }
