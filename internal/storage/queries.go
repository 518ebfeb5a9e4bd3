package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pable/go-tennis-features/internal/model"
	"github.com/pable/go-tennis-features/internal/state"
)

const dateLayout = "2006-01-02"

// Run is one stored pipeline run.
type Run struct {
	ID        string
	CreatedAt time.Time
	Digest    string // sha256 over the input files
	Inputs    []string
	Matches   int
	Players   int
	Skipped   int
	Warnings  int
	OutPath   string
	Config    string // engine config as YAML
}

// PlayerRating is a player's final state in a run.
type PlayerRating struct {
	PlayerID  string
	Name      string
	Rookie    bool
	Global    float64
	Surface   [model.NumSurfaces]float64 // index 0 unused
	Matches   int
	LastMatch string
}

// TrendPoint is one match from a single player's perspective.
type TrendPoint struct {
	Seq            int
	Name           string
	Date           string
	TournamentName string
	Round          string
	Surface        string
	OpponentID     string
	OpponentName   string
	Elo            float64
	OpponentElo    float64
	Won            bool
}

// NewPlayerRating converts a store summary.
func NewPlayerRating(s state.Summary) PlayerRating {
	return PlayerRating{
		PlayerID:  s.ID,
		Name:      s.Name,
		Rookie:    s.Rookie,
		Global:    s.RatingGlobal,
		Surface:   s.RatingSurface,
		Matches:   s.Matches,
		LastMatch: s.LastMatch.Format(dateLayout),
	}
}

const runColumns = `id, created_at, digest, inputs, matches, players, skipped, warnings, out_path, config_yaml`

// InsertRun stores run metadata. Uses INSERT OR REPLACE so a forced rebuild
// can reuse an id.
func (db *DB) InsertRun(r Run) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO runs(`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Digest, strings.Join(r.Inputs, "\n"),
		r.Matches, r.Players, r.Skipped, r.Warnings, r.OutPath, r.Config,
	)
	return err
}

// FindRun returns the newest run built from the same inputs and config,
// or nil if there is none.
func (db *DB) FindRun(digest, config string) (*Run, error) {
	row := db.conn.QueryRow(`
		SELECT `+runColumns+` FROM runs
		WHERE digest = ? AND config_yaml = ?
		ORDER BY created_at DESC LIMIT 1`, digest, config)
	return scanRun(row)
}

// GetRunByPrefix finds the first run whose id starts with the given prefix.
func (db *DB) GetRunByPrefix(prefix string) (*Run, error) {
	row := db.conn.QueryRow(`
		SELECT `+runColumns+` FROM runs WHERE id LIKE ? ORDER BY created_at DESC LIMIT 1`, prefix+"%")
	return scanRun(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var created, inputs string
	err := s.Scan(&r.ID, &created, &r.Digest, &inputs, &r.Matches, &r.Players,
		&r.Skipped, &r.Warnings, &r.OutPath, &r.Config)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, created)
	if inputs != "" {
		r.Inputs = strings.Split(inputs, "\n")
	}
	return &r, nil
}

// ListRuns returns all runs, newest first.
func (db *DB) ListRuns() ([]Run, error) {
	rows, err := db.conn.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything stored under it.
func (db *DB) DeleteRun(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM feature_rows WHERE run_id = ?`,
		`DELETE FROM player_ratings WHERE run_id = ?`,
		`DELETE FROM runs WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertFeatureRows bulk-inserts emitted rows in a transaction. seq is the
// row's position in emit order.
func (db *DB) InsertFeatureRows(runID string, rows []model.FeatureRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO feature_rows(
			run_id, seq, match_date, tournament_id, tournament_name, match_num,
			round, surface, player_a, player_b, player_a_name, player_b_name,
			a_elo, b_elo, diff_elo, diff_h2h, diff_days_since, label, features_json
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range rows {
		r := &rows[i]
		js, err := diffsJSON(r)
		if err != nil {
			return fmt.Errorf("encode features for row %d: %w", i, err)
		}
		_, err = stmt.Exec(
			runID, i, r.Date.Format(dateLayout), r.TournamentID, r.TournamentName, r.MatchNum,
			r.Round, r.Surface.String(), r.A.ID, r.B.ID, r.A.Name, r.B.Name,
			r.A.Elo, r.B.Elo, nullable(r.Diff("elo")), nullable(r.Diff("h2h")),
			nullable(r.Diff("days_since")), r.Label(), js,
		)
		if err != nil {
			return fmt.Errorf("insert feature row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// diffsJSON encodes the defined differentials as a JSON object keyed by
// feature name.
func diffsJSON(r *model.FeatureRow) (string, error) {
	m := make(map[string]float64, len(r.Names))
	for i, n := range r.Names {
		if model.IsDefined(r.Diffs[i]) {
			m[n] = r.Diffs[i]
		}
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func nullable(v float64, ok bool) any {
	if !ok {
		return nil
	}
	return v
}

// InsertPlayerRatings stores the final state of every player in a run.
func (db *DB) InsertPlayerRatings(runID string, players []state.Summary) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO player_ratings(
			run_id, player_id, name, rookie, rating_global,
			rating_clay, rating_grass, rating_hard, rating_carpet,
			matches, last_match
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range players {
		p := NewPlayerRating(s)
		_, err = stmt.Exec(
			runID, p.PlayerID, p.Name, boolInt(p.Rookie), p.Global,
			p.Surface[model.SurfaceClay], p.Surface[model.SurfaceGrass],
			p.Surface[model.SurfaceHard], p.Surface[model.SurfaceCarpet],
			p.Matches, p.LastMatch,
		)
		if err != nil {
			return fmt.Errorf("insert player_ratings for %s: %w", p.PlayerID, err)
		}
	}
	return tx.Commit()
}

// TopRatings returns up to limit players of a run ordered by the rating on
// surface, or by global rating for SurfaceUnknown.
func (db *DB) TopRatings(runID string, surface model.Surface, limit int) ([]PlayerRating, error) {
	order := "rating_global"
	switch surface {
	case model.SurfaceClay:
		order = "rating_clay"
	case model.SurfaceGrass:
		order = "rating_grass"
	case model.SurfaceHard:
		order = "rating_hard"
	case model.SurfaceCarpet:
		order = "rating_carpet"
	}
	rows, err := db.conn.Query(`
		SELECT player_id, name, rookie, rating_global,
		       rating_clay, rating_grass, rating_hard, rating_carpet,
		       matches, last_match
		FROM player_ratings WHERE run_id = ?
		ORDER BY `+order+` DESC, player_id
		LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerRating
	for rows.Next() {
		var p PlayerRating
		var rookie int
		if err := rows.Scan(&p.PlayerID, &p.Name, &rookie, &p.Global,
			&p.Surface[model.SurfaceClay], &p.Surface[model.SurfaceGrass],
			&p.Surface[model.SurfaceHard], &p.Surface[model.SurfaceCarpet],
			&p.Matches, &p.LastMatch); err != nil {
			return nil, err
		}
		p.Rookie = rookie != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// PlayerTrend returns every match of playerID in a run, in replay order,
// from that player's side.
func (db *DB) PlayerTrend(runID, playerID string) ([]TrendPoint, error) {
	rows, err := db.conn.Query(`
		SELECT seq, match_date, tournament_name, round, surface,
		       player_a, player_b, player_a_name, player_b_name, a_elo, b_elo, label
		FROM feature_rows
		WHERE run_id = ? AND (player_a = ? OR player_b = ?)
		ORDER BY seq`, runID, playerID, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrendPoint
	for rows.Next() {
		var p TrendPoint
		var a, b, aName, bName string
		var aElo, bElo float64
		var label int
		if err := rows.Scan(&p.Seq, &p.Date, &p.TournamentName, &p.Round, &p.Surface,
			&a, &b, &aName, &bName, &aElo, &bElo, &label); err != nil {
			return nil, err
		}
		if a == playerID {
			p.Name, p.OpponentID, p.OpponentName, p.Elo, p.OpponentElo, p.Won = aName, b, bName, aElo, bElo, label == 1
		} else {
			p.Name, p.OpponentID, p.OpponentName, p.Elo, p.OpponentElo, p.Won = bName, a, aName, bElo, aElo, label == 0
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FeatureRowCount returns the number of stored rows of a run.
func (db *DB) FeatureRowCount(runID string) (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(1) FROM feature_rows WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// QueryRaw runs an arbitrary query and returns its columns and rows as
// strings. NULL is rendered as "NULL".
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			switch x := v.(type) {
			case nil:
				rec[i] = "NULL"
			case []byte:
				rec[i] = string(x)
			case float64:
				rec[i] = fmt.Sprintf("%.4f", x)
			default:
				rec[i] = fmt.Sprint(x)
			}
		}
		out = append(out, rec)
	}
	return cols, out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
