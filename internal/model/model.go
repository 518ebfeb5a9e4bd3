package model

import (
	"math"
	"strconv"
	"time"
)

// Surface is the court surface a match was played on.
type Surface int

const (
	SurfaceUnknown Surface = 0
	SurfaceClay    Surface = 1
	SurfaceGrass   Surface = 2
	SurfaceHard    Surface = 3
	SurfaceCarpet  Surface = 4
)

// NumSurfaces sizes per-surface arrays; index 0 is SurfaceUnknown.
const NumSurfaces = 5

// Surfaces lists the rated surfaces in column order.
var Surfaces = []Surface{SurfaceClay, SurfaceGrass, SurfaceHard, SurfaceCarpet}

func (s Surface) String() string {
	switch s {
	case SurfaceClay:
		return "Clay"
	case SurfaceGrass:
		return "Grass"
	case SurfaceHard:
		return "Hard"
	case SurfaceCarpet:
		return "Carpet"
	default:
		return "?"
	}
}

// ParseSurface maps a surface label to a Surface. Unrecognised labels
// return SurfaceUnknown.
func ParseSurface(s string) Surface {
	switch s {
	case "Clay", "clay":
		return SurfaceClay
	case "Grass", "grass":
		return SurfaceGrass
	case "Hard", "hard":
		return SurfaceHard
	case "Carpet", "carpet":
		return SurfaceCarpet
	default:
		return SurfaceUnknown
	}
}

// ---- Input records ----

// MatchStats are the in-match serve statistics for one player. They are
// only ever folded into state after the match has been emitted.
type MatchStats struct {
	HasServeStats    bool
	Aces             int
	DoubleFaults     int
	ServePoints      int
	FirstServesIn    int
	FirstServeWon    int
	SecondServeWon   int
	ServiceGames     int
	BreakPointsSaved int
	BreakPointsFaced int
}

// PlayerEntry is one side of a match as listed at match time.
type PlayerEntry struct {
	ID         string
	Name       string
	Hand       string
	HeightCm   int     // 0 if unknown
	Country    string
	Age        float64 // 0 if unknown
	Rank       int     // 0 if absent
	RankPoints int
	Seed       int // 0 if unseeded
	Entry      string
	Stats      MatchStats
}

// MatchRecord is one historical match. Records are immutable once ingested.
type MatchRecord struct {
	TournamentID    string
	TournamentName  string
	TournamentLevel string
	DrawSize        int
	Date            time.Time
	MatchNum        int
	Surface         Surface
	Round           string
	BestOf          int
	Score           string // from the winner's perspective
	Minutes         int
	PlayerA         PlayerEntry
	PlayerB         PlayerEntry
	WinnerID        string
	Seq             int // position in the merged input, final tiebreak
}

// AWon reports whether player A won the match.
func (m *MatchRecord) AWon() bool { return m.WinnerID == m.PlayerA.ID }

// Key returns the ordering key of the record.
func (m *MatchRecord) Key() OrderKey {
	return OrderKey{Date: m.Date, TournamentID: m.TournamentID, MatchNum: m.MatchNum, Seq: m.Seq}
}

// OrderKey is the processing order of match records.
type OrderKey struct {
	Date         time.Time
	TournamentID string
	MatchNum     int
	Seq          int
}

// Less reports whether k sorts strictly before o.
func (k OrderKey) Less(o OrderKey) bool {
	if !k.Date.Equal(o.Date) {
		return k.Date.Before(o.Date)
	}
	if k.TournamentID != o.TournamentID {
		return k.TournamentID < o.TournamentID
	}
	if k.MatchNum != o.MatchNum {
		return k.MatchNum < o.MatchNum
	}
	return k.Seq < o.Seq
}

func (k OrderKey) String() string {
	return k.Date.Format("2006-01-02") + "/" + k.TournamentID + "/" + strconv.Itoa(k.MatchNum)
}

// ---- Tracked rates ----

// Stat is a rolling-window rate tracked per player.
type Stat int

const (
	StatWinRate Stat = iota
	StatAcePct
	StatDFPct
	StatFirstServeWonPct
	StatBPSavePct
	StatTiebreakRate
	StatTiebreakWonPct
	NumStats
)

var statNames = [NumStats]string{
	"win_rate", "ace_pct", "df_pct", "first_serve_won_pct",
	"bp_save_pct", "tiebreak_rate", "tiebreak_won_pct",
}

func (s Stat) String() string {
	if s < 0 || s >= NumStats {
		return "?"
	}
	return statNames[s]
}

// ParseStat maps a stat name to a Stat.
func ParseStat(name string) (Stat, bool) {
	for i, n := range statNames {
		if n == name {
			return Stat(i), true
		}
	}
	return 0, false
}

// Window identifies a rolling window. Size 0 means lifetime.
type Window struct {
	Size int
}

// Lifetime is the unbounded window.
var Lifetime = Window{}

func (w Window) String() string {
	if w.Size == 0 {
		return "career"
	}
	return "last" + strconv.Itoa(w.Size)
}

// ---- Output rows ----

// PlayerFeatures are the pre-match features of one player.
type PlayerFeatures struct {
	ID   string
	Name string

	Elo        float64 // (global + surface) / 2
	EloGlobal  float64
	EloSurface float64

	Rank       int
	RankPoints int
	Seed       int
	IsSeeded   bool
	Age        float64
	HeightCm   int

	MatchesPlayed   int
	IsFirstMatch    bool
	IsRookie        bool
	DaysSinceLast   *int
	ReturningLayoff bool
	H2HWins         int
	IsHome          bool // country matches the tournament's host

	SurfaceWinPct float64
	YTDWins       int
	YTDLosses     int
	YTDWinPct     float64
	Confidence    float64

	YTDBPSavePct      float64
	YTDTiebreakWonPct float64

	// Rates[w][s] follows the order of Windows passed to the engine.
	Rates [][NumStats]float64
}

// FeatureRow is one emitted row of the output table.
type FeatureRow struct {
	Date            time.Time
	TournamentID    string
	TournamentName  string
	TournamentLevel string
	TournamentPts   int
	MatchNum        int
	Round           string
	RoundImportance int
	Surface         Surface
	BestOf          int

	A, B PlayerFeatures

	// Names and Diffs are aligned with FeatureNames; NaN marks an
	// undefined differential. Names is shared between rows of a run.
	Names []string
	Diffs []float64
	AWon  bool
}

// Diff returns the differential for the named base feature. ok is false
// when the feature is unknown or undefined for either player.
func (r *FeatureRow) Diff(name string) (v float64, ok bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Diffs[i], IsDefined(r.Diffs[i])
		}
	}
	return 0, false
}

// Label returns 1 if player A won, otherwise 0.
func (r *FeatureRow) Label() int {
	if r.AWon {
		return 1
	}
	return 0
}

// ---- Helpers ----

// Undefined marks a feature with no value.
var Undefined = math.NaN()

// IsDefined reports whether v carries a value.
func IsDefined(v float64) bool { return !math.IsNaN(v) }
