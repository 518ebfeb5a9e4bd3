// Package state holds the per-player mutable state replayed by the
// feature engine. A Store is owned by a single run and is not safe for
// concurrent use.
package state

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pable/go-tennis-features/internal/config"
	"github.com/pable/go-tennis-features/internal/model"
	"github.com/pable/go-tennis-features/internal/rating"
)

// ErrUpdateBeforeRead is returned by Apply when the snapshot it carries is
// not the player's pending pre-match read, or when the opponent's side of
// the same match has not been read yet.
var ErrUpdateBeforeRead = errors.New("post-match update without a pending pre-match read")

// player is the mutable state of one player.
type player struct {
	id     string
	name   string
	rookie bool
	anchor [model.NumStats]float64
	seed   contribution // pseudo-observations folded into the lifetime window

	global  float64
	surface [model.NumSurfaces]float64

	recent   []*ring
	lifetime contribution

	surfaceWins   [model.NumSurfaces]int
	surfaceLosses [model.NumSurfaces]int
	ytdYear       int
	ytdWins       int
	ytdLosses     int
	ytd           contribution

	h2h       map[string]int
	lastMatch time.Time
	matches   int
}

// Snapshot is a player's state as read before a match.
type Snapshot struct {
	Entry         model.PlayerEntry
	OpponentID    string
	Surface       model.Surface
	Date          time.Time
	Seen          bool
	Rookie        bool
	RatingGlobal  float64
	RatingSurface float64
	MatchesPlayed int
	DaysSinceLast *int
	Layoff        bool
	H2HWins       int
	SurfaceWinPct float64
	YTDWins       int
	YTDLosses     int
	Confidence    float64

	// Smoothed year-to-date rates.
	YTDBPSavePct      float64
	YTDTiebreakWonPct float64
	Rates         [][model.NumStats]float64

	readID uint64
}

// Blended returns (global + surface) / 2.
func (s Snapshot) Blended() float64 {
	return (s.RatingGlobal + s.RatingSurface) / 2
}

// YTDWinPct returns the raw year-to-date win fraction, 0 with no matches.
func (s Snapshot) YTDWinPct() float64 {
	n := s.YTDWins + s.YTDLosses
	if n == 0 {
		return 0
	}
	return float64(s.YTDWins) / float64(n)
}

// Outcome is a player's post-match update.
type Outcome struct {
	Self     Snapshot
	Opponent Snapshot
	Won      bool
	GameDiff int
	Stats    model.MatchStats

	SetsPlayed      int
	TiebreaksPlayed int
	TiebreaksWon    int
}

// Summary is the exported view of a player's current state.
type Summary struct {
	ID            string
	Name          string
	Rookie        bool
	RatingGlobal  float64
	RatingSurface [model.NumSurfaces]float64
	Matches       int
	LastMatch     time.Time
}

// pendingRead is a PreMatch snapshot not yet applied.
type pendingRead struct {
	id       uint64
	opponent string
	match    uint64
}

// matchReads counts the reads and applies of one match.
type matchReads struct {
	reads, applied int
}

// Store is the per-run player state store.
type Store struct {
	cfg     config.Engine
	windows []model.Window
	params  rating.Params
	logger  *zap.Logger

	players  map[string]*player
	pending  map[string]pendingRead
	open     map[uint64]*matchReads
	reads    uint64
	matchSeq uint64
	warnings int
}

// New returns an empty store.
func New(cfg config.Engine, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		cfg:     cfg,
		windows: cfg.TrackedWindows(),
		params:  rating.Params{K: cfg.KFactor, MoVScale: cfg.MoVScale, MoVFloor: cfg.MoVFloor},
		logger:  logger,
		players: make(map[string]*player),
		pending: make(map[string]pendingRead),
		open:    make(map[uint64]*matchReads),
	}
}

// Windows returns the tracked windows in rate order.
func (st *Store) Windows() []model.Window { return st.windows }

// Warnings returns how many players were first seen without a rank.
func (st *Store) Warnings() int { return st.warnings }

// Len returns the number of players seen.
func (st *Store) Len() int { return len(st.players) }

// newPlayer builds the initial state for a first appearance.
func (st *Store) newPlayer(e model.PlayerEntry) *player {
	p := &player{
		id:     e.ID,
		name:   e.Name,
		global: st.cfg.InitialRating,
		h2h:    make(map[string]int),
	}
	for i := range p.surface {
		p.surface[i] = st.cfg.InitialRating
	}
	for _, w := range st.windows {
		if w.Size > 0 {
			p.recent = append(p.recent, newRing(w.Size))
		}
	}
	if e.Rank <= 0 || e.Rank > st.cfg.RookieRankThreshold {
		p.rookie = true
		p.anchor = st.cfg.RookiePriors.Rates()
		return p
	}
	p.anchor = st.cfg.GlobalPriors.Rates()
	for i := range p.seed {
		p.seed[i] = ratio{s: st.cfg.SmoothingC * p.anchor[i], a: st.cfg.SmoothingC}
	}
	return p
}

// PreMatch returns the player's state before a match against opponent on
// the given surface and date. Unseen players get their initial state; the
// store itself is not modified apart from recording the pending read.
func (st *Store) PreMatch(e model.PlayerEntry, opponent string, surface model.Surface, date time.Time) Snapshot {
	p, seen := st.players[e.ID]
	if !seen {
		p = st.newPlayer(e)
	}
	c := st.cfg.SmoothingC

	snap := Snapshot{
		Entry:         e,
		OpponentID:    opponent,
		Surface:       surface,
		Date:          date,
		Seen:          seen,
		Rookie:        p.rookie,
		RatingGlobal:  p.global,
		RatingSurface: p.surfaceRating(surface),
		MatchesPlayed: p.matches,
		H2HWins:       p.h2h[opponent],
		SurfaceWinPct: smooth(ratio{
			s: float64(p.surfaceWins[surface]),
			a: float64(p.surfaceWins[surface] + p.surfaceLosses[surface]),
		}, c, p.anchor[model.StatWinRate]),
	}
	if seen {
		days := int(date.Sub(p.lastMatch).Hours() / 24)
		snap.DaysSinceLast = &days
		snap.Layoff = days > st.cfg.LayoffDays
	}
	var ytd contribution
	if p.ytdYear == date.Year() {
		snap.YTDWins, snap.YTDLosses = p.ytdWins, p.ytdLosses
		ytd = p.ytd
	}
	snap.YTDBPSavePct = smooth(ytd[model.StatBPSavePct], c, p.anchor[model.StatBPSavePct])
	snap.YTDTiebreakWonPct = smooth(ytd[model.StatTiebreakWonPct], c, p.anchor[model.StatTiebreakWonPct])

	life := p.lifetime
	life.add(p.seed)
	if w := life[model.StatWinRate].a; w+c > 0 {
		snap.Confidence = w / (w + c)
	}

	snap.Rates = make([][model.NumStats]float64, len(st.windows))
	ri := 0
	for wi, w := range st.windows {
		src := life
		if w.Size > 0 {
			src = p.recent[ri].sum
			ri++
		}
		for s := range src {
			snap.Rates[wi][s] = smooth(src[s], c, p.anchor[s])
		}
	}

	st.reads++
	snap.readID = st.reads
	st.pending[e.ID] = pendingRead{id: st.reads, opponent: opponent, match: st.pairRead(e.ID, opponent)}
	return snap
}

// pairRead returns the match a read of id against opponent belongs to. An
// unpaired read by opponent against id is joined; otherwise a new match
// is opened.
func (st *Store) pairRead(id, opponent string) uint64 {
	if pr, ok := st.pending[opponent]; ok && pr.opponent == id {
		if m := st.open[pr.match]; m != nil && m.reads == 1 {
			m.reads++
			return pr.match
		}
	}
	st.matchSeq++
	st.open[st.matchSeq] = &matchReads{reads: 1}
	return st.matchSeq
}

func (p *player) surfaceRating(s model.Surface) float64 {
	if s == model.SurfaceUnknown {
		return p.global
	}
	return p.surface[s]
}

// Apply folds a finished match into the player's state. It must follow
// the PreMatch call that produced o.Self and the opponent's PreMatch for
// the same match.
func (st *Store) Apply(o Outcome) error {
	id := o.Self.Entry.ID
	pr, ok := st.pending[id]
	if !ok || pr.id != o.Self.readID {
		return fmt.Errorf("player %s: %w", id, ErrUpdateBeforeRead)
	}
	m := st.open[pr.match]
	if m == nil || m.reads < 2 {
		return fmt.Errorf("player %s: opponent %s not read: %w", id, pr.opponent, ErrUpdateBeforeRead)
	}
	delete(st.pending, id)
	m.applied++
	if m.applied == 2 {
		delete(st.open, pr.match)
	}

	p, ok := st.players[id]
	if !ok {
		p = st.newPlayer(o.Self.Entry)
		st.players[id] = p
		if o.Self.Entry.Rank <= 0 {
			st.warnings++
			st.logger.Warn("unknown rank on first appearance, using rookie initialization",
				zap.String("player_id", id),
				zap.String("name", o.Self.Entry.Name),
				zap.Time("date", o.Self.Date))
		}
	}
	if o.Self.Entry.Name != "" {
		p.name = o.Self.Entry.Name
	}

	actual := 0.0
	if o.Won {
		actual = 1
	}
	p.global += st.params.Delta(o.Self.RatingGlobal, o.Opponent.RatingGlobal, actual, o.GameDiff)
	if s := o.Self.Surface; s != model.SurfaceUnknown {
		p.surface[s] += st.params.Delta(o.Self.RatingSurface, o.Opponent.RatingSurface, actual, o.GameDiff)
	}

	if y := o.Self.Date.Year(); y != p.ytdYear {
		p.ytdYear, p.ytdWins, p.ytdLosses, p.ytd = y, 0, 0, contribution{}
	}

	c := matchContribution(o)
	for _, r := range p.recent {
		r.push(c)
	}
	p.lifetime.add(c)
	p.ytd.add(c)

	if o.Won {
		p.surfaceWins[o.Self.Surface]++
		p.h2h[o.Self.OpponentID]++
	} else {
		p.surfaceLosses[o.Self.Surface]++
	}
	if o.Won {
		p.ytdWins++
	} else {
		p.ytdLosses++
	}

	p.lastMatch = o.Self.Date
	p.matches++
	return nil
}

// Get returns the current summary of a player.
func (st *Store) Get(id string) (Summary, bool) {
	p, ok := st.players[id]
	if !ok {
		return Summary{}, false
	}
	return p.summary(), true
}

// Players returns all player summaries ordered by global rating, highest first.
func (st *Store) Players() []Summary {
	out := make([]Summary, 0, len(st.players))
	for _, p := range st.players {
		out = append(out, p.summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RatingGlobal != out[j].RatingGlobal {
			return out[i].RatingGlobal > out[j].RatingGlobal
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (p *player) summary() Summary {
	return Summary{
		ID:            p.id,
		Name:          p.name,
		Rookie:        p.rookie,
		RatingGlobal:  p.global,
		RatingSurface: p.surface,
		Matches:       p.matches,
		LastMatch:     p.lastMatch,
	}
}
