package state

import "github.com/pable/go-tennis-features/internal/model"

// ratio is a (successes, attempts) pair.
type ratio struct {
	s, a float64
}

// contribution is what a single match adds to each tracked stat.
type contribution [model.NumStats]ratio

func (c *contribution) add(o contribution) {
	for i := range c {
		c[i].s += o[i].s
		c[i].a += o[i].a
	}
}

func (c *contribution) sub(o contribution) {
	for i := range c {
		c[i].s -= o[i].s
		c[i].a -= o[i].a
	}
}

// ring keeps the contributions of the last len(buf) matches and their sum.
type ring struct {
	buf  []contribution
	next int
	full bool
	sum  contribution
}

func newRing(size int) *ring {
	return &ring{buf: make([]contribution, size)}
}

func (r *ring) push(c contribution) {
	if r.full {
		r.sum.sub(r.buf[r.next])
	}
	r.buf[r.next] = c
	r.sum.add(c)
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// smooth returns (s + C*prior) / (a + C), or prior when there is no weight at all.
func smooth(x ratio, c, prior float64) float64 {
	den := x.a + c
	if den == 0 {
		return prior
	}
	return (x.s + c*prior) / den
}

// matchContribution converts one player's result into per-stat ratios.
func matchContribution(o Outcome) contribution {
	var c contribution
	c[model.StatWinRate] = ratio{a: 1}
	if o.Won {
		c[model.StatWinRate].s = 1
	}
	st := o.Stats
	if st.HasServeStats {
		c[model.StatAcePct] = ratio{float64(st.Aces), float64(st.ServePoints)}
		c[model.StatDFPct] = ratio{float64(st.DoubleFaults), float64(st.ServePoints)}
		c[model.StatFirstServeWonPct] = ratio{float64(st.FirstServeWon), float64(st.FirstServesIn)}
		c[model.StatBPSavePct] = ratio{float64(st.BreakPointsSaved), float64(st.BreakPointsFaced)}
	}
	c[model.StatTiebreakRate] = ratio{float64(o.TiebreaksPlayed), float64(o.SetsPlayed)}
	c[model.StatTiebreakWonPct] = ratio{float64(o.TiebreaksWon), float64(o.TiebreaksPlayed)}
	return c
}

// Pool sums match contributions across all players. It is used to
// estimate league-wide priors.
type Pool struct {
	sum contribution
	n   int
}

// Add folds one player's side of a match into the pool.
func (p *Pool) Add(o Outcome) {
	p.sum.add(matchContribution(o))
	p.n++
}

// Len returns the number of player-matches added.
func (p *Pool) Len() int { return p.n }

// Rate returns the pooled rate of s. ok is false with no attempts.
func (p *Pool) Rate(s model.Stat) (v float64, ok bool) {
	r := p.sum[s]
	if r.a == 0 {
		return 0, false
	}
	return r.s / r.a, true
}
