package features

import (
	"iter"
	"time"

	"github.com/pable/go-tennis-features/internal/config"
	"github.com/pable/go-tennis-features/internal/model"
	"github.com/pable/go-tennis-features/internal/parser"
	"github.com/pable/go-tennis-features/internal/state"
)

// EstimatePriors pools every player-match dated strictly before cutoff and
// returns the league rates. Stats with no attempts keep the fallback
// value. n is the number of player-matches pooled, two per match.
func EstimatePriors(seq iter.Seq[model.MatchRecord], before time.Time, fallback config.Priors) (p config.Priors, n int) {
	var pool state.Pool
	for rec := range seq {
		if !rec.Date.Before(before) {
			continue
		}
		score := parser.ParseScore(rec.Score)
		played, winnerWon := score.Tiebreaks()
		aWon := rec.AWon()
		for _, side := range []struct {
			e   model.PlayerEntry
			won bool
		}{{rec.PlayerA, aWon}, {rec.PlayerB, !aWon}} {
			tbWon := winnerWon
			if !side.won {
				tbWon = played - winnerWon
			}
			pool.Add(state.Outcome{
				Won:             side.won,
				Stats:           side.e.Stats,
				SetsPlayed:      len(score.Sets),
				TiebreaksPlayed: played,
				TiebreaksWon:    tbWon,
			})
		}
	}

	rates := fallback.Rates()
	for s := model.Stat(0); s < model.NumStats; s++ {
		if v, ok := pool.Rate(s); ok {
			rates[s] = v
		}
	}
	return config.PriorsFromRates(rates), pool.Len()
}
