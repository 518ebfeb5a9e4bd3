package parser

import (
	"strconv"
	"strings"
)

// Set is one set's games from the match winner's perspective.
type Set struct {
	Winner, Loser int
}

// IsTiebreak reports whether the set was decided 7-6 or 6-7.
func (s Set) IsTiebreak() bool {
	return (s.Winner == 7 && s.Loser == 6) || (s.Winner == 6 && s.Loser == 7)
}

// Score is a parsed match score.
type Score struct {
	Sets []Set
}

// ParseScore parses a score such as "6-4 7-6(3) 3-6 6-2". Tiebreak points
// in parentheses are ignored, as are status tokens (RET, W/O, DEF, ABN)
// and anything else that is not a games pair.
func ParseScore(s string) Score {
	var sc Score
	for _, tok := range strings.Fields(s) {
		if i := strings.IndexByte(tok, '('); i >= 0 {
			tok = tok[:i]
		}
		w, l, ok := strings.Cut(tok, "-")
		if !ok {
			continue
		}
		wg, err1 := strconv.Atoi(w)
		lg, err2 := strconv.Atoi(l)
		if err1 != nil || err2 != nil || wg < 0 || lg < 0 {
			continue
		}
		sc.Sets = append(sc.Sets, Set{Winner: wg, Loser: lg})
	}
	return sc
}

// Games returns the total games won by the match winner and loser.
func (sc Score) Games() (winner, loser int) {
	for _, s := range sc.Sets {
		winner += s.Winner
		loser += s.Loser
	}
	return winner, loser
}

// GameDiff returns |winner games - loser games|.
func (sc Score) GameDiff() int {
	w, l := sc.Games()
	if w < l {
		return l - w
	}
	return w - l
}

// Tiebreaks returns the tiebreaks played and those won by the winner.
// The loser won played-winnerWon.
func (sc Score) Tiebreaks() (played, winnerWon int) {
	for _, s := range sc.Sets {
		if !s.IsTiebreak() {
			continue
		}
		played++
		if s.Winner == 7 {
			winnerWon++
		}
	}
	return played, winnerWon
}

// GameCounts returns the games won by the match winner and loser.
func GameCounts(score string) (winner, loser int) {
	return ParseScore(score).Games()
}

// Tiebreaks returns the tiebreak sets in score and how many the winner took.
func Tiebreaks(score string) (played, winnerWon int) {
	return ParseScore(score).Tiebreaks()
}

// SetsPlayed returns the number of completed or partial sets in score.
func SetsPlayed(score string) int {
	return len(ParseScore(score).Sets)
}
