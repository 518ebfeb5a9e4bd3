// Package rating implements the ELO-style update with a margin-of-victory
// multiplier.
package rating

import "math"

// Params are the update constants.
type Params struct {
	K        float64
	MoVScale float64 // multiplier = ln(gameDiff+1) * MoVScale
	MoVFloor float64 // lower bound of the multiplier
}

// Expected returns the probability that a player rated r beats one rated opp.
func Expected(r, opp float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opp-r)/400.0))
}

// MoVMultiplier returns max(floor, ln(gameDiff+1)*scale). A negative game
// difference is treated by magnitude, so a 0-game match still updates at
// the floor.
func MoVMultiplier(gameDiff int, scale, floor float64) float64 {
	if gameDiff < 0 {
		gameDiff = -gameDiff
	}
	m := math.Log(float64(gameDiff)+1) * scale
	if m < floor {
		return floor
	}
	return m
}

// Delta returns the rating change for a player rated r against opp.
// actual is 1 for a win and 0 for a loss.
func (p Params) Delta(r, opp, actual float64, gameDiff int) float64 {
	return p.K * (actual - Expected(r, opp)) * MoVMultiplier(gameDiff, p.MoVScale, p.MoVFloor)
}
