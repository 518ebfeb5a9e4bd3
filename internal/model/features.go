package model

// baseNames are the scalar per-player features, in vector order. Rates
// follow as <stat>_<window>.
var baseNames = []string{
	"elo", "elo_global", "elo_surface",
	"rank", "rank_points", "seed", "is_seeded", "age", "height_cm",
	"matches_played", "is_first_match", "is_rookie",
	"days_since", "returning_layoff", "h2h", "is_home",
	"surface_win_pct", "ytd_wins", "ytd_losses", "ytd_win_pct",
	"ytd_bp_save_pct", "ytd_tiebreak_won_pct", "confidence",
}

// FeatureNames returns the base feature names for the given windows.
func FeatureNames(windows []Window) []string {
	names := make([]string, 0, len(baseNames)+len(windows)*int(NumStats))
	names = append(names, baseNames...)
	for _, w := range windows {
		for s := Stat(0); s < NumStats; s++ {
			names = append(names, s.String()+"_"+w.String())
		}
	}
	return names
}

// Vector flattens p in FeatureNames order. Missing values are Undefined.
func (p *PlayerFeatures) Vector() []float64 {
	v := make([]float64, 0, len(baseNames)+len(p.Rates)*int(NumStats))
	v = append(v,
		p.Elo, p.EloGlobal, p.EloSurface,
		positive(float64(p.Rank)), positive(float64(p.RankPoints)), positive(float64(p.Seed)),
		flag(p.IsSeeded), positive(p.Age), positive(float64(p.HeightCm)),
		float64(p.MatchesPlayed), flag(p.IsFirstMatch), flag(p.IsRookie),
		optInt(p.DaysSinceLast), flag(p.ReturningLayoff), float64(p.H2HWins), flag(p.IsHome),
		p.SurfaceWinPct, float64(p.YTDWins), float64(p.YTDLosses), p.YTDWinPct,
		p.YTDBPSavePct, p.YTDTiebreakWonPct, p.Confidence,
	)
	for _, rates := range p.Rates {
		v = append(v, rates[:]...)
	}
	return v
}

// DiffVectors returns a[i]-b[i], Undefined where either side is.
func DiffVectors(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		if !IsDefined(a[i]) || !IsDefined(b[i]) {
			out[i] = Undefined
			continue
		}
		out[i] = a[i] - b[i]
	}
	return out
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// positive treats zero (the "absent" encoding for rank, age, height,
// seed) as undefined. Rank points of 0 are a real value but indistinguishable
// in the input.
func positive(v float64) float64 {
	if v <= 0 {
		return Undefined
	}
	return v
}

func optInt(p *int) float64 {
	if p == nil {
		return Undefined
	}
	return float64(*p)
}
