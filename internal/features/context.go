package features

import "strings"

var roundImportance = map[string]int{
	"F": 7, "SF": 6, "QF": 5, "R16": 4, "R32": 3, "R64": 2, "R128": 1,
	"RR": 3, "BR": 1,
}

// RoundImportance scores a round code from 7 (final) down to 1. Unknown
// rounds score 1.
func RoundImportance(round string) int {
	if v, ok := roundImportance[round]; ok {
		return v
	}
	return 1
}

// Tour-level events whose draw is too small for the draw-size heuristic.
var known500 = []string{
	"Barcelona", "Queen's Club", "Hamburg", "Washington", "Winston-Salem",
	"Dubai", "Rotterdam", "Acapulco", "Memphis", "Rio de Janeiro",
	"Halle", "London", "Beijing", "Tokyo", "Basel", "Vienna",
	"Aegon Championships", "Fever-Tree Championships", "Citi Open",
	"China Open", "Rakuten Japan Open", "Swiss Indoors Basel",
	"Erste Bank Open", "ABN AMRO World Tennis Tournament",
}

// TournamentPoints returns the winner's ranking points for a tournament
// level: G=2000, F=1500, M=1000, A=500 or 250, anything else 0.
func TournamentPoints(level, name string, drawSize int) int {
	switch level {
	case "G":
		return 2000
	case "F":
		return 1500
	case "M":
		return 1000
	case "A":
		for _, n := range known500 {
			if strings.Contains(name, n) {
				return 500
			}
		}
		if drawSize >= 48 {
			return 500
		}
		return 250
	default:
		return 0
	}
}

// Host-city and event keywords by IOC country code.
var homeKeywords = map[string][]string{
	"AUS": {"Australian", "Brisbane", "Sydney", "Melbourne", "Adelaide"},
	"USA": {"US Open", "Indian Wells", "Miami", "Cincinnati", "Washington", "Atlanta",
		"Houston", "Newport", "San Diego", "Los Angeles", "Las Vegas"},
	"FRA": {"French Open", "Roland Garros", "Paris", "Lyon", "Marseille", "Montpellier", "Metz"},
	"GBR": {"Wimbledon", "London", "Queens", "Eastbourne", "Birmingham", "Nottingham"},
	"ESP": {"Madrid", "Barcelona", "Valencia", "Mallorca"},
	"ITA": {"Rome", "Italian Open", "Milan", "Florence"},
	"GER": {"Hamburg", "Munich", "Halle", "Stuttgart"},
	"CHN": {"Shanghai", "Beijing", "Shenzhen"},
	"JPN": {"Tokyo", "Japan Open"},
	"CAN": {"Montreal", "Toronto", "Rogers Cup", "Canada"},
	"NED": {"Rotterdam", "Netherlands"},
	"SUI": {"Basel", "Geneva"},
	"BRA": {"Rio", "Sao Paulo", "Brazil"},
	"ARG": {"Buenos Aires", "Argentina"},
	"RSA": {"South Africa"},
	"SWE": {"Stockholm", "Sweden"},
	"AUT": {"Vienna", "Austria"},
}

// IsHome reports whether a player from country is playing a tournament
// hosted there, by case-insensitive keyword match on the tournament name.
// Countries without keywords are never home.
func IsHome(country, tournament string) bool {
	name := strings.ToLower(tournament)
	for _, kw := range homeKeywords[strings.ToUpper(country)] {
		if strings.Contains(name, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
