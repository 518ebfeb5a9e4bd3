// Package config loads engine configuration from YAML with documented
// defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/pable/go-tennis-features/internal/model"
)

// Config is the top-level tennisfeat configuration.
type Config struct {
	Engine Engine `yaml:"engine"`
}

// Engine holds the rating and smoothing constants.
type Engine struct {
	InitialRating float64 `yaml:"initial_rating"`
	KFactor       float64 `yaml:"k_factor"`
	MoVScale      float64 `yaml:"mov_scale"`
	MoVFloor      float64 `yaml:"mov_floor"`

	// SmoothingC is the pseudo-count C in (s + C*prior) / (a + C).
	SmoothingC float64 `yaml:"smoothing_c"`

	// Players first seen with a rank above this (or no rank) start as rookies.
	RookieRankThreshold int `yaml:"rookie_rank_threshold"`
	LayoffDays          int `yaml:"layoff_days"`

	// Windows are the last-N sizes; the lifetime window is always tracked.
	Windows []int `yaml:"windows"`

	GlobalPriors Priors `yaml:"global_priors"`
	RookiePriors Priors `yaml:"rookie_priors"`
}

// Priors are anchor rates for Bayesian smoothing, one per tracked stat.
type Priors struct {
	WinRate          float64 `yaml:"win_rate"`
	AcePct           float64 `yaml:"ace_pct"`
	DFPct            float64 `yaml:"df_pct"`
	FirstServeWonPct float64 `yaml:"first_serve_won_pct"`
	BPSavePct        float64 `yaml:"bp_save_pct"`
	TiebreakRate     float64 `yaml:"tiebreak_rate"`
	TiebreakWonPct   float64 `yaml:"tiebreak_won_pct"`
}

// Rates returns the priors indexed by model.Stat.
func (p Priors) Rates() [model.NumStats]float64 {
	return [model.NumStats]float64{
		model.StatWinRate:          p.WinRate,
		model.StatAcePct:           p.AcePct,
		model.StatDFPct:            p.DFPct,
		model.StatFirstServeWonPct: p.FirstServeWonPct,
		model.StatBPSavePct:        p.BPSavePct,
		model.StatTiebreakRate:     p.TiebreakRate,
		model.StatTiebreakWonPct:   p.TiebreakWonPct,
	}
}

// PriorsFromRates is the inverse of Priors.Rates.
func PriorsFromRates(r [model.NumStats]float64) Priors {
	return Priors{
		WinRate:          r[model.StatWinRate],
		AcePct:           r[model.StatAcePct],
		DFPct:            r[model.StatDFPct],
		FirstServeWonPct: r[model.StatFirstServeWonPct],
		BPSavePct:        r[model.StatBPSavePct],
		TiebreakRate:     r[model.StatTiebreakRate],
		TiebreakWonPct:   r[model.StatTiebreakWonPct],
	}
}

// Default returns the documented defaults. Global priors approximate
// ATP tour-level averages; rookie priors are deliberately pessimistic.
func Default() Config {
	return Config{Engine: Engine{
		InitialRating:       1500,
		KFactor:             32,
		MoVScale:            0.6,
		MoVFloor:            1.0,
		SmoothingC:          10,
		RookieRankThreshold: 200,
		LayoffDays:          90,
		Windows:             []int{1, 5, 10},
		GlobalPriors: Priors{
			WinRate:          0.50,
			AcePct:           0.08,
			DFPct:            0.035,
			FirstServeWonPct: 0.72,
			BPSavePct:        0.60,
			TiebreakRate:     0.17,
			TiebreakWonPct:   0.50,
		},
		RookiePriors: Priors{
			WinRate:          0.40,
			AcePct:           0.06,
			DFPct:            0.04,
			FirstServeWonPct: 0.68,
			BPSavePct:        0.55,
			TiebreakRate:     0.17,
			TiebreakWonPct:   0.45,
		},
	}}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the constants are usable.
func (c Config) Validate() error {
	e := c.Engine
	switch {
	case e.KFactor <= 0:
		return fmt.Errorf("k_factor must be positive, got %v", e.KFactor)
	case e.SmoothingC < 0:
		return fmt.Errorf("smoothing_c must be >= 0, got %v", e.SmoothingC)
	case e.MoVScale <= 0:
		return fmt.Errorf("mov_scale must be positive, got %v", e.MoVScale)
	case e.RookieRankThreshold < 0:
		return fmt.Errorf("rookie_rank_threshold must be >= 0, got %d", e.RookieRankThreshold)
	case e.LayoffDays <= 0:
		return fmt.Errorf("layoff_days must be positive, got %d", e.LayoffDays)
	}
	seen := make(map[int]bool, len(e.Windows))
	for _, n := range e.Windows {
		if n <= 0 {
			return fmt.Errorf("window sizes must be positive, got %d", n)
		}
		if seen[n] {
			return fmt.Errorf("duplicate window size %d", n)
		}
		seen[n] = true
	}
	for name, p := range map[string]Priors{"global_priors": e.GlobalPriors, "rookie_priors": e.RookiePriors} {
		for s, r := range p.Rates() {
			if r < 0 || r > 1 {
				return fmt.Errorf("%s.%s must be in [0,1], got %v", name, model.Stat(s), r)
			}
		}
	}
	return nil
}

// TrackedWindows returns the configured last-N windows in ascending size
// followed by the lifetime window.
func (e Engine) TrackedWindows() []model.Window {
	sizes := append([]int(nil), e.Windows...)
	sort.Ints(sizes)
	out := make([]model.Window, 0, len(sizes)+1)
	for _, n := range sizes {
		out = append(out, model.Window{Size: n})
	}
	return append(out, model.Lifetime)
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
