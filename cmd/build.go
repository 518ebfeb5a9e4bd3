package cmd

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pable/go-tennis-features/internal/features"
	"github.com/pable/go-tennis-features/internal/model"
	"github.com/pable/go-tennis-features/internal/output"
	"github.com/pable/go-tennis-features/internal/parser"
	"github.com/pable/go-tennis-features/internal/report"
	"github.com/pable/go-tennis-features/internal/storage"
)

var (
	buildOut     string
	buildNoStore bool
	buildForce   bool
	buildTop     int
	buildJobs    int
)

var cOK = color.New(color.FgGreen, color.Bold)

var buildCmd = &cobra.Command{
	Use:   "build <atp_matches.csv>...",
	Short: "Replay match files and build the feature table",
	Long: `Read one or more Sackmann-layout match files, replay every match in
chronological order and write one feature row per match to --out.
Malformed rows are skipped and counted.

The run, its rows and the final player ratings are stored in the database
unless --no-store is given. Inputs already built with the same config are
not stored again unless --force is given; --out is still written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "features.csv", "output CSV path")
	buildCmd.Flags().BoolVar(&buildNoStore, "no-store", false, "do not persist the run")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "rebuild even if the inputs were already built")
	buildCmd.Flags().IntVar(&buildTop, "top", 20, "number of players in the rating table")
	buildCmd.Flags().IntVarP(&buildJobs, "jobs", "j", 0, "max files read in parallel (0 = all)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfgYAML, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	fmt.Fprintf(os.Stderr, "Reading %d file(s)...\n", len(args))
	stream, err := parser.ParseFiles(ctx, args, parser.Options{Logger: logger, MaxParallel: buildJobs})
	if err != nil {
		return fmt.Errorf("read matches: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Read %d rows: %d matches, %d malformed\n", stream.Rows, stream.Len(), stream.Skipped())

	var (
		db     *storage.DB
		cached *storage.Run
	)
	if !buildNoStore {
		db, err = openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if !buildForce {
			prev, err := db.FindRun(stream.Digest, string(cfgYAML))
			if err != nil {
				return fmt.Errorf("check run: %w", err)
			}
			cached = prev
		}
	}

	eng := features.New(cfg.Engine, logger)
	var table *features.Table
	if db != nil && cached == nil {
		table = &features.Table{}
	}
	start := time.Now()
	outPath, sum, err := writeFeatures(ctx, eng, stream.All(), buildOut, table)
	if err != nil {
		return err
	}
	logger.Debug("replay finished",
		zap.Int("matches", sum.Matches),
		zap.Int("players", sum.Players),
		zap.Duration("elapsed", time.Since(start)))

	if cached != nil {
		cWarn.Fprintf(os.Stdout, "Inputs already built as run %s, showing cached results (use --force to store a new run).\n", shortRunID(cached.ID))
		if err := showRun(db, cached, buildTop, model.SurfaceUnknown, ""); err != nil {
			return err
		}
		cOK.Fprintf(os.Stdout, "\nWrote %d rows to %s\n", sum.Matches, outPath)
		return nil
	}

	run := storage.Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Digest:    stream.Digest,
		Inputs:    stream.Files,
		Matches:   sum.Matches,
		Players:   sum.Players,
		Skipped:   stream.Skipped(),
		Warnings:  sum.Warnings,
		OutPath:   outPath,
		Config:    string(cfgYAML),
	}
	players := eng.Store().Players()
	if db != nil {
		if err := db.InsertRun(run); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if err := db.InsertFeatureRows(run.ID, table.Rows()); err != nil {
			return fmt.Errorf("insert feature rows: %w", err)
		}
		if err := db.InsertPlayerRatings(run.ID, players); err != nil {
			return fmt.Errorf("insert ratings: %w", err)
		}
	}

	report.PrintRunSummary(os.Stdout, run)
	report.PrintMalformedTable(os.Stdout, stream.Malformed, 10)
	var top []storage.PlayerRating
	for _, p := range players[:max(0, min(buildTop, len(players)))] {
		top = append(top, storage.NewPlayerRating(p))
	}
	report.PrintRatingTable(os.Stdout, top, "")
	cOK.Fprintf(os.Stdout, "\nWrote %d rows to %s\n", sum.Matches, outPath)
	return nil
}

// writeFeatures replays seq through eng and writes the rows as CSV to
// path. Rows are also collected into table when it is non-nil. It returns
// the absolute output path.
func writeFeatures(ctx context.Context, eng *features.Engine, seq iter.Seq[model.MatchRecord], path string, table *features.Table) (string, features.Summary, error) {
	outPath, err := filepath.Abs(path)
	if err != nil {
		return "", features.Summary{}, fmt.Errorf("resolve output path: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return "", features.Summary{}, fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)

	w := output.NewWriter(bw, eng.Names())
	emit := func(r model.FeatureRow) error {
		if err := w.Write(r); err != nil {
			return err
		}
		if table != nil {
			return table.Add(r)
		}
		return nil
	}

	sum, err := eng.Run(ctx, seq, emit)
	if err != nil {
		return "", sum, fmt.Errorf("replay: %w", err)
	}
	if err := w.Flush(); err != nil {
		return "", sum, fmt.Errorf("write output: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return "", sum, fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", sum, fmt.Errorf("close output: %w", err)
	}
	return outPath, sum, nil
}
