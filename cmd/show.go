package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-features/internal/model"
	"github.com/pable/go-tennis-features/internal/report"
	"github.com/pable/go-tennis-features/internal/storage"
)

var (
	showTop     int
	showSurface string
	showPlayer  string
)

var showCmd = &cobra.Command{
	Use:   "show <run-prefix>",
	Short: "Show a stored run and its top ratings",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().IntVar(&showTop, "top", 20, "number of players to list")
	showCmd.Flags().StringVar(&showSurface, "surface", "", "rank by surface rating (clay, grass, hard, carpet)")
	showCmd.Flags().StringVar(&showPlayer, "player", "", "highlight player id")
}

func runShow(cmd *cobra.Command, args []string) error {
	prefix := args[0]

	surface := model.SurfaceUnknown
	if showSurface != "" {
		surface = model.ParseSurface(showSurface)
		if surface == model.SurfaceUnknown {
			return fmt.Errorf("unknown surface %q", showSurface)
		}
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	run, err := db.GetRunByPrefix(prefix)
	if err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	if run == nil {
		fmt.Fprintf(os.Stderr, "No run found with id prefix %q\n", prefix)
		return nil
	}
	return showRun(db, run, showTop, surface, showPlayer)
}

func showRun(db *storage.DB, run *storage.Run, top int, surface model.Surface, focus string) error {
	ratings, err := db.TopRatings(run.ID, surface, max(top, 0))
	if err != nil {
		return fmt.Errorf("get ratings: %w", err)
	}
	report.PrintRunSummary(os.Stdout, *run)
	if surface != model.SurfaceUnknown {
		fmt.Fprintf(os.Stdout, "Ranked by %s rating\n", surface)
	}
	report.PrintRatingTable(os.Stdout, ratings, focus)
	return nil
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
