package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-features/internal/report"
	"github.com/pable/go-tennis-features/internal/storage"
)

var playerLast int

var playerCmd = &cobra.Command{
	Use:   "player <run-prefix> <player-id>",
	Short: "Chronological per-match rating trend for a player",
	Args:  cobra.ExactArgs(2),
	RunE:  runPlayer,
}

func init() {
	playerCmd.Flags().IntVar(&playerLast, "last", 0, "only show the last N matches (0 = all)")
}

func runPlayer(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	return printPlayer(db, args[0], args[1], playerLast)
}

func printPlayer(db *storage.DB, prefix, playerID string, last int) error {
	run, err := db.GetRunByPrefix(prefix)
	if err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("no run found with id prefix %q", prefix)
	}
	points, err := db.PlayerTrend(run.ID, playerID)
	if err != nil {
		return fmt.Errorf("query trend: %w", err)
	}
	if len(points) == 0 {
		fmt.Println("no matches found")
		return nil
	}

	report.PrintPlayerOverview(os.Stdout, points[0].Name, points)
	if last > 0 && last < len(points) {
		points = points[len(points)-last:]
	}
	report.PrintTrendTable(os.Stdout, points)
	return nil
}
