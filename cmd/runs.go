package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-features/internal/report"
	"github.com/pable/go-tennis-features/internal/storage"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List all stored runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No runs stored yet. Run 'tennisfeat build <atp_matches.csv>' to add one.")
		return nil
	}
	report.PrintRunsTable(os.Stdout, runs)
	return nil
}
