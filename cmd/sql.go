package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-features/internal/report"
	"github.com/pable/go-tennis-features/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the features database",
	Long: `Run an arbitrary SQL query against the features database and print results as a table.

Schema overview:
  runs(id, created_at, digest, inputs, matches, players, skipped, warnings,
    out_path, config_yaml)
  feature_rows(run_id, seq, match_date, tournament_id, tournament_name, match_num,
    round, surface, player_a, player_b, player_a_name, player_b_name,
    a_elo, b_elo, diff_elo, diff_h2h, diff_days_since, label, features_json)
  player_ratings(run_id, player_id, name, rookie, rating_global, rating_clay,
    rating_grass, rating_hard, rating_carpet, matches, last_match)

Note: player ids are stored as TEXT. Use quotes: WHERE player_a = '104925'
Undefined differentials are NULL; features_json holds every defined diff_*.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	return printQuery(db, query)
}

func printQuery(db *storage.DB, query string) error {
	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}
	report.PrintQueryTable(os.Stdout, cols, rows)
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}
