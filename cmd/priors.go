package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-features/internal/features"
	"github.com/pable/go-tennis-features/internal/parser"
)

var priorsBefore string

var priorsCmd = &cobra.Command{
	Use:   "priors <atp_matches.csv>...",
	Short: "Estimate league priors from matches before a cutoff",
	Long: `Pool every match dated strictly before --before and print a config file
whose global_priors are the league rates. Use a cutoff at or before the
first match you build features for, so the priors carry no information
from the evaluated period.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPriors,
}

func init() {
	priorsCmd.Flags().StringVar(&priorsBefore, "before", "", "cutoff date YYYY-MM-DD (required)")
	priorsCmd.MarkFlagRequired("before")
}

func runPriors(cmd *cobra.Command, args []string) error {
	before, err := time.Parse("2006-01-02", priorsBefore)
	if err != nil {
		return fmt.Errorf("invalid --before: %w", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	stream, err := parser.ParseFiles(cmd.Context(), args, parser.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("read matches: %w", err)
	}
	priors, n := features.EstimatePriors(stream.All(), before, cfg.Engine.GlobalPriors)
	if n == 0 {
		return fmt.Errorf("no matches before %s", priorsBefore)
	}
	cfg.Engine.GlobalPriors = priors
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("estimated priors: %w", err)
	}
	out, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	fmt.Fprintf(os.Stdout, "# global_priors estimated from %d player-matches (%d matches) before %s\n", n, n/2, priorsBefore)
	os.Stdout.Write(out)
	return nil
}
