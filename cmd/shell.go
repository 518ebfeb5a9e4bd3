package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-features/internal/model"
	"github.com/pable/go-tennis-features/internal/report"
	"github.com/pable/go-tennis-features/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	cGreeting.Println("tennisfeat shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("tennisfeat")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		cmd, args := tokens[0], tokens[1:]

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "runs":
			shellRuns(db)
		case "show":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: show <run-prefix> [--top N] [--surface S]")
				continue
			}
			shellShow(db, args[0], args[1:])
		case "player":
			if len(args) < 2 {
				cError.Fprintln(os.Stderr, "usage: player <run-prefix> <player-id> [--last N]")
				continue
			}
			last := 0
			for i := 2; i+1 < len(args); i++ {
				if args[i] == "--last" {
					last, _ = strconv.Atoi(args[i+1])
				}
			}
			if err := printPlayer(db, args[0], args[1], last); err != nil {
				cError.Fprintf(os.Stderr, "error: %v\n", err)
			}
		case "sql":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: sql <query>")
				continue
			}
			if err := printQuery(db, strings.Join(args, " ")); err != nil {
				cError.Fprintf(os.Stderr, "error: %v\n", err)
			}
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", cmd)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"runs", "list all stored runs"},
		{"show <run-prefix>", "show a run's summary and top ratings"},
		{"show <run-prefix> --top N --surface S", "same, N players ranked on surface S"},
		{"player <run-prefix> <player-id>", "per-match rating trend for one player"},
		{"sql <query>", "run a raw SQL query"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-38s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellRuns(db *storage.DB) {
	runs, err := db.ListRuns()
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(runs) == 0 {
		cMuted.Println("No runs stored yet.")
		return
	}
	report.PrintRunsTable(os.Stdout, runs)
}

func shellShow(db *storage.DB, prefix string, args []string) {
	top, surface := 20, model.SurfaceUnknown
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "--top":
			if n, err := strconv.Atoi(args[i+1]); err == nil {
				top = n
			}
		case "--surface":
			surface = model.ParseSurface(args[i+1])
		}
	}
	run, err := db.GetRunByPrefix(prefix)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if run == nil {
		fmt.Fprintf(os.Stderr, "no run found with prefix %q\n", prefix)
		return
	}
	if err := showRun(db, run, top, surface, ""); err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
	}
}
