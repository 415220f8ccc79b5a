package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ccrelay/internal/archive"
	"github.com/theirongolddev/ccrelay/internal/cli"
	"github.com/theirongolddev/ccrelay/internal/config"
)

var flagLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List archived sessions",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVarP(&flagLimit, "limit", "n", 20, "Maximum sessions to show")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := archive.Open(cfg.ArchivePath())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	sessions, err := db.List(flagLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No archived sessions yet.")
		return nil
	}

	fmt.Printf("\n  %-16s  %-40s  %6s  %10s  %8s\n", "ENDED", "TITLE", "MSGS", "TOKENS", "COST")
	for _, s := range sessions {
		ended := "-"
		if !s.EndedAt.IsZero() {
			ended = s.EndedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Printf("  %-16s  %-40s  %6d  %10s  %8s\n",
			ended,
			cli.Truncate(s.Title, 40),
			s.MessageCount,
			cli.FormatTokens(s.InputTokens+s.OutputTokens),
			cli.FormatCost(s.CostUSD),
		)
	}

	totals, err := db.Aggregate()
	if err == nil {
		fmt.Printf("\n  %d total sessions, %s tokens, %s\n\n",
			totals.Sessions,
			cli.FormatTokens(totals.InputTokens+totals.OutputTokens),
			cli.FormatCost(totals.CostUSD),
		)
	}
	return nil
}
