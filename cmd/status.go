package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ccrelay/internal/archive"
	"github.com/theirongolddev/ccrelay/internal/cli"
	"github.com/theirongolddev/ccrelay/internal/collector"
	"github.com/theirongolddev/ccrelay/internal/config"
	"github.com/theirongolddev/ccrelay/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collector health and local state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Println()
	url := config.GetCollectorURL(cfg)
	if url == "" {
		fmt.Println("  Collector:  not configured (run `ccrelay setup`)")
	} else {
		fmt.Printf("  Collector:  %s\n", url)
		client := collector.NewClient(url, config.GetAPIKey(cfg))
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		if err := client.Health(ctx); err != nil {
			fmt.Printf("  Health:     unreachable (%v)\n", err)
		} else {
			fmt.Println("  Health:     ok")
		}
	}

	ids := state.NewFileStore(cfg.StatePath()).SessionIDs()
	fmt.Printf("  In flight:  %d session(s)\n", len(ids))
	for _, id := range ids {
		fmt.Printf("              %s\n", id)
	}

	if cfg.Archive.Enabled {
		if db, err := archive.Open(cfg.ArchivePath()); err == nil {
			defer func() { _ = db.Close() }()
			if totals, err := db.Aggregate(); err == nil {
				fmt.Printf("  Archived:   %d session(s), %s tokens, %s\n",
					totals.Sessions,
					cli.FormatTokens(totals.InputTokens+totals.OutputTokens),
					cli.FormatCost(totals.CostUSD),
				)
			}
		}
	}

	fmt.Println()
	return nil
}
