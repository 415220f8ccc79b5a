package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ccrelay/internal/archive"
	"github.com/theirongolddev/ccrelay/internal/collector"
	"github.com/theirongolddev/ccrelay/internal/config"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Re-send archived session records to the collector in one batch",
	Long: "Useful after the collector was unreachable for a while: archived final\n" +
		"records are re-sent via /sync/batch. The collector applies last-write-wins,\n" +
		"so resending is harmless.",
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client := collector.NewClient(config.GetCollectorURL(cfg), config.GetAPIKey(cfg))
	if client == nil {
		return errors.New("no collector configured (run `ccrelay setup`)")
	}

	db, err := archive.Open(cfg.ArchivePath())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	sessions, err := db.List(1000)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("Nothing to backfill.")
		return nil
	}

	records := make([]collector.SessionRecord, 0, len(sessions))
	for _, s := range sessions {
		rec := collector.SessionRecord{
			SessionID:    s.SessionID,
			InputTokens:  collector.Ptr(s.InputTokens),
			OutputTokens: collector.Ptr(s.OutputTokens),
			MessageCount: collector.Ptr(s.MessageCount),
		}
		if s.Title != "" {
			rec.Title = collector.Ptr(s.Title)
		}
		if s.Model != "" {
			rec.Model = collector.Ptr(s.Model)
		}
		if s.CostUSD > 0 {
			rec.CostUSD = collector.Ptr(s.CostUSD)
		}
		if s.ToolCalls > 0 {
			rec.ToolCallCount = collector.Ptr(s.ToolCalls)
		}
		if s.DurationMS > 0 {
			rec.DurationMS = collector.Ptr(s.DurationMS)
		}
		if !s.EndedAt.IsZero() {
			rec.EndedAt = collector.Ptr(s.EndedAt)
		}
		records = append(records, rec)
	}

	if err := client.SyncBatch(cmd.Context(), records, nil); err != nil {
		return err
	}
	fmt.Printf("Backfilled %d session(s).\n", len(records))
	return nil
}
