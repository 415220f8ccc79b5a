package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ccrelay/internal/archive"
	"github.com/theirongolddev/ccrelay/internal/config"
	"github.com/theirongolddev/ccrelay/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse archived sessions interactively",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := archive.Open(cfg.ArchivePath())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	sessions, err := db.List(500)
	if err != nil {
		return err
	}
	totals, err := db.Aggregate()
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(tui.New(sessions, totals), tea.WithAltScreen()).Run()
	return err
}
