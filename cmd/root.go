package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ccrelay",
	Short: "Forward coding-assistant session events to a collector",
	Long: "ccrelay is invoked by the coding assistant's lifecycle hooks. It reconstructs\n" +
		"per-session records (title, tokens, cost, messages) from the hook events and\n" +
		"the transcript log, and forwards them to a remote collector.",
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
