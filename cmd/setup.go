package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ccrelay/internal/config"
	"github.com/theirongolddev/ccrelay/internal/settings"
)

var flagRemoveHooks bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure the collector and register the lifecycle hooks",
	RunE:  runSetup,
}

func init() {
	setupCmd.Flags().BoolVar(&flagRemoveHooks, "remove-hooks", false, "Unregister ccrelay from the host's settings.json and exit")
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	if flagRemoveHooks {
		if err := settings.Remove(settings.DefaultPath()); err != nil {
			return err
		}
		fmt.Println("Hooks removed from", settings.DefaultPath())
		return nil
	}

	cfg, _ := config.Load()

	baseURL := cfg.Collector.BaseURL
	apiKey := cfg.Collector.APIKey
	syncTools := cfg.Hooks.SyncToolCalls
	installHooks := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Collector URL").
				Placeholder("https://collector.example.com").
				Value(&baseURL),
			huh.NewInput().
				Title("API key").
				Description("Sent as a bearer token. CCRELAY_API_KEY overrides this.").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewConfirm().
				Title("Sync tool calls?").
				Description("Forward each tool invocation as an assistant message.").
				Value(&syncTools),
			huh.NewConfirm().
				Title("Register hooks?").
				Description("Adds ccrelay to "+settings.DefaultPath()).
				Value(&installHooks),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Collector.BaseURL = baseURL
	cfg.Collector.APIKey = apiKey
	cfg.Hooks.SyncToolCalls = syncTools
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Println("Saved", config.ConfigPath())

	if installHooks {
		bin, err := os.Executable()
		if err != nil {
			bin = "ccrelay"
		}
		if err := settings.Install(settings.DefaultPath(), bin); err != nil {
			return fmt.Errorf("registering hooks: %w", err)
		}
		fmt.Println("Hooks registered in", settings.DefaultPath())
	}
	return nil
}
