// Package config loads and saves ccrelay configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all ccrelay configuration.
type Config struct {
	Collector CollectorConfig `toml:"collector"`
	Hooks     HooksConfig     `toml:"hooks"`
	Archive   ArchiveConfig   `toml:"archive"`
	General   GeneralConfig   `toml:"general"`
}

// CollectorConfig holds remote collector settings.
type CollectorConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key,omitempty"`
}

// HooksConfig holds event-forwarding preferences.
type HooksConfig struct {
	// SyncToolCalls forwards PostToolUse events as assistant tool messages.
	SyncToolCalls bool `toml:"sync_tool_calls"`
}

// ArchiveConfig controls the local finalized-session archive.
type ArchiveConfig struct {
	Enabled bool `toml:"enabled"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	// DataDir overrides where state, archive, and logs live.
	DataDir string `toml:"data_dir,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Archive: ArchiveConfig{Enabled: true},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ccrelay")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ccrelay")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns where mutable state lives, honoring the config override.
func (c Config) DataDir() string {
	if c.General.DataDir != "" {
		return c.General.DataDir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ccrelay")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "ccrelay")
}

// StatePath returns the session-state file path.
func (c Config) StatePath() string {
	return filepath.Join(c.DataDir(), "state.json")
}

// ArchivePath returns the local session archive database path.
func (c Config) ArchivePath() string {
	return filepath.Join(c.DataDir(), "archive.db")
}

// LogPath returns the log file path.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir(), "ccrelay.log")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// GetAPIKey returns the API key from env var or config, in that order.
func GetAPIKey(cfg Config) string {
	if key := os.Getenv("CCRELAY_API_KEY"); key != "" {
		return key
	}
	return cfg.Collector.APIKey
}

// GetCollectorURL returns the collector URL from env var or config.
func GetCollectorURL(cfg Config) string {
	if url := os.Getenv("CCRELAY_COLLECTOR_URL"); url != "" {
		return url
	}
	return cfg.Collector.BaseURL
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
