// Package settings registers the hook commands in the host application's
// settings.json. Only the "hooks" key is rewritten; every other setting is
// carried through as raw JSON.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// hookEvents are the lifecycle events ccrelay subscribes to.
var hookEvents = []string{
	"SessionStart",
	"UserPromptSubmit",
	"PostToolUse",
	"Stop",
	"SessionEnd",
}

const commandMarker = "ccrelay hook"

// DefaultPath returns the host's user-level settings file.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", "settings.json")
}

// Install adds a `<binPath> hook <event>` command for each lifecycle event.
// Existing ccrelay entries are replaced; entries from other tools stay.
func Install(path, binPath string) error {
	root, hooks, err := load(path)
	if err != nil {
		return err
	}

	for _, event := range hookEvents {
		entries := withoutOurs(hooks[event])
		entries = append(entries, map[string]any{
			"hooks": []any{
				map[string]any{
					"type":    "command",
					"command": fmt.Sprintf("%s hook %s", binPath, event),
				},
			},
		})
		hooks[event] = entries
	}

	return save(path, root, hooks)
}

// Remove strips all ccrelay hook entries, leaving other tools' hooks alone.
func Remove(path string) error {
	root, hooks, err := load(path)
	if err != nil {
		return err
	}

	for event, entries := range hooks {
		kept := withoutOurs(entries)
		if len(kept) == 0 {
			delete(hooks, event)
		} else {
			hooks[event] = kept
		}
	}

	return save(path, root, hooks)
}

// load reads the settings file into a raw top-level map plus a decoded
// hooks section. A missing file starts empty.
func load(path string) (map[string]json.RawMessage, map[string][]any, error) {
	root := map[string]json.RawMessage{}
	hooks := map[string][]any{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return root, hooks, nil
		}
		return nil, nil, fmt.Errorf("reading settings: %w", err)
	}

	if err := json.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("parsing settings: %w", err)
	}
	if raw, ok := root["hooks"]; ok {
		if err := json.Unmarshal(raw, &hooks); err != nil {
			return nil, nil, fmt.Errorf("parsing hooks section: %w", err)
		}
	}
	return root, hooks, nil
}

func save(path string, root map[string]json.RawMessage, hooks map[string][]any) error {
	if len(hooks) == 0 {
		delete(root, "hooks")
	} else {
		raw, err := json.Marshal(hooks)
		if err != nil {
			return fmt.Errorf("encoding hooks: %w", err)
		}
		root["hooks"] = raw
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return os.Rename(tmp, path)
}

// withoutOurs filters out matcher entries whose commands mention ccrelay.
func withoutOurs(entries []any) []any {
	var kept []any
	for _, entry := range entries {
		if !mentionsUs(entry) {
			kept = append(kept, entry)
		}
	}
	return kept
}

func mentionsUs(entry any) bool {
	m, ok := entry.(map[string]any)
	if !ok {
		return false
	}
	inner, ok := m["hooks"].([]any)
	if !ok {
		return false
	}
	for _, h := range inner {
		hm, ok := h.(map[string]any)
		if !ok {
			continue
		}
		if cmd, ok := hm["command"].(string); ok && strings.Contains(cmd, commandMarker) {
			return true
		}
	}
	return false
}
