package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readSettings(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var root map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &root))
	return root
}

func hooksOf(t *testing.T, root map[string]json.RawMessage) map[string][]any {
	t.Helper()
	hooks := map[string][]any{}
	if raw, ok := root["hooks"]; ok {
		require.NoError(t, json.Unmarshal(raw, &hooks))
	}
	return hooks
}

func TestInstall_FreshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	require.NoError(t, Install(path, "/usr/local/bin/ccrelay"))

	hooks := hooksOf(t, readSettings(t, path))
	for _, event := range hookEvents {
		require.Len(t, hooks[event], 1, "event %s", event)
	}
	entry := hooks["Stop"][0].(map[string]any)
	inner := entry["hooks"].([]any)[0].(map[string]any)
	assert.Equal(t, "command", inner["type"])
	assert.Equal(t, "/usr/local/bin/ccrelay hook Stop", inner["command"])
}

func TestInstall_PreservesOtherSettingsAndHooks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	seed := `{
		"model": "opus",
		"env": {"FOO": "bar"},
		"hooks": {
			"Stop": [{"hooks":[{"type":"command","command":"other-tool notify"}]}]
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	require.NoError(t, Install(path, "ccrelay"))

	root := readSettings(t, path)
	assert.JSONEq(t, `"opus"`, string(root["model"]))
	assert.JSONEq(t, `{"FOO":"bar"}`, string(root["env"]))

	hooks := hooksOf(t, root)
	require.Len(t, hooks["Stop"], 2, "other tool's hook kept alongside ours")
}

func TestInstall_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	require.NoError(t, Install(path, "ccrelay"))
	require.NoError(t, Install(path, "ccrelay"))

	hooks := hooksOf(t, readSettings(t, path))
	for _, event := range hookEvents {
		assert.Len(t, hooks[event], 1, "reinstall must not duplicate %s", event)
	}
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	seed := `{
		"model": "opus",
		"hooks": {
			"Stop": [
				{"hooks":[{"type":"command","command":"other-tool notify"}]},
				{"hooks":[{"type":"command","command":"ccrelay hook Stop"}]}
			],
			"SessionEnd": [{"hooks":[{"type":"command","command":"ccrelay hook SessionEnd"}]}]
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	require.NoError(t, Remove(path))

	root := readSettings(t, path)
	hooks := hooksOf(t, root)
	assert.Len(t, hooks["Stop"], 1)
	_, hasEnd := hooks["SessionEnd"]
	assert.False(t, hasEnd, "event with only our hook removed entirely")
	assert.JSONEq(t, `"opus"`, string(root["model"]))
}

func TestRemove_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, Remove(path))
}
