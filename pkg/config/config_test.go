package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/keymapd/pkg/keys"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(cwd)
	require.NoError(t, os.Chdir(dir))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "<defaults>", cfg.Source)
	assert.Equal(t, "keymap.yaml", cfg.Keymap.Path)
	assert.True(t, cfg.Keymap.Watch)
	assert.Equal(t, "all", cfg.Capture.Consume)
	assert.Equal(t, 30, cfg.Dispatch.TimeoutSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	chord, err := cfg.QuitChord()
	require.NoError(t, err)
	assert.Equal(t, keys.Chord(keys.KeyF5, keys.Ctrl, keys.Alt, keys.Cmd, keys.Fn), chord)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "not found")
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "keymapd.yaml")
	content := `keymap:
  path: maps/work.toml
  watch: false
  strict: true
capture:
  consume: NONE
  quit_chord: "Ctrl+Q"
dispatch:
  shell: /bin/zsh
  timeout_seconds: 5
metrics:
  listen: " 127.0.0.1:9273 "
logging:
  level: DEBUG
  format: console
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, cfg.Source)
	assert.Equal(t, filepath.Join(dir, "maps", "work.toml"), cfg.Keymap.Path)
	assert.False(t, cfg.Keymap.Watch)
	assert.True(t, cfg.Keymap.Strict)
	assert.Equal(t, "none", cfg.Capture.Consume)
	assert.Equal(t, "/bin/zsh", cfg.Dispatch.Shell)
	assert.Equal(t, 5, cfg.Dispatch.TimeoutSeconds)
	assert.Equal(t, "127.0.0.1:9273", cfg.Metrics.Listen)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	chord, err := cfg.QuitChord()
	require.NoError(t, err)
	assert.Equal(t, keys.Chord(keys.KeyQ, keys.Ctrl), chord)
}

func TestAbsoluteKeymapPathIsKept(t *testing.T) {
	dir := t.TempDir()
	keymap := filepath.Join(t.TempDir(), "keymap.yaml")
	cfgPath := filepath.Join(dir, "keymapd.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("keymap:\n  path: "+keymap+"\n"), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, keymap, cfg.Keymap.Path)
}

func TestEmptyQuitChordDisables(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "keymapd.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("capture:\n  quit_chord: \"\"\n"), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	chord, err := cfg.QuitChord()
	require.NoError(t, err)
	assert.True(t, chord.IsNone())
}

func TestInvalidValuesReturnErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "capture:\n  unsupported: true\n",
		"bad consume":      "capture:\n  consume: some\n",
		"bad quit chord":   "capture:\n  quit_chord: Ctrl+Nope\n",
		"modifier only":    "capture:\n  quit_chord: Ctrl+Alt\n",
		"negative timeout": "dispatch:\n  timeout_seconds: -1\n",
		"bad level":        "logging:\n  level: loud\n",
		"bad format":       "logging:\n  format: xml\n",
		"wrong type":       "keymap:\n  watch: sometimes\n",
		"malformed yaml":   "keymap: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), "keymapd.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
			_, err := Load(cfgPath)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeHelpers(t *testing.T) {
	level, err := NormalizeLogLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, "warn", level)

	format, err := NormalizeFormat("text")
	require.NoError(t, err)
	assert.Equal(t, "console", format)

	consume, err := NormalizeConsume("")
	require.NoError(t, err)
	assert.Equal(t, "all", consume)
}
