package cmd

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/keymapd/pkg/permissions"
)

func swapLookupEnv(t *testing.T, values map[string]string) {
	t.Helper()
	orig := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = orig })
}

func TestDoctorHealthy(t *testing.T) {
	swapLookupEnv(t, map[string]string{
		permissions.EnvAccessibility:   "granted",
		permissions.EnvInputMonitoring: "granted",
	})
	ctx := newTestContext(t, testKeymap)

	var stdout bytes.Buffer
	require.NoError(t, runDoctor(parseFlags(t, newDoctorCommand()), nil, ctx, &stdout, io.Discard))
	assert.Contains(t, stdout.String(), "OK (4 bindings)")
	assert.Contains(t, stdout.String(), "All checks passed")
}

func TestDoctorReportsBrokenKeymap(t *testing.T) {
	swapLookupEnv(t, map[string]string{
		permissions.EnvAccessibility:   "granted",
		permissions.EnvInputMonitoring: "granted",
	})
	ctx := newTestContext(t, "")
	ctx.Config.Keymap.Path = filepath.Join(t.TempDir(), "missing.yaml")

	var stdout bytes.Buffer
	err := runDoctor(parseFlags(t, newDoctorCommand()), nil, ctx, &stdout, io.Discard)
	assert.ErrorContains(t, err, "doctor found problems")
	assert.Contains(t, stdout.String(), "Keymap: read keymap")
}
