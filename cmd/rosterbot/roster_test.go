package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "storage:\n  driver: file\n  dir: " + filepath.Join(dir, "data") + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRosterGrantShowRevoke(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "roster", "grant", "management", "100")
	require.NoError(t, err)
	assert.Equal(t, "grant management 100: applied\n", out)

	out, err = run(t, "--config", cfgPath, "roster", "grant", "management", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "already_present")

	_, err = run(t, "--config", cfgPath, "roster", "grant", "junior", "200")
	require.NoError(t, err)

	out, err = run(t, "--config", cfgPath, "roster", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Management:\n  100\n")
	assert.Contains(t, out, "[id200|Неизвестно Неизвестно]")

	out, err = run(t, "--config", cfgPath, "roster", "revoke", "senior", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "not_present")
}

func TestRosterMutateRejectsBadArguments(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := run(t, "--config", cfgPath, "roster", "grant", "admins", "100")
	assert.Error(t, err)

	_, err = run(t, "--config", cfgPath, "roster", "grant", "senior", "abc")
	assert.Error(t, err)

	out, err := run(t, "--config", cfgPath, "roster", "grant", "senior")
	assert.Error(t, err)
	assert.True(t, strings.Contains(out, "accepts 2 arg(s)"))
}

func TestServeRequiresTransportSettings(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := run(t, "--config", cfgPath, "serve")
	assert.Error(t, err)
}
