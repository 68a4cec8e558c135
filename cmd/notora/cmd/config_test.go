package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notora/notora/internal/config"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigCmd_AddListRemove(t *testing.T) {
	t.Setenv(config.EnvConfigDir, t.TempDir())

	// Given: two registered workspaces
	_, err := runRoot(t, "config", "add", "acme", "--token", "secret_abc", "--description", "Acme wiki")
	require.NoError(t, err)
	_, err = runRoot(t, "config", "add", "personal", "--token", "secret_def")
	require.NoError(t, err)

	// When: listing
	out, err := runRoot(t, "config", "list")
	require.NoError(t, err)

	// Then: both show up and the first is the default
	assert.Contains(t, out, "* acme")
	assert.Contains(t, out, "personal")
	assert.Contains(t, out, "Acme wiki")

	// When: removing the default
	_, err = runRoot(t, "config", "remove", "acme")
	require.NoError(t, err)

	// Then: the remaining workspace takes over as default
	out, err = runRoot(t, "config", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "acme")
	assert.Contains(t, out, "* personal")
}

func TestConfigCmd_AddRequiresToken(t *testing.T) {
	t.Setenv(config.EnvConfigDir, t.TempDir())

	_, err := runRoot(t, "config", "add", "acme")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestConfigCmd_DefaultSwitches(t *testing.T) {
	t.Setenv(config.EnvConfigDir, t.TempDir())

	_, err := runRoot(t, "config", "add", "acme", "--token", "secret_abc")
	require.NoError(t, err)
	_, err = runRoot(t, "config", "add", "personal", "--token", "secret_def")
	require.NoError(t, err)

	// When: switching the default
	_, err = runRoot(t, "config", "default", "personal")
	require.NoError(t, err)

	out, err := runRoot(t, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "* personal")

	// Unknown names are rejected
	_, err = runRoot(t, "config", "default", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown workspace")
}

func TestConfigCmd_ListEmptyRegistry(t *testing.T) {
	t.Setenv(config.EnvConfigDir, t.TempDir())

	out, err := runRoot(t, "config", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No workspaces registered")
}
