package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notora/notora/internal/config"
)

// execute runs a fresh root command with args against an isolated config
// directory and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigDir, t.TempDir())

	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	// When: executing with --help
	out, err := execute(t, "--help")

	// Then: usage lists the main commands
	require.NoError(t, err)
	assert.Contains(t, out, "notora")
	assert.Contains(t, out, "index")
	assert.Contains(t, out, "search")
	assert.Contains(t, out, "serve")
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := execute(t, "--version")

	require.NoError(t, err)
	assert.Contains(t, out, "notora version")
}

func TestSearchCmd_NoWorkspaceConfigured(t *testing.T) {
	// Given: an empty registry

	// When: searching
	_, err := execute(t, "search", "roadmap")

	// Then: the error points at config add
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no workspace configured")
}

func TestViewCmd_NoIndexBuilt(t *testing.T) {
	// Given: a registered workspace without an index
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Add("acme", config.Workspace{Token: "secret_abc"}))
	require.NoError(t, cfg.Save())

	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"view", "/projects"})

	// When: viewing a page
	err = cmd.Execute()

	// Then: it should suggest running index first
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no index found")
}

func TestJobsCmd_RejectsUnknownOrigin(t *testing.T) {
	_, err := execute(t, "jobs", "--origin", "daemon")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "origin must be cli or mcp")
}

func TestGlobCmd_RejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Add("acme", config.Workspace{Token: "secret_abc"}))
	require.NoError(t, cfg.Save())

	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"glob", "proj*", "--field", "body"})

	err = cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "field must be slug or title")
}
