package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configtoml "github.com/Tobito320/ryxsurf/internal/adapters/config/toml"
	"github.com/Tobito320/ryxsurf/internal/adapters/engine/detached"
)

const testPassword = "correct horse battery staple"

func TestTreeOnFreshProfileShowsDefaultWorkspace(t *testing.T) {
	home := newTestHome(t)

	stdout, _, err := executeCLI(t, home, "tree")
	require.NoError(t, err)
	assert.Contains(t, stdout, "workspaces: 1  tabs: 0")
	assert.Contains(t, stdout, "Main (current)")
	assert.Contains(t, stdout, "(no tabs)")
}

func TestOpenPersistsAcrossInvocations(t *testing.T) {
	home := newTestHome(t)

	stdout, _, err := executeCLI(t, home, "open", "https://go.dev")
	require.NoError(t, err)
	assert.Equal(t, "Main / Overview / 1. https://go.dev\n", stdout)

	stdout, _, err = executeCLI(t, home, "open", "https://pkg.go.dev")
	require.NoError(t, err)
	assert.Contains(t, stdout, "2. https://pkg.go.dev")

	stdout, _, err = executeCLI(t, home, "next")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1. https://go.dev")

	stdout, _, err = executeCLI(t, home, "tree")
	require.NoError(t, err)
	assert.Contains(t, stdout, "tabs: 2")
	assert.Contains(t, stdout, "https://go.dev")
	assert.Contains(t, stdout, "https://pkg.go.dev")
}

func TestTreeJSONOutput(t *testing.T) {
	home := newTestHome(t)

	_, _, err := executeCLI(t, home, "open", "https://go.dev")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "tree", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "https://go.dev")
}

func TestWorkspaceAndSessionCommands(t *testing.T) {
	home := newTestHome(t)

	stdout, _, err := executeCLI(t, home, "workspace", "add", "Research")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Research / Overview (no tabs)")

	stdout, _, err = executeCLI(t, home, "session", "add", "Reading")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Research / Reading (no tabs)")

	_, _, err = executeCLI(t, home, "open", "https://go.dev/doc")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "workspace", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "  1\tMain\t1 sessions")
	assert.Contains(t, stdout, "* 2\tResearch\t2 sessions")

	stdout, _, err = executeCLI(t, home, "workspace", "switch", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Main / Overview (no tabs)")

	stdout, _, err = executeCLI(t, home, "workspace", "remove", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Main / Overview")

	stdout, _, err = executeCLI(t, home, "workspace", "list")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Research")
}

func TestSessionRemoveKeepsOverview(t *testing.T) {
	home := newTestHome(t)

	_, _, err := executeCLI(t, home, "session", "add", "Reading")
	require.NoError(t, err)
	_, _, err = executeCLI(t, home, "open", "https://go.dev")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "session", "remove", "1")
	require.NoError(t, err)
	assert.Equal(t, "Main / Reading / 1. https://go.dev\n", stdout)

	stdout, _, err = executeCLI(t, home, "workspace", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "* 1\tMain\t2 sessions")
}

func TestTabSwitchRejectsZeroPosition(t *testing.T) {
	home := newTestHome(t)

	_, _, err := executeCLI(t, home, "tab", "switch", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position starting at 1")
}

func TestWrongPasswordFailsToLoadTree(t *testing.T) {
	home := newTestHome(t)

	_, _, err := executeCLI(t, home, "open", "https://go.dev")
	require.NoError(t, err)

	t.Setenv("RYXSURF_MASTER_PASSWORD", "not the password")
	_, _, err = executeCLI(t, home, "tree")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
	assert.Contains(t, err.Error(), "RYXSURF_MASTER_PASSWORD")
}

func TestSaveReportsTreeSize(t *testing.T) {
	home := newTestHome(t)

	_, _, err := executeCLI(t, home, "open", "https://go.dev")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "save")
	require.NoError(t, err)
	assert.Equal(t, "saved 1 workspaces, 1 tabs\n", stdout)
}

func TestVaultStoresAndDeletesCredential(t *testing.T) {
	home := newTestHome(t)

	stdout, _, err := executeCLI(t, home, "vault", "set", "https://Example.com/login", "alice", "--password", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "stored alice@example.com\n", stdout)

	stdout, _, err = executeCLI(t, home, "vault", "get", "example.com")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alice")
	assert.Contains(t, stdout, "********")
	assert.NotContains(t, stdout, "s3cret")

	stdout, _, err = executeCLI(t, home, "vault", "get", "example.com", "--show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "s3cret")

	stdout, _, err = executeCLI(t, home, "vault", "domains")
	require.NoError(t, err)
	assert.Equal(t, "example.com\n", stdout)

	_, _, err = executeCLI(t, home, "vault", "delete", "example.com", "alice")
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "vault", "get", "example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential not found")
}

func TestVaultSetReadsPasswordFromStdin(t *testing.T) {
	home := newTestHome(t)

	stdout, _, err := executeCLIWithInput(t, home, strings.NewReader("piped-secret\n"), "vault", "set", "example.org", "bob")
	require.NoError(t, err)
	assert.Equal(t, "stored bob@example.org\n", stdout)

	stdout, _, err = executeCLI(t, home, "vault", "get", "example.org", "--show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "piped-secret")
}

func TestVaultSetRejectsConflictingFlags(t *testing.T) {
	home := newTestHome(t)

	_, _, err := executeCLI(t, home, "vault", "set", "example.com", "alice", "--password", "x", "--generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestVaultGenerate(t *testing.T) {
	home := newTestHome(t)

	stdout, _, err := executeCLI(t, home, "vault", "generate", "--length", "24")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(stdout), 24)
}

func TestConfigInitShowAndPath(t *testing.T) {
	home := newTestHome(t)
	configPath := filepath.Join(home, ".config", "ryxsurf", "config.toml")

	stdout, _, err := executeCLI(t, home, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, configPath+"\n", stdout)

	_, _, err = executeCLI(t, home, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, configPath)

	_, _, err = executeCLI(t, home, "config", "init")
	require.Error(t, err)
	assert.ErrorIs(t, err, configtoml.ErrConfigExists)
	assert.Contains(t, err.Error(), "--force")

	stdout, _, err = executeCLI(t, home, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "max_loaded_tabs = 10")
	assert.NotContains(t, stdout, testPassword)
}

func TestDataDirFlagOverridesConfig(t *testing.T) {
	home := newTestHome(t)
	dataDir := filepath.Join(home, "elsewhere")

	_, _, err := executeCLI(t, home, "--data-dir", dataDir, "open", "https://go.dev")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dataDir, "sessions.db"))
}

func TestRunConsoleAppliesCommandsAndSavesOnExit(t *testing.T) {
	home := newTestHome(t)

	input := strings.Join([]string{
		"open https://go.dev",
		"open https://pkg.go.dev",
		"tab 1",
		"bogus",
		"unload",
		"quit",
	}, "\n")
	stdout, _, err := executeRun(t, home, strings.NewReader(input))
	require.NoError(t, err)

	assert.Contains(t, stdout, "Main / Overview / 1. https://go.dev\n")
	assert.Contains(t, stdout, "Main / Overview / 2. https://pkg.go.dev\n")
	assert.Contains(t, stdout, "error: unknown command")
	assert.Contains(t, stdout, "loaded tabs")

	stdout, _, err = executeCLI(t, home, "tree")
	require.NoError(t, err)
	assert.Contains(t, stdout, "tabs: 2")
	assert.Contains(t, stdout, "https://pkg.go.dev")
}

func TestRunStopsAtEndOfInput(t *testing.T) {
	home := newTestHome(t)

	stdout, _, err := executeRun(t, home, strings.NewReader("tree\n"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "workspaces: 1")
}

func TestVersionCommand(t *testing.T) {
	home := newTestHome(t)

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func newTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	t.Setenv("RYXSURF_CONFIG", "")
	t.Setenv("RYXSURF_VAULT_BACKEND", configtoml.VaultBackendSQLite)
	t.Setenv("RYXSURF_MASTER_PASSWORD", testPassword)
	return home
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	return executeCLIWithInput(t, home, strings.NewReader(""), args...)
}

func executeCLIWithInput(t *testing.T, home string, in io.Reader, args ...string) (string, string, error) {
	t.Helper()
	require.Equal(t, home, os.Getenv("HOME"))

	root := newRootCmd()
	return executeRoot(root, in, args...)
}

// executeRun runs the console against an engine without a browser.
func executeRun(t *testing.T, home string, in io.Reader) (string, string, error) {
	t.Helper()
	require.Equal(t, home, os.Getenv("HOME"))

	app, err := wireApp()
	require.NoError(t, err)
	app.newEngine = func(configtoml.EngineConfig, zerolog.Logger) browserEngine {
		return detached.New()
	}

	return executeRoot(buildRootCmd(app, nil), in, "run")
}

func executeRoot(root *cobra.Command, in io.Reader, args ...string) (string, string, error) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(in)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
