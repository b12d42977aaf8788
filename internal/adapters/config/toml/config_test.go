package toml

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tobito320/ryxsurf/internal/seal"
)

func newTestSource(t *testing.T, contents string) *Source {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	path := filepath.Join(dir, "config.toml")
	if contents != "" {
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	}

	source, err := NewSource(viper.New(), path)
	require.NoError(t, err)
	return source
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	source := newTestSource(t, "")

	cfg, err := source.Load()
	require.NoError(t, err)

	defaults := Default()
	assert.Equal(t, defaults.UnloadTimeout, cfg.UnloadTimeout)
	assert.Equal(t, 10, cfg.MaxLoadedTabs)
	assert.False(t, cfg.AggressiveUnload)
	assert.Equal(t, 60*time.Second, cfg.UnloadCheckInterval)
	assert.Equal(t, 30*time.Second, cfg.AutosaveInterval)
	assert.True(t, cfg.Snapshots.Enabled)
	assert.Equal(t, VaultBackendAuto, cfg.Vault.Backend)
	assert.Equal(t, seal.DefaultParams, cfg.KDF)
	assert.Nil(t, cfg.Password())
	assert.Equal(t, filepath.Join(os.Getenv("XDG_DATA_HOME"), "ryxsurf"), cfg.DataDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "sessions.db"), cfg.SessionsPath())
	assert.Equal(t, filepath.Join(cfg.DataDir, "snapshots"), cfg.SnapshotsDir())
	assert.Equal(t, filepath.Join(cfg.DataDir, "passwords.db"), cfg.VaultPath(VaultBackendSQLite))
	assert.Equal(t, filepath.Join(cfg.DataDir, "vault"), cfg.VaultPath(VaultBackendFile))
}

func TestLoadReadsFile(t *testing.T) {
	source := newTestSource(t, `
version = 1
unload_timeout_seconds = 120
max_loaded_tabs = 4
aggressive_unload = true
master_password = "hunter2"

[snapshots]
enabled = false

[vault]
backend = "SQLite"
`)

	cfg, err := source.Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.UnloadTimeout)
	assert.Equal(t, 4, cfg.MaxLoadedTabs)
	assert.True(t, cfg.AggressiveUnload)
	assert.False(t, cfg.Snapshots.Enabled)
	assert.Equal(t, VaultBackendSQLite, cfg.Vault.Backend)
	require.NotNil(t, cfg.Password())
	assert.Equal(t, "hunter2", *cfg.Password())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	source := newTestSource(t, "max_loaded_tabs = 4\n")
	t.Setenv("RYXSURF_MAX_LOADED_TABS", "7")
	t.Setenv("RYXSURF_UNLOAD_TIMEOUT", "45")
	t.Setenv("RYXSURF_ENABLE_SNAPSHOTS", "false")
	t.Setenv("RYXSURF_AUTOSAVE_INTERVAL_SECONDS", "5")
	t.Setenv("RYXSURF_LOG_LEVEL", "debug")

	cfg, err := source.Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.MaxLoadedTabs)
	assert.Equal(t, 45*time.Second, cfg.UnloadTimeout)
	assert.False(t, cfg.Snapshots.Enabled)
	assert.Equal(t, 5*time.Second, cfg.AutosaveInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadPrefersCurrentEnvNameOverLegacy(t *testing.T) {
	source := newTestSource(t, "")
	t.Setenv("RYXSURF_UNLOAD_TIMEOUT_SECONDS", "90")
	t.Setenv("RYXSURF_UNLOAD_TIMEOUT", "45")

	cfg, err := source.Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.UnloadTimeout)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name     string
		contents string
		contains string
	}{
		{name: "zero max loaded", contents: "max_loaded_tabs = 0\n", contains: "max_loaded_tabs"},
		{name: "negative timeout", contents: "unload_timeout_seconds = -1\n", contains: "unload_timeout_seconds"},
		{name: "unknown backend", contents: "[vault]\nbackend = \"keyring\"\n", contains: "vault.backend"},
		{name: "weak kdf", contents: "[kdf]\ntime = 1\nmemory_kib = 8192\nthreads = 1\n", contains: "kdf parameters"},
		{name: "future version", contents: "version = 9\n", contains: "unsupported config schema version"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			source := newTestSource(t, tc.contents)

			_, err := source.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestNewSourceRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("max_loaded_tabs = ["), 0o600))

	_, err := NewSource(viper.New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestInitWritesFileOnce(t *testing.T) {
	source := newTestSource(t, "")
	cfg := Default()
	cfg.DataDir = t.TempDir()
	cfg.MaxLoadedTabs = 3

	require.NoError(t, source.Init(cfg, false))

	info, err := os.Stat(source.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(configFileMode), info.Mode().Perm())

	data, err := os.ReadFile(source.Path())
	require.NoError(t, err)
	var file fileSchema
	require.NoError(t, toml.Unmarshal(data, &file))
	assert.Equal(t, currentSchemaVersion, file.Version)
	assert.Equal(t, 3, file.MaxLoadedTabs)
	assert.Equal(t, 300, file.UnloadTimeoutSeconds)

	err = source.Init(cfg, false)
	assert.ErrorIs(t, err, ErrConfigExists)
	require.NoError(t, source.Init(cfg, true))

	entries, err := os.ReadDir(filepath.Dir(source.Path()))
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp")
	}
}

func TestInitRoundTripsThroughLoad(t *testing.T) {
	source := newTestSource(t, "")
	cfg := Default()
	cfg.DataDir = t.TempDir()
	cfg.AggressiveUnload = true
	cfg.Vault.Backend = VaultBackendFile
	require.NoError(t, source.Init(cfg, false))

	reloaded, err := NewSource(viper.New(), source.Path())
	require.NoError(t, err)
	got, err := reloaded.Load()
	require.NoError(t, err)

	assert.Equal(t, cfg, got)
}

func TestEncodeOmitsMasterPassword(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.MasterPassword = "secret"

	data, err := Encode(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), "max_loaded_tabs = 10")
}

func TestWatchWithoutFile(t *testing.T) {
	source := newTestSource(t, "")
	assert.False(t, source.Watch(func(Config, error) {}))
}
