// Package toml loads the ryxsurf configuration through viper and writes the
// versioned TOML file created by `config init`.
package toml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/Tobito320/ryxsurf/internal/seal"
)

const (
	configType      = "toml"
	envPrefix       = "RYXSURF"
	appDirName      = "ryxsurf"
	configFileName  = "config.toml"
	configFileMode  = 0o600
	configDirMode   = 0o700
	tempFilePattern = ".config-*.toml.tmp"
)

const (
	keyVersion             = "version"
	keyDataDir             = "data_dir"
	keyUnloadTimeout       = "unload_timeout_seconds"
	keyMaxLoadedTabs       = "max_loaded_tabs"
	keyAggressiveUnload    = "aggressive_unload"
	keyUnloadCheckInterval = "unload_check_interval_seconds"
	keyAutosaveInterval    = "autosave_interval_seconds"
	keyMasterPassword      = "master_password"
	keySnapshotsEnabled    = "snapshots.enabled"
	keySnapshotsDir        = "snapshots.dir"
	keySnapshotsMaxWidth   = "snapshots.max_width"
	keyVaultBackend        = "vault.backend"
	keyVaultPath           = "vault.path"
	keyLogLevel            = "log.level"
	keyLogFormat           = "log.format"
	keyEngineControlURL    = "engine.control_url"
	keyEngineBin           = "engine.bin"
	keyEngineHeadless      = "engine.headless"
	keyEngineNavTimeout    = "engine.navigation_timeout_seconds"
	keyEngineWidth         = "engine.width"
	keyEngineHeight        = "engine.height"
	keyMetricsAddr         = "metrics.addr"
	keyKDFTime             = "kdf.time"
	keyKDFMemory           = "kdf.memory_kib"
	keyKDFThreads          = "kdf.threads"
)

// Vault backends accepted by vault.backend.
const (
	VaultBackendAuto   = "auto"
	VaultBackendPass   = "pass"
	VaultBackendSQLite = "sqlite"
	VaultBackendFile   = "file"
)

var ErrConfigExists = errors.New("config file already exists")

// legacyEnv maps keys to the environment variables older releases read.
var legacyEnv = map[string]string{
	keyUnloadTimeout:    "RYXSURF_UNLOAD_TIMEOUT",
	keyMaxLoadedTabs:    "RYXSURF_MAX_LOADED_TABS",
	keySnapshotsEnabled: "RYXSURF_ENABLE_SNAPSHOTS",
}

type Config struct {
	DataDir string

	UnloadTimeout       time.Duration
	MaxLoadedTabs       int
	AggressiveUnload    bool
	UnloadCheckInterval time.Duration
	AutosaveInterval    time.Duration
	// MasterPassword is empty when none is configured.
	MasterPassword string

	Snapshots   SnapshotsConfig
	Vault       VaultConfig
	Log         LogConfig
	Engine      EngineConfig
	MetricsAddr string
	KDF         seal.Params
}

type SnapshotsConfig struct {
	Enabled  bool
	Dir      string
	MaxWidth int
}

type VaultConfig struct {
	Backend string
	Path    string
}

type LogConfig struct {
	Level  string
	Format string
}

type EngineConfig struct {
	ControlURL        string
	Bin               string
	Headless          bool
	NavigationTimeout time.Duration
	Width             int
	Height            int
}

// Default returns the configuration used when no file or env override is set.
func Default() Config {
	return Config{
		UnloadTimeout:       300 * time.Second,
		MaxLoadedTabs:       10,
		UnloadCheckInterval: 60 * time.Second,
		AutosaveInterval:    30 * time.Second,
		Snapshots:           SnapshotsConfig{Enabled: true, MaxWidth: 512},
		Vault:               VaultConfig{Backend: VaultBackendAuto},
		Log:                 LogConfig{Level: "info", Format: "console"},
		Engine: EngineConfig{
			Headless:          true,
			NavigationTimeout: 30 * time.Second,
			Width:             1280,
			Height:            800,
		},
		KDF: seal.DefaultParams,
	}
}

// SessionsPath is the encrypted tree store.
func (c Config) SessionsPath() string { return filepath.Join(c.DataDir, "sessions.db") }

func (c Config) SnapshotsDir() string {
	if c.Snapshots.Dir != "" {
		return c.Snapshots.Dir
	}
	return filepath.Join(c.DataDir, "snapshots")
}

// VaultPath is the sqlite database or the file-store directory, depending on
// the backend.
func (c Config) VaultPath(backend string) string {
	if c.Vault.Path != "" {
		return c.Vault.Path
	}
	if backend == VaultBackendFile {
		return filepath.Join(c.DataDir, "vault")
	}
	return filepath.Join(c.DataDir, "passwords.db")
}

// Password returns the configured master password, nil when none is set.
func (c Config) Password() *string {
	if c.MasterPassword == "" {
		return nil
	}
	password := c.MasterPassword
	return &password
}

func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is empty"))
	}
	if c.UnloadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keyUnloadTimeout))
	}
	if c.MaxLoadedTabs < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", keyMaxLoadedTabs))
	}
	if c.UnloadCheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keyUnloadCheckInterval))
	}
	if c.AutosaveInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keyAutosaveInterval))
	}
	switch c.Vault.Backend {
	case VaultBackendAuto, VaultBackendPass, VaultBackendSQLite, VaultBackendFile:
	default:
		errs = append(errs, fmt.Errorf("unknown %s %q", keyVaultBackend, c.Vault.Backend))
	}
	if !c.KDF.AtLeast(seal.DefaultParams) {
		errs = append(errs, fmt.Errorf("kdf parameters %s are below the minimum %s", c.KDF, seal.DefaultParams))
	}

	return errors.Join(errs...)
}

// Source reads the configuration file and the RYXSURF_* environment.
type Source struct {
	v    *viper.Viper
	path string
}

// NewSource binds v to path, or to ~/.config/ryxsurf/config.toml when path is
// empty. A missing file is not an error.
func NewSource(v *viper.Viper, path string) (*Source, error) {
	if v == nil {
		v = viper.New()
	}

	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	path = filepath.Clean(absPath)

	dataDir, err := DefaultDataDir()
	if err != nil {
		return nil, err
	}

	v.SetConfigFile(path)
	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envPrefix+"_"+envKey(key), legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", legacy, err)
		}
	}
	setDefaults(v, Default(), dataDir)

	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return &Source{v: v, path: path}, nil
}

func envKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func isNotFound(err error) bool {
	var configNotFound viper.ConfigFileNotFoundError
	return errors.As(err, &configNotFound) || errors.Is(err, fs.ErrNotExist)
}

func setDefaults(v *viper.Viper, cfg Config, dataDir string) {
	v.SetDefault(keyVersion, currentSchemaVersion)
	v.SetDefault(keyDataDir, dataDir)
	v.SetDefault(keyUnloadTimeout, int(cfg.UnloadTimeout.Seconds()))
	v.SetDefault(keyMaxLoadedTabs, cfg.MaxLoadedTabs)
	v.SetDefault(keyAggressiveUnload, cfg.AggressiveUnload)
	v.SetDefault(keyUnloadCheckInterval, int(cfg.UnloadCheckInterval.Seconds()))
	v.SetDefault(keyAutosaveInterval, int(cfg.AutosaveInterval.Seconds()))
	v.SetDefault(keyMasterPassword, "")
	v.SetDefault(keySnapshotsEnabled, cfg.Snapshots.Enabled)
	v.SetDefault(keySnapshotsDir, "")
	v.SetDefault(keySnapshotsMaxWidth, cfg.Snapshots.MaxWidth)
	v.SetDefault(keyVaultBackend, cfg.Vault.Backend)
	v.SetDefault(keyVaultPath, "")
	v.SetDefault(keyLogLevel, cfg.Log.Level)
	v.SetDefault(keyLogFormat, cfg.Log.Format)
	v.SetDefault(keyEngineControlURL, "")
	v.SetDefault(keyEngineBin, "")
	v.SetDefault(keyEngineHeadless, cfg.Engine.Headless)
	v.SetDefault(keyEngineNavTimeout, int(cfg.Engine.NavigationTimeout.Seconds()))
	v.SetDefault(keyEngineWidth, cfg.Engine.Width)
	v.SetDefault(keyEngineHeight, cfg.Engine.Height)
	v.SetDefault(keyMetricsAddr, "")
	v.SetDefault(keyKDFTime, cfg.KDF.Time)
	v.SetDefault(keyKDFMemory, cfg.KDF.MemoryKiB)
	v.SetDefault(keyKDFThreads, cfg.KDF.Threads)
}

func (s *Source) Path() string { return s.path }

// Viper exposes the underlying instance so commands can bind flags to keys.
func (s *Source) Viper() *viper.Viper { return s.v }

// Load resolves the effective configuration and validates it.
func (s *Source) Load() (Config, error) {
	v := s.v
	if err := (fileSchema{Version: v.GetInt(keyVersion)}).validateVersion(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		DataDir:             v.GetString(keyDataDir),
		UnloadTimeout:       seconds(v.GetInt(keyUnloadTimeout)),
		MaxLoadedTabs:       v.GetInt(keyMaxLoadedTabs),
		AggressiveUnload:    v.GetBool(keyAggressiveUnload),
		UnloadCheckInterval: seconds(v.GetInt(keyUnloadCheckInterval)),
		AutosaveInterval:    seconds(v.GetInt(keyAutosaveInterval)),
		MasterPassword:      v.GetString(keyMasterPassword),
		Snapshots: SnapshotsConfig{
			Enabled:  v.GetBool(keySnapshotsEnabled),
			Dir:      v.GetString(keySnapshotsDir),
			MaxWidth: v.GetInt(keySnapshotsMaxWidth),
		},
		Vault: VaultConfig{
			Backend: strings.ToLower(v.GetString(keyVaultBackend)),
			Path:    v.GetString(keyVaultPath),
		},
		Log: LogConfig{
			Level:  v.GetString(keyLogLevel),
			Format: v.GetString(keyLogFormat),
		},
		Engine: EngineConfig{
			ControlURL:        v.GetString(keyEngineControlURL),
			Bin:               v.GetString(keyEngineBin),
			Headless:          v.GetBool(keyEngineHeadless),
			NavigationTimeout: seconds(v.GetInt(keyEngineNavTimeout)),
			Width:             v.GetInt(keyEngineWidth),
			Height:            v.GetInt(keyEngineHeight),
		},
		MetricsAddr: v.GetString(keyMetricsAddr),
		KDF: seal.Params{
			Time:      v.GetUint32(keyKDFTime),
			MemoryKiB: v.GetUint32(keyKDFMemory),
			Threads:   uint8(min(v.GetUint(keyKDFThreads), 255)),
		},
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Snapshots.Dir = expandHome(cfg.Snapshots.Dir)
	cfg.Vault.Path = expandHome(cfg.Vault.Path)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", s.path, err)
	}

	return cfg, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// Watch reloads the file on change and hands the result to fn. It reports
// false when there is no file to watch.
func (s *Source) Watch(fn func(Config, error)) bool {
	if _, err := os.Stat(s.path); err != nil {
		return false
	}

	s.v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		fn(s.Load())
	})
	s.v.WatchConfig()

	return true
}

// Init writes cfg to the source path. An existing file is only replaced with
// force.
func (s *Source) Init(cfg Config, force bool) error {
	if _, err := os.Stat(s.path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, s.path)
	}

	return writeSchema(s.path, toSchema(cfg))
}

// Encode renders cfg the way Init writes it. The master password is left out.
func Encode(cfg Config) ([]byte, error) {
	file := toSchema(cfg)
	file.MasterPassword = ""

	data, err := toml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encode config file: %w", err)
	}
	return data, nil
}

func writeSchema(path string, file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(path), configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode config file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}

	if err := tempFile.Chmod(configFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}

	cleanup = false

	return nil
}

// DefaultPath is $XDG_CONFIG_HOME/ryxsurf/config.toml, falling back to
// ~/.config.
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appDirName, configFileName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDirName, configFileName), nil
}

// DefaultDataDir is $XDG_DATA_HOME/ryxsurf, falling back to ~/.local/share.
func DefaultDataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appDirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appDirName), nil
}
