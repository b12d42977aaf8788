package toml

import "fmt"

const currentSchemaVersion = 1

// fileSchema is the on-disk shape written by `config init`. Reading goes
// through viper so env overrides apply; writing goes straight to TOML.
type fileSchema struct {
	Version int    `toml:"version"`
	DataDir string `toml:"data_dir,omitempty"`

	UnloadTimeoutSeconds       int    `toml:"unload_timeout_seconds"`
	MaxLoadedTabs              int    `toml:"max_loaded_tabs"`
	AggressiveUnload           bool   `toml:"aggressive_unload"`
	UnloadCheckIntervalSeconds int    `toml:"unload_check_interval_seconds"`
	AutosaveIntervalSeconds    int    `toml:"autosave_interval_seconds"`
	MasterPassword             string `toml:"master_password,omitempty"`

	Snapshots snapshotsSchema `toml:"snapshots"`
	Vault     vaultSchema     `toml:"vault"`
	Log       logSchema       `toml:"log"`
	Engine    engineSchema    `toml:"engine"`
	Metrics   metricsSchema   `toml:"metrics"`
	KDF       kdfSchema       `toml:"kdf"`
}

type snapshotsSchema struct {
	Enabled  bool   `toml:"enabled"`
	Dir      string `toml:"dir,omitempty"`
	MaxWidth int    `toml:"max_width"`
}

type vaultSchema struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path,omitempty"`
}

type logSchema struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type engineSchema struct {
	ControlURL               string `toml:"control_url,omitempty"`
	Bin                      string `toml:"bin,omitempty"`
	Headless                 bool   `toml:"headless"`
	NavigationTimeoutSeconds int    `toml:"navigation_timeout_seconds"`
	Width                    int    `toml:"width"`
	Height                   int    `toml:"height"`
}

type metricsSchema struct {
	Addr string `toml:"addr,omitempty"`
}

type kdfSchema struct {
	Time      uint32 `toml:"time"`
	MemoryKiB uint32 `toml:"memory_kib"`
	Threads   uint8  `toml:"threads"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported config schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

func toSchema(cfg Config) fileSchema {
	return fileSchema{
		Version:                    currentSchemaVersion,
		DataDir:                    cfg.DataDir,
		UnloadTimeoutSeconds:       int(cfg.UnloadTimeout.Seconds()),
		MaxLoadedTabs:              cfg.MaxLoadedTabs,
		AggressiveUnload:           cfg.AggressiveUnload,
		UnloadCheckIntervalSeconds: int(cfg.UnloadCheckInterval.Seconds()),
		AutosaveIntervalSeconds:    int(cfg.AutosaveInterval.Seconds()),
		MasterPassword:             cfg.MasterPassword,
		Snapshots: snapshotsSchema{
			Enabled:  cfg.Snapshots.Enabled,
			Dir:      cfg.Snapshots.Dir,
			MaxWidth: cfg.Snapshots.MaxWidth,
		},
		Vault: vaultSchema{
			Backend: cfg.Vault.Backend,
			Path:    cfg.Vault.Path,
		},
		Log: logSchema{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
		},
		Engine: engineSchema{
			ControlURL:               cfg.Engine.ControlURL,
			Bin:                      cfg.Engine.Bin,
			Headless:                 cfg.Engine.Headless,
			NavigationTimeoutSeconds: int(cfg.Engine.NavigationTimeout.Seconds()),
			Width:                    cfg.Engine.Width,
			Height:                   cfg.Engine.Height,
		},
		Metrics: metricsSchema{Addr: cfg.MetricsAddr},
		KDF: kdfSchema{
			Time:      cfg.KDF.Time,
			MemoryKiB: cfg.KDF.MemoryKiB,
			Threads:   cfg.KDF.Threads,
		},
	}
}
