package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	configtoml "github.com/Tobito320/ryxsurf/internal/adapters/config/toml"
	treeadapter "github.com/Tobito320/ryxsurf/internal/adapters/render/tree"
	chainstore "github.com/Tobito320/ryxsurf/internal/adapters/secrets/chain"
	filestore "github.com/Tobito320/ryxsurf/internal/adapters/secrets/file"
	passstore "github.com/Tobito320/ryxsurf/internal/adapters/secrets/pass"
	sqlitesecrets "github.com/Tobito320/ryxsurf/internal/adapters/secrets/sqlite"
	snapshotfs "github.com/Tobito320/ryxsurf/internal/adapters/snapshot/fs"
	sqlitestore "github.com/Tobito320/ryxsurf/internal/adapters/store/sqlite"
	"github.com/Tobito320/ryxsurf/internal/application"
	"github.com/Tobito320/ryxsurf/internal/domain"
	"github.com/Tobito320/ryxsurf/internal/logging"
	"github.com/Tobito320/ryxsurf/internal/ports"
	"github.com/Tobito320/ryxsurf/internal/seal"
)

type app struct {
	source  *configtoml.Source
	cfg     configtoml.Config
	logger  zerolog.Logger
	bindErr error

	askPassword  bool
	readPassword func(in io.Reader, out io.Writer, prompt string) (string, error)
	treeRenderer func(application.TreeView, treeadapter.RenderOptions) (string, error)
	newEngine    func(configtoml.EngineConfig, zerolog.Logger) browserEngine
	now          func() time.Time
}

func wireApp() (*app, error) {
	source, err := configtoml.NewSource(viper.New(), os.Getenv("RYXSURF_CONFIG"))
	if err != nil {
		return nil, fmt.Errorf("wire config source: %w", err)
	}

	return &app{
		source:       source,
		logger:       zerolog.Nop(),
		readPassword: readPassword,
		treeRenderer: treeadapter.Render,
		newEngine:    newChromiumEngine,
		now:          time.Now,
	}, nil
}

// bindFlag lets a flag override its config key when set on the command line.
func (a *app) bindFlag(key string, flag *pflag.Flag) {
	if err := a.source.Viper().BindPFlag(key, flag); err != nil {
		a.bindErr = errors.Join(a.bindErr, fmt.Errorf("bind flag %s: %w", flag.Name, err))
	}
}

func (a *app) component(name string) zerolog.Logger {
	return logging.Component(a.logger, name)
}

func (a *app) unloadPolicy() application.UnloadPolicy {
	return unloadPolicyFrom(a.cfg)
}

func unloadPolicyFrom(cfg configtoml.Config) application.UnloadPolicy {
	return application.UnloadPolicy{
		Timeout:    cfg.UnloadTimeout,
		MaxLoaded:  cfg.MaxLoadedTabs,
		Aggressive: cfg.AggressiveUnload,
	}
}

func (a *app) renderOptions() treeadapter.RenderOptions {
	return treeadapter.RenderOptions{
		Now:       a.now(),
		IdleAfter: a.cfg.UnloadTimeout,
		MaxLoaded: a.cfg.MaxLoadedTabs,
	}
}

// profile is one opened tree with its managers.
type profile struct {
	tree        *domain.SessionManager
	snapshots   *application.SnapshotManager
	unload      *application.TabUnloadManager
	persistence *application.PersistenceManager
}

type profileDeps struct {
	engine   ports.Engine
	executor ports.Executor
	metrics  ports.Metrics
	reporter *application.ErrorReporter
	// unlock wraps key derivation, for example with a spinner.
	unlock func(ctx context.Context, derive func(context.Context) error) error
}

// openProfile opens the record store, derives its key and restores the tree.
// Every restored tab starts unloaded.
func (a *app) openProfile(ctx context.Context, deps profileDeps) (*profile, error) {
	common := []application.Option{
		application.WithLogger(a.logger),
		application.WithMetrics(deps.metrics),
		application.WithExecutor(deps.executor),
		application.WithKDFParams(a.cfg.KDF),
		application.WithErrorReporter(deps.reporter),
	}

	snapshots := application.NewSnapshotManager(
		deps.engine,
		snapshotfs.NewStore(a.cfg.SnapshotsDir(), a.cfg.Snapshots.MaxWidth),
		a.cfg.Snapshots.Enabled,
		append(common, application.WithLogger(a.component("snapshots")))...,
	)

	env := &domain.Env{
		Engine:    deps.engine,
		Executor:  deps.executor,
		TabClosed: snapshots.TabClosed,
		LoadFailed: func(tab *domain.Tab, err error) {
			if deps.reporter != nil {
				deps.reporter.Report(err)
				return
			}
			a.logger.Error().Err(err).Str("tab", tab.ID()).Msg("tab load failed")
		},
	}
	tree := domain.NewSessionManager(env)

	store, err := sqlitestore.OpenRecordStore(ctx, a.cfg.SessionsPath(), a.component("store"))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	persistence := application.NewPersistenceManager(tree, store,
		append(common, application.WithLogger(a.component("persistence")))...)

	initialize := func(ctx context.Context) error {
		return persistence.Initialize(ctx, a.cfg.Password())
	}
	if deps.unlock != nil {
		err = deps.unlock(ctx, initialize)
	} else {
		err = initialize(ctx)
	}
	if err != nil {
		return nil, errors.Join(err, persistence.Close())
	}

	if err := persistence.LoadAll(ctx); err != nil {
		return nil, errors.Join(describeLoadError(err), persistence.Close())
	}

	return &profile{
		tree:        tree,
		snapshots:   snapshots,
		unload:      application.NewTabUnloadManager(tree, snapshots, a.unloadPolicy(), append(common, application.WithLogger(a.component("unload")))...),
		persistence: persistence,
	}, nil
}

func describeLoadError(err error) error {
	if errors.Is(err, seal.ErrAuthenticationFailed) {
		return fmt.Errorf("%w: check master_password or RYXSURF_MASTER_PASSWORD", err)
	}
	return err
}

// openVault selects the credential backend once for the process.
func (a *app) openVault(ctx context.Context) (*application.CredentialVault, func() error, error) {
	passphrase := application.Passphrase(a.cfg.Password())
	logger := a.component("vault")

	candidates := map[string]chainstore.Backend{
		configtoml.VaultBackendPass: {
			Name: configtoml.VaultBackendPass,
			Open: func(context.Context) (ports.SecretStore, error) { return passstore.NewStore(), nil },
		},
		configtoml.VaultBackendSQLite: {
			Name: configtoml.VaultBackendSQLite,
			Open: func(ctx context.Context) (ports.SecretStore, error) {
				return sqlitesecrets.Open(ctx, a.cfg.VaultPath(configtoml.VaultBackendSQLite), passphrase, a.cfg.KDF, logger)
			},
		},
		configtoml.VaultBackendFile: {
			Name: configtoml.VaultBackendFile,
			Open: func(context.Context) (ports.SecretStore, error) {
				return filestore.Open(a.cfg.VaultPath(configtoml.VaultBackendFile), passphrase, a.cfg.KDF)
			},
		},
	}

	order := []string{a.cfg.Vault.Backend}
	if a.cfg.Vault.Backend == configtoml.VaultBackendAuto {
		order = []string{configtoml.VaultBackendPass, configtoml.VaultBackendSQLite, configtoml.VaultBackendFile}
	}
	backends := make([]chainstore.Backend, 0, len(order))
	for _, name := range order {
		backends = append(backends, candidates[name])
	}

	selected, err := chainstore.Select(ctx, logger, backends...)
	if err != nil {
		return nil, nil, fmt.Errorf("open credential vault: %w", err)
	}

	closeFn := func() error {
		if closer, ok := selected.SecretStore.(io.Closer); ok {
			return closer.Close()
		}
		return nil
	}

	return application.NewCredentialVault(selected, application.WithLogger(logger)), closeFn, nil
}
