package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Tobito320/ryxsurf/internal/domain"
	"github.com/Tobito320/ryxsurf/internal/ports"
	"github.com/Tobito320/ryxsurf/internal/seal"
)

const DefaultAutosaveInterval = 30 * time.Second

// fixedPassphrase keys the store when no master password is configured. The
// record is still encrypted, but anyone with the binary can open it.
const fixedPassphrase = "ryxsurf-local-profile"

// Passphrase returns the password, or the built-in passphrase when none is
// set.
func Passphrase(password *string) string {
	if password == nil || *password == "" {
		return fixedPassphrase
	}
	return *password
}

// PersistenceManager saves and restores the tree through an encrypted record
// store.
type PersistenceManager struct {
	tree  *domain.SessionManager
	store ports.RecordStore

	key []byte
	// inFlight allows a single save at a time; autosave ticks that cannot
	// acquire it are dropped.
	inFlight *semaphore.Weighted

	mu           sync.Mutex
	stopAutosave func()

	settings
}

func NewPersistenceManager(tree *domain.SessionManager, store ports.RecordStore, opts ...Option) *PersistenceManager {
	return &PersistenceManager{
		tree:     tree,
		store:    store,
		inFlight: semaphore.NewWeighted(1),
		settings: newSettings(opts),
	}
}

// Initialize derives the record key. Stored crypto parameters win over the
// configured ones so existing data stays readable.
func (m *PersistenceManager) Initialize(ctx context.Context, password *string) error {
	passphrase := Passphrase(password)
	if passphrase == fixedPassphrase {
		m.logger.Warn().Msg("no master password configured, using the built-in passphrase")
	}

	meta, ok, err := m.store.LoadMeta(ctx)
	if err != nil {
		return persistenceErr("load crypto meta", err)
	}

	if ok {
		if meta.FormatVersion != recordFormatVersion {
			return persistenceErr("load crypto meta", fmt.Errorf("%w: %d", ErrUnsupportedFormat, meta.FormatVersion))
		}
		params, err := seal.ParseParams(meta.KDFParams)
		if err != nil {
			return persistenceErr("load crypto meta", err)
		}
		key, _, err := seal.DeriveKey(passphrase, meta.Salt, params)
		if err != nil {
			return fmt.Errorf("derive record key: %w", err)
		}
		m.key = key
		return nil
	}

	key, salt, err := seal.DeriveKey(passphrase, nil, m.kdf)
	if err != nil {
		return fmt.Errorf("derive record key: %w", err)
	}
	if err := m.store.SaveMeta(ctx, ports.CryptoMeta{
		Salt:          salt,
		KDFParams:     m.kdf.String(),
		FormatVersion: recordFormatVersion,
	}); err != nil {
		return persistenceErr("save crypto meta", err)
	}
	m.key = key
	m.logger.Info().Str("kdf", m.kdf.String()).Msg("initialized record encryption")

	return nil
}

// SaveAll writes the whole tree and waits for the write. It must run on the
// loop, or with the loop stopped.
func (m *PersistenceManager) SaveAll(ctx context.Context) error {
	if m.key == nil {
		return ErrNotInitialized
	}
	if err := m.inFlight.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for in-flight save: %w", err)
	}
	defer m.inFlight.Release(1)

	return m.write(ctx, m.buildRecord())
}

func (m *PersistenceManager) buildRecord() treeRecord {
	now := m.clock.Now()
	if m.tree.IsPristine() {
		return emptyTreeRecord(now)
	}
	return newTreeRecord(m.tree.State(), now)
}

func (m *PersistenceManager) write(ctx context.Context, record treeRecord) (err error) {
	started := time.Now()
	defer func() {
		m.metrics.SaveFinished(time.Since(started), err)
	}()

	payload, err := encodeRecord(record)
	if err != nil {
		return persistenceErr("save", err)
	}
	sealed, err := seal.Encrypt(payload, m.key)
	if err != nil {
		return persistenceErr("save", err)
	}

	if err := m.store.SaveRecord(ctx, ports.StoredRecord{
		Payload:       sealed,
		FormatVersion: recordFormatVersion,
		SavedAt:       m.clock.Now().UTC(),
	}); err != nil {
		return persistenceErr("save", err)
	}

	m.logger.Debug().Int("workspaces", len(record.Workspaces)).Int("tabs", len(record.Tabs)).Msg("tree saved")

	return nil
}

// LoadAll replaces the tree with the stored one. A wrong password returns
// seal.ErrAuthenticationFailed as is and leaves the tree untouched.
func (m *PersistenceManager) LoadAll(ctx context.Context) error {
	if m.key == nil {
		return ErrNotInitialized
	}

	stored, ok, err := m.store.LoadRecord(ctx)
	if err != nil {
		return persistenceErr("load", err)
	}
	if !ok {
		return m.tree.Reset(true)
	}

	plain, err := seal.Decrypt(stored.Payload, m.key)
	if err != nil {
		return err
	}

	record, err := decodeRecord(plain)
	if err != nil {
		return persistenceErr("load", err)
	}
	state, ok, err := record.State()
	if err != nil {
		return persistenceErr("load", err)
	}
	if !ok {
		return m.tree.Reset(true)
	}

	if err := m.tree.Restore(state); err != nil {
		return persistenceErr("restore", err)
	}
	m.logger.Info().Int("workspaces", len(state.Workspaces)).Int("tabs", len(record.Tabs)).Msg("tree restored")

	return nil
}

// EnableAutosave saves every interval. The record is built on the loop;
// encryption and the store write run on the executor.
func (m *PersistenceManager) EnableAutosave(ctx context.Context, scheduler ports.Scheduler, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}

	m.DisableAutosave()

	stop := scheduler.Every(interval, func() {
		m.autosave(ctx)
	})

	m.mu.Lock()
	m.stopAutosave = stop
	m.mu.Unlock()
}

func (m *PersistenceManager) DisableAutosave() {
	m.mu.Lock()
	stop := m.stopAutosave
	m.stopAutosave = nil
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (m *PersistenceManager) autosave(ctx context.Context) {
	if m.key == nil {
		return
	}
	if !m.inFlight.TryAcquire(1) {
		m.metrics.SaveSkipped()
		m.logger.Debug().Msg("autosave skipped, previous save still running")
		return
	}

	record := m.buildRecord()

	var err error
	m.executor.Go(func() {
		defer m.inFlight.Release(1)
		err = m.write(ctx, record)
	}, func() {
		m.report(err)
	})
}

// Shutdown stops autosave, waits for a running save, saves once more and
// closes the store.
func (m *PersistenceManager) Shutdown(ctx context.Context) error {
	m.DisableAutosave()

	var saveErr error
	if m.key != nil {
		saveErr = m.SaveAll(ctx)
	}
	if err := m.store.Close(); err != nil {
		return errors.Join(saveErr, persistenceErr("close", err))
	}

	return saveErr
}

// Close stops autosave and closes the store without saving.
func (m *PersistenceManager) Close() error {
	m.DisableAutosave()
	if err := m.store.Close(); err != nil {
		return persistenceErr("close", err)
	}
	return nil
}
