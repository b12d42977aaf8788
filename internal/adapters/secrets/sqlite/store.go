package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	sqlitestore "github.com/Tobito320/ryxsurf/internal/adapters/store/sqlite"
	"github.com/Tobito320/ryxsurf/internal/ports"
	"github.com/Tobito320/ryxsurf/internal/seal"
)

var migrations = []sqlitestore.Migration{
	{
		Version:     1,
		Description: "vault meta and sealed secrets",
		Up: sqlitestore.Statements(
			`CREATE TABLE vault_meta (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				salt BLOB NOT NULL,
				kdf_params TEXT NOT NULL
			)`,
			`CREATE TABLE secrets (
				key TEXT PRIMARY KEY,
				value_encrypted BLOB NOT NULL,
				created INTEGER NOT NULL,
				updated INTEGER NOT NULL
			)`,
		),
	},
}

// Store is the encrypted SQLite credential backend, used when no OS password
// store is available.
type Store struct {
	db  *sqlitestore.DB
	key []byte
	now func() time.Time
}

var _ ports.SecretStore = (*Store)(nil)

func Open(ctx context.Context, path, password string, params seal.Params, logger zerolog.Logger) (*Store, error) {
	db, err := sqlitestore.Open(ctx, path, migrations, logger)
	if err != nil {
		return nil, err
	}

	key, err := deriveKey(ctx, db, password, params)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, key: key, now: time.Now}, nil
}

func deriveKey(ctx context.Context, db *sqlitestore.DB, password string, params seal.Params) ([]byte, error) {
	var (
		salt      []byte
		rawParams string
	)
	err := db.QueryRowContext(ctx, "SELECT salt, kdf_params FROM vault_meta WHERE id = 1").Scan(&salt, &rawParams)
	switch {
	case err == nil:
		stored, err := seal.ParseParams(rawParams)
		if err != nil {
			return nil, err
		}
		key, _, err := seal.DeriveKey(password, salt, stored)
		if err != nil {
			return nil, fmt.Errorf("derive vault key: %w", err)
		}
		return key, nil
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("select vault meta: %w", err)
	}

	key, salt, err := seal.DeriveKey(password, nil, params)
	if err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO vault_meta (id, salt, kdf_params) VALUES (1, ?, ?)", salt, params.String(),
	); err != nil {
		return nil, fmt.Errorf("insert vault meta: %w", err)
	}

	return key, nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	sealed, err := seal.Encrypt([]byte(value), s.key)
	if err != nil {
		return fmt.Errorf("seal secret %q: %w", key, err)
	}

	now := s.now().UnixMilli()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO secrets (key, value_encrypted, created, updated) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value_encrypted = excluded.value_encrypted,
			updated = excluded.updated
	`, key, sealed, now, now); err != nil {
		return fmt.Errorf("upsert secret %q: %w", key, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx, "SELECT value_encrypted FROM secrets WHERE key = ?", key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("sqlite secret %q: %w", key, ports.ErrSecretNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("select secret %q: %w", key, err)
	}

	plain, err := seal.Decrypt(sealed, s.key)
	if err != nil {
		return "", fmt.Errorf("open secret %q: %w", key, err)
	}

	return string(plain), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM secrets WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete secret %q: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
