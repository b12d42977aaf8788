package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tobito320/ryxsurf/internal/ports"
)

var recordMigrations = []Migration{
	{
		Version:     1,
		Description: "crypto meta and tree record",
		Up: Statements(
			`CREATE TABLE crypto_meta (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				salt BLOB NOT NULL,
				kdf_params TEXT NOT NULL,
				format_version INTEGER NOT NULL
			)`,
			`CREATE TABLE tree_record (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				payload BLOB NOT NULL,
				format_version INTEGER NOT NULL,
				saved_at INTEGER NOT NULL
			)`,
		),
	},
}

// RecordStore keeps the crypto parameters and the encrypted tree in
// sessions.db.
type RecordStore struct {
	db *DB
}

var _ ports.RecordStore = (*RecordStore)(nil)

func OpenRecordStore(ctx context.Context, path string, logger zerolog.Logger) (*RecordStore, error) {
	db, err := Open(ctx, path, recordMigrations, logger)
	if err != nil {
		return nil, err
	}
	return &RecordStore{db: db}, nil
}

func (s *RecordStore) LoadMeta(ctx context.Context) (ports.CryptoMeta, bool, error) {
	var meta ports.CryptoMeta
	err := s.db.QueryRowContext(ctx,
		"SELECT salt, kdf_params, format_version FROM crypto_meta WHERE id = 1",
	).Scan(&meta.Salt, &meta.KDFParams, &meta.FormatVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.CryptoMeta{}, false, nil
	}
	if err != nil {
		return ports.CryptoMeta{}, false, fmt.Errorf("select crypto meta: %w", err)
	}

	return meta, true, nil
}

func (s *RecordStore) SaveMeta(ctx context.Context, meta ports.CryptoMeta) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crypto_meta (id, salt, kdf_params, format_version) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			salt = excluded.salt,
			kdf_params = excluded.kdf_params,
			format_version = excluded.format_version
	`, meta.Salt, meta.KDFParams, meta.FormatVersion)
	if err != nil {
		return fmt.Errorf("upsert crypto meta: %w", err)
	}
	return nil
}

func (s *RecordStore) LoadRecord(ctx context.Context) (ports.StoredRecord, bool, error) {
	var (
		record  ports.StoredRecord
		savedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, format_version, saved_at FROM tree_record WHERE id = 1",
	).Scan(&record.Payload, &record.FormatVersion, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.StoredRecord{}, false, nil
	}
	if err != nil {
		return ports.StoredRecord{}, false, fmt.Errorf("select tree record: %w", err)
	}
	record.SavedAt = time.UnixMilli(savedAt).UTC()

	return record, true, nil
}

// SaveRecord replaces the previous record inside one transaction.
func (s *RecordStore) SaveRecord(ctx context.Context, record ports.StoredRecord) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM tree_record"); err != nil {
			return fmt.Errorf("clear tree record: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tree_record (id, payload, format_version, saved_at) VALUES (1, ?, ?, ?)",
			record.Payload, record.FormatVersion, record.SavedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert tree record: %w", err)
		}
		return nil
	})
}

func (s *RecordStore) Close() error {
	return s.db.Close()
}
