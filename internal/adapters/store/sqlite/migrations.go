package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"
)

// Migration is one schema step. Up runs inside a transaction together with
// the schema_version bookkeeping.
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) error
}

// Statements builds an Up function executing each statement in order.
func Statements(statements ...string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, statement := range statements {
			if _, err := tx.ExecContext(ctx, statement); err != nil {
				return err
			}
		}
		return nil
	}
}

func (db *DB) migrate(ctx context.Context, migrations []Migration) error {
	if _, err := db.sql.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL,
			description TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	current, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	pending := slices.Clone(migrations)
	slices.SortFunc(pending, func(a, b Migration) int { return a.Version - b.Version })

	for _, m := range pending {
		if m.Version <= current {
			continue
		}

		err := db.Transaction(ctx, func(tx *sql.Tx) error {
			if err := m.Up(ctx, tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_version (version, applied_at, description) VALUES (?, ?, ?)",
				m.Version,
				time.Now().UTC().Format(time.RFC3339),
				m.Description,
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		db.logger.Info().Int("version", m.Version).Str("description", m.Description).Msg("migration applied")
	}

	return nil
}

func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := db.sql.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
