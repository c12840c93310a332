package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"polyglot/internal/logging"
)

// Schema versions:
// v1: users, stories, vocabulary, exercises (story text and words only)
// v2: exercises.options for choice exercises
// v3: stories.method and stories.fallback
// v4: attempts table
const CurrentSchemaVersion = 4

// Migration adds a column that older databases lack.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations handle tables that exist but predate newer columns.
var pendingMigrations = []Migration{
	{"exercises", "options", "TEXT NOT NULL DEFAULT '[]'"},
	{"stories", "method", "TEXT NOT NULL DEFAULT 'direct'"},
	{"stories", "fallback", "INTEGER NOT NULL DEFAULT 0"},
}

// runMigrations brings an existing database up to CurrentSchemaVersion and
// records the version. Fresh databases only get the version row.
func (s *SQLStore) runMigrations(ctx context.Context) error {
	logging.StoreDebug("Running schema migrations (%d pending)", len(pendingMigrations))

	applied := 0
	for _, m := range pendingMigrations {
		exists, err := s.columnExists(ctx, m.Table, m.Column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migration %s.%s failed: %w", m.Table, m.Column, err)
		}
		logging.Store("Migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}

	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_versions (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_versions: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO schema_versions (version, applied_at) VALUES (?, ?) ON CONFLICT (version) DO NOTHING`),
		CurrentSchemaVersion, time.Now().UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	logging.StoreDebug("Schema migrations complete: applied=%d", applied)
	return nil
}

// SchemaVersion returns the highest recorded schema version, 0 if none.
func (s *SQLStore) SchemaVersion(ctx context.Context) (int, error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_versions`).Scan(&v); err != nil {
		return 0, wrap("schema version", err)
	}
	return int(v.Int64), nil
}

// columnExists uses PRAGMA table_info on sqlite and information_schema on
// postgres.
func (s *SQLStore) columnExists(ctx context.Context, table, column string) (bool, error) {
	if s.driver == DriverPgx {
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM information_schema.columns WHERE table_name = $1 AND column_name = $2`,
			table, column).Scan(&n)
		if err != nil {
			return false, fmt.Errorf("failed to inspect %s: %w", table, err)
		}
		return n > 0, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("failed to inspect %s: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
