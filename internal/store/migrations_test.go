package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// v1 tables as the first release created them.
var schemaV1 = []string{
	`CREATE TABLE users (id TEXT PRIMARY KEY, name TEXT NOT NULL UNIQUE, created_at TEXT NOT NULL)`,
	`CREATE TABLE stories (
		id TEXT PRIMARY KEY, user_id TEXT NOT NULL, language TEXT NOT NULL, level TEXT NOT NULL,
		topic TEXT NOT NULL, story_text TEXT NOT NULL, translation TEXT NOT NULL, created_at TEXT NOT NULL
	)`,
	`CREATE TABLE vocabulary (
		story_id TEXT NOT NULL, position INTEGER NOT NULL, word TEXT NOT NULL, translation TEXT NOT NULL,
		part_of_speech TEXT NOT NULL, example TEXT NOT NULL, PRIMARY KEY (story_id, position)
	)`,
	`CREATE TABLE exercises (
		story_id TEXT NOT NULL, id TEXT NOT NULL, position INTEGER NOT NULL, kind TEXT NOT NULL,
		question TEXT NOT NULL, answer TEXT NOT NULL, PRIMARY KEY (story_id, id)
	)`,
}

func TestMigratesVersionOneDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open(DriverSQLite, path)
	require.NoError(t, err)
	for _, stmt := range schemaV1 {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	s, err := NewSQLStore(DriverSQLite, path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	for _, m := range pendingMigrations {
		ok, err := s.columnExists(ctx, m.Table, m.Column)
		require.NoError(t, err)
		assert.True(t, ok, "%s.%s", m.Table, m.Column)
	}
	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)

	r := sampleRecord("migration")
	require.NoError(t, s.Save(ctx, r))
	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Content.Exercises[0].Options, got.Content.Exercises[0].Options)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polyglot.db")
	for i := 0; i < 2; i++ {
		s, err := NewSQLStore(DriverSQLite, path)
		require.NoError(t, err)
		v, err := s.SchemaVersion(context.Background())
		require.NoError(t, err)
		assert.Equal(t, CurrentSchemaVersion, v)
		require.NoError(t, s.Close())
	}
}
