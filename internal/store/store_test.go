package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyglot/internal/config"
	"polyglot/internal/lesson"
)

func sampleRecord(topic string) *Record {
	c := lesson.Fallback("russian", topic)
	c.Vocabulary = append(c.Vocabulary, lesson.VocabEntry{Word: "друг", Translation: "friend", PartOfSpeech: "noun", Example: ""})
	c.Exercises = append(c.Exercises, lesson.Exercise{
		ID: lesson.ExerciseID(1, lesson.KindQnA, "Who?"), Kind: lesson.KindQnA, Question: "Who?", Answer: "Anna",
	})
	return &Record{User: "tester", Language: "russian", Level: "beginner", Topic: topic, Method: "direct", Content: c}
}

// backends runs fn against every store that needs no external service.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("json", func(t *testing.T) {
		s, err := NewJSONStore(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLStore(DriverSQLite, filepath.Join(t.TempDir(), "polyglot.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		r := sampleRecord("friendship")
		require.NoError(t, s.Save(ctx, r))
		require.NotEmpty(t, r.ID)
		require.False(t, r.CreatedAt.IsZero())

		got, err := s.Get(ctx, r.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(r.Content, got.Content); diff != "" {
			t.Errorf("content mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, "tester", got.User)
		assert.Equal(t, "friendship", got.Topic)
		assert.WithinDuration(t, r.CreatedAt, got.CreatedAt, time.Millisecond)

		byPrefix, err := s.Get(ctx, r.ID[:6])
		require.NoError(t, err)
		assert.Equal(t, r.ID, byPrefix.ID)
	})
}

func TestGetMissing(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.Get(context.Background(), "does-not-exist")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListNewestFirstWithLimit(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
		for i, topic := range []string{"travel", "food", "music"} {
			r := sampleRecord(topic)
			r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
			require.NoError(t, s.Save(ctx, r))
		}

		all, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"music", "food", "travel"}, []string{all[0].Topic, all[1].Topic, all[2].Topic})
		assert.Equal(t, 2, all[0].Words)
		assert.Equal(t, 2, all[0].Exercises)

		two, err := s.List(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, two, 2)
	})
}

func TestCountSince(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Now()

		old := sampleRecord("yesterday")
		old.CreatedAt = StartOfDay(now).Add(-time.Hour)
		require.NoError(t, s.Save(ctx, old))
		require.NoError(t, s.Save(ctx, sampleRecord("today")))

		n, err := s.CountSince(ctx, StartOfDay(now))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestRecordAttempt(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		r := sampleRecord("travel")
		require.NoError(t, s.Save(ctx, r))

		ex := r.Content.Exercises[0]
		require.NoError(t, s.RecordAttempt(ctx, Attempt{
			LessonID: r.ID, ExerciseID: ex.ID, User: "tester", Given: "1", Verdict: lesson.Correct.String(),
		}))
	})
}

func TestSQLAttemptsByExercise(t *testing.T) {
	s, err := NewSQLStore(DriverSQLite, filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	r := sampleRecord("travel")
	require.NoError(t, s.Save(ctx, r))
	ex := r.Content.Exercises[1]
	require.NoError(t, s.RecordAttempt(ctx, Attempt{LessonID: r.ID, ExerciseID: ex.ID, User: "tester", Given: "bob", Verdict: "incorrect"}))
	require.NoError(t, s.RecordAttempt(ctx, Attempt{LessonID: r.ID, ExerciseID: ex.ID, User: "tester", Given: "anna", Verdict: "correct"}))

	got, err := s.Attempts(ctx, r.ID, ex.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "incorrect", got[0].Verdict)
	assert.Equal(t, "correct", got[1].Verdict)
	assert.Equal(t, "tester", got[1].User)
}

func TestJSONStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir)
	require.NoError(t, err)

	r := sampleRecord("Friends & Family!")
	r.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	require.NoError(t, s.Save(context.Background(), r))

	matches, err := filepath.Glob(filepath.Join(dir, "20260102-030405_friends-family_*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	_, err = os.Stat(filepath.Join(dir, archiveFile))
	assert.NoError(t, err)
}

func TestJSONStoreRemovesLessonWhenArchiveAppendFails(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir)
	require.NoError(t, err)
	// A directory in place of the archive makes the append fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, archiveFile), 0o755))

	err = s.Save(context.Background(), sampleRecord("orphan"))
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "save", pe.Op)

	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestJSONStoreSkipsCorruptArchiveLines(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), sampleRecord("a")))

	f, err := os.OpenFile(filepath.Join(dir, archiveFile), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	list, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPersistenceErrorWrapping(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewJSONStore(filepath.Join(blocker, "stories"))
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "open", pe.Op)
}

func TestOpenBackends(t *testing.T) {
	paths := config.NewPaths(t.TempDir())

	s, err := Open(config.StorageConfig{Backend: config.BackendJSON}, paths)
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	s, err = Open(config.StorageConfig{Backend: config.BackendSQLite}, paths)
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())
	_, err = os.Stat(paths.Database())
	assert.NoError(t, err)

	_, err = Open(config.StorageConfig{Backend: config.BackendPostgres}, paths)
	assert.Error(t, err)
	_, err = Open(config.StorageConfig{Backend: "tape"}, paths)
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE x = ? AND y = ?`
	assert.Equal(t, q, rebind(DriverSQLite, q))
	assert.Equal(t, `SELECT a FROM t WHERE x = $1 AND y = $2`, rebind(DriverPgx, q))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "friends-family", slug("  Friends & Family! "))
	assert.Equal(t, "дружба", slug("Дружба"))
	assert.Equal(t, "lesson", slug("???"))
}
