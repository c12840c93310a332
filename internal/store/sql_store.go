package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/mattn/go-sqlite3"    // registers "sqlite3"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"polyglot/internal/lesson"
	"polyglot/internal/logging"
)

// database/sql driver names.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPgx     = "pgx"     // github.com/jackc/pgx/v5/stdlib
)

// SQLStore keeps lessons in relational tables.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore opens dsn with the named driver and creates the schema.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	logging.Store("Initializing SQL store: driver=%s", driver)

	if driver != DriverPgx {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, wrap("open", fmt.Errorf("failed to create directory: %w", err))
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		logging.StoreError("Failed to open database: %v", err)
		return nil, wrap("open", fmt.Errorf("failed to open database: %w", err))
	}

	if driver != DriverPgx {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		for _, pragma := range []string{
			"PRAGMA busy_timeout = 5000",
			"PRAGMA journal_mode = WAL",
			"PRAGMA foreign_keys = ON",
		} {
			if _, err := db.Exec(pragma); err != nil {
				logging.StoreDebug("%s failed: %v", pragma, err)
			}
		}
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.initSchema(); err != nil {
		logging.StoreError("Failed to initialize schema: %v", err)
		db.Close()
		return nil, wrap("open", err)
	}
	logging.StoreDebug("Database schema initialized")
	return s, nil
}

func (s *SQLStore) initSchema() error {
	ctx := context.Background()
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return s.runMigrations(ctx)
}

func (s *SQLStore) q(query string) string { return rebind(s.driver, query) }

// Close closes the database.
func (s *SQLStore) Close() error { return s.db.Close() }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// userID returns the id for name, creating the user on first use.
func (s *SQLStore) userID(ctx context.Context, ex execer, name string) (string, error) {
	if name == "" {
		name = "learner"
	}
	_, err := ex.ExecContext(ctx,
		s.q(`INSERT INTO users (id, name, created_at) VALUES (?, ?, ?) ON CONFLICT (name) DO NOTHING`),
		uuid.New().String(), name, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("failed to upsert user: %w", err)
	}
	var id string
	if err := ex.QueryRowContext(ctx, s.q(`SELECT id FROM users WHERE name = ?`), name).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to read user: %w", err)
	}
	return id, nil
}

// Save writes the lesson and its vocabulary and exercises in one transaction.
func (s *SQLStore) Save(ctx context.Context, r *Record) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("save", err)
	}
	defer tx.Rollback() // no-op after commit

	uid, err := s.userID(ctx, tx, r.User)
	if err != nil {
		return wrap("save", err)
	}

	c := r.Content
	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO stories
		(id, user_id, language, level, topic, method, fallback, story_text, translation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, uid, r.Language, r.Level, r.Topic, r.Method, boolInt(r.Fallback),
		c.StoryText, c.Translation, r.CreatedAt.UTC().Format(timeLayout)); err != nil {
		return wrap("save", fmt.Errorf("failed to insert story: %w", err))
	}

	for i, v := range c.Vocabulary {
		if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO vocabulary
			(story_id, position, word, translation, part_of_speech, example)
			VALUES (?, ?, ?, ?, ?, ?)`),
			r.ID, i, v.Word, v.Translation, v.PartOfSpeech, v.Example); err != nil {
			return wrap("save", fmt.Errorf("failed to insert vocabulary: %w", err))
		}
	}

	for i, ex := range c.Exercises {
		opts, err := json.Marshal(nonNil(ex.Options))
		if err != nil {
			return wrap("save", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO exercises
			(story_id, id, position, kind, question, answer, options)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			r.ID, ex.ID, i, string(ex.Kind), ex.Question, ex.Answer, string(opts)); err != nil {
			return wrap("save", fmt.Errorf("failed to insert exercise: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap("save", err)
	}
	logging.StoreDebug("Saved lesson %s (%d words, %d exercises)", r.ID, len(c.Vocabulary), len(c.Exercises))
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// List returns summaries newest first.
func (s *SQLStore) List(ctx context.Context, limit int) ([]Summary, error) {
	query := `SELECT st.id, st.created_at, st.language, st.level, st.topic, st.fallback,
			(SELECT COUNT(*) FROM vocabulary v WHERE v.story_id = st.id),
			(SELECT COUNT(*) FROM exercises e WHERE e.story_id = st.id)
		FROM stories st ORDER BY st.created_at DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, wrap("list", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var created string
		var fallback int
		if err := rows.Scan(&sum.ID, &created, &sum.Language, &sum.Level, &sum.Topic, &fallback,
			&sum.Words, &sum.Exercises); err != nil {
			return nil, wrap("list", err)
		}
		sum.CreatedAt = parseTime(created)
		sum.Fallback = fallback != 0
		out = append(out, sum)
	}
	return out, wrap("list", rows.Err())
}

// Get loads a lesson by ID or unique ID prefix.
func (s *SQLStore) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	r := &Record{ID: fullID}
	var created string
	var fallback int
	err = s.db.QueryRowContext(ctx, s.q(`SELECT u.name, st.language, st.level, st.topic, st.method,
			st.fallback, st.story_text, st.translation, st.created_at
		FROM stories st JOIN users u ON u.id = st.user_id WHERE st.id = ?`), fullID).
		Scan(&r.User, &r.Language, &r.Level, &r.Topic, &r.Method, &fallback,
			&r.Content.StoryText, &r.Content.Translation, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap("get", err)
	}
	r.CreatedAt = parseTime(created)
	r.Fallback = fallback != 0

	if r.Content.Vocabulary, err = s.vocabulary(ctx, fullID); err != nil {
		return nil, wrap("get", err)
	}
	if r.Content.Exercises, err = s.exercises(ctx, fullID); err != nil {
		return nil, wrap("get", err)
	}
	return r, nil
}

func (s *SQLStore) resolveID(ctx context.Context, prefix string) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT id FROM stories WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id LIMIT 3`),
		prefix, likePrefix(prefix))
	if err != nil {
		return "", wrap("get", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", wrap("get", err)
		}
		if id == prefix {
			return id, nil
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", wrap("get", err)
	}
	switch len(ids) {
	case 0:
		return "", ErrNotFound
	case 1:
		return ids[0], nil
	default:
		return "", ErrAmbiguousID
	}
}

func (s *SQLStore) vocabulary(ctx context.Context, storyID string) ([]lesson.VocabEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT word, translation, part_of_speech, example
		FROM vocabulary WHERE story_id = ? ORDER BY position`), storyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []lesson.VocabEntry{}
	for rows.Next() {
		var v lesson.VocabEntry
		if err := rows.Scan(&v.Word, &v.Translation, &v.PartOfSpeech, &v.Example); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLStore) exercises(ctx context.Context, storyID string) ([]lesson.Exercise, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, kind, question, answer, options
		FROM exercises WHERE story_id = ? ORDER BY position`), storyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []lesson.Exercise{}
	for rows.Next() {
		var ex lesson.Exercise
		var kind, opts string
		if err := rows.Scan(&ex.ID, &kind, &ex.Question, &ex.Answer, &opts); err != nil {
			return nil, err
		}
		ex.Kind = lesson.Kind(kind)
		if err := json.Unmarshal([]byte(opts), &ex.Options); err != nil {
			return nil, fmt.Errorf("corrupt options for exercise %s: %w", ex.ID, err)
		}
		if len(ex.Options) == 0 {
			ex.Options = nil
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// RecordAttempt stores one answer.
func (s *SQLStore) RecordAttempt(ctx context.Context, a Attempt) error {
	if a.At.IsZero() {
		a.At = time.Now()
	}
	uid, err := s.userID(ctx, s.db, a.User)
	if err != nil {
		return wrap("record attempt", err)
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO attempts
		(id, story_id, exercise_id, user_id, given, verdict, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		uuid.New().String(), a.LessonID, a.ExerciseID, uid, a.Given, a.Verdict, a.At.UTC().Format(timeLayout))
	return wrap("record attempt", err)
}

// Attempts returns the recorded answers for one exercise, oldest first.
func (s *SQLStore) Attempts(ctx context.Context, lessonID, exerciseID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT a.given, a.verdict, a.created_at, u.name
		FROM attempts a JOIN users u ON u.id = a.user_id
		WHERE a.story_id = ? AND a.exercise_id = ? ORDER BY a.created_at`), lessonID, exerciseID)
	if err != nil {
		return nil, wrap("attempts", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a := Attempt{LessonID: lessonID, ExerciseID: exerciseID}
		var at string
		if err := rows.Scan(&a.Given, &a.Verdict, &at, &a.User); err != nil {
			return nil, wrap("attempts", err)
		}
		a.At = parseTime(at)
		out = append(out, a)
	}
	return out, wrap("attempts", rows.Err())
}

// CountSince counts lessons created at or after t.
func (s *SQLStore) CountSince(ctx context.Context, t time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM stories WHERE created_at >= ?`),
		t.UTC().Format(timeLayout)).Scan(&n)
	return n, wrap("count", err)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		logging.StoreDebug("Unparseable timestamp %q: %v", s, err)
		return time.Time{}
	}
	return t.Local()
}
