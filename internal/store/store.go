// Package store persists generated lessons and the learner's exercise
// attempts.
//
// Two backends implement Store:
//   - JSONStore: one file per lesson under stories/, plus append-only
//     archive.jsonl and attempts.jsonl
//   - SQLStore: users, stories, vocabulary, exercises and attempts tables on
//     modernc sqlite, mattn sqlite3 or postgres (pgx)
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"polyglot/internal/lesson"
)

// ErrNotFound is returned by Get when no lesson matches.
var ErrNotFound = errors.New("lesson not found")

// ErrAmbiguousID is returned by Get when an ID prefix matches several lessons.
var ErrAmbiguousID = errors.New("lesson id prefix is ambiguous")

// PersistenceError wraps any failure to read or write stored data.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// Record is one saved lesson.
type Record struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	User      string         `json:"user"`
	Language  string         `json:"language"`
	Level     string         `json:"level"`
	Topic     string         `json:"topic"`
	Method    string         `json:"method"` // how the content was obtained
	Fallback  bool           `json:"fallback"`
	Content   lesson.Content `json:"content"`
}

// Summary is the listing view of a Record.
type Summary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Language  string    `json:"language"`
	Level     string    `json:"level"`
	Topic     string    `json:"topic"`
	Fallback  bool      `json:"fallback"`
	Words     int       `json:"words"`
	Exercises int       `json:"exercises"`
}

// Summarize returns the listing view of r.
func (r *Record) Summarize() Summary {
	return Summary{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Language:  r.Language,
		Level:     r.Level,
		Topic:     r.Topic,
		Fallback:  r.Fallback,
		Words:     len(r.Content.Vocabulary),
		Exercises: len(r.Content.Exercises),
	}
}

// Attempt is one answer to one exercise.
type Attempt struct {
	LessonID   string    `json:"lesson_id"`
	ExerciseID string    `json:"exercise_id"`
	User       string    `json:"user"`
	Given      string    `json:"given"`
	Verdict    string    `json:"verdict"`
	At         time.Time `json:"at"`
}

// Store is the persistence boundary.
type Store interface {
	// Save assigns r.ID and r.CreatedAt when empty and persists r.
	Save(ctx context.Context, r *Record) error
	// List returns summaries newest first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Summary, error)
	// Get returns the lesson with the given ID or unique ID prefix.
	Get(ctx context.Context, id string) (*Record, error)
	RecordAttempt(ctx context.Context, a Attempt) error
	// CountSince counts lessons saved at or after t.
	CountSince(ctx context.Context, t time.Time) (int, error)
	Close() error
}

// StartOfDay returns local midnight for t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
