package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"polyglot/internal/config"
	"polyglot/internal/logging"
)

const (
	archiveFile  = "archive.jsonl"
	attemptsFile = "attempts.jsonl"
)

// archiveEntry is one line of archive.jsonl.
type archiveEntry struct {
	Summary
	File string `json:"file"`
}

// JSONStore keeps each lesson in its own JSON file.
type JSONStore struct {
	dir string
	mu  sync.Mutex
}

// NewJSONStore opens (creating if needed) a flat-file store in dir.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, wrap("open", fmt.Errorf("failed to create stories directory: %w", err))
	}
	logging.Store("JSON store at %s", dir)
	return &JSONStore{dir: dir}, nil
}

// Save writes stories/<time>_<topic>.json and appends to the archive.
func (s *JSONStore) Save(ctx context.Context, r *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return wrap("save", err)
	}
	name := fmt.Sprintf("%s_%s_%s.json", r.CreatedAt.Format("20060102-150405"), slug(r.Topic), shortID(r.ID))

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	if err := config.WriteFileAtomic(path, data, 0o644); err != nil {
		return wrap("save", err)
	}
	if err := s.appendLine(archiveFile, archiveEntry{Summary: r.Summarize(), File: name}); err != nil {
		// A lesson file without an archive entry is never listed.
		if rmErr := os.Remove(path); rmErr != nil {
			logging.StoreError("Could not remove unindexed lesson %s: %v", name, rmErr)
		}
		return wrap("save", err)
	}
	logging.StoreDebug("Saved lesson %s to %s", r.ID, name)
	return nil
}

func (s *JSONStore) appendLine(file string, v interface{}) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(s.dir, file), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// readArchive returns archive entries oldest first. Unreadable lines are
// skipped.
func (s *JSONStore) readArchive() ([]archiveEntry, error) {
	f, err := os.Open(filepath.Join(s.dir, archiveFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []archiveEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var e archiveEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			logging.StoreDebug("Skipping bad archive line: %v", err)
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// List returns archived summaries newest first.
func (s *JSONStore) List(ctx context.Context, limit int) ([]Summary, error) {
	s.mu.Lock()
	entries, err := s.readArchive()
	s.mu.Unlock()
	if err != nil {
		return nil, wrap("list", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]Summary, len(entries))
	for i, e := range entries {
		out[i] = e.Summary
	}
	return out, nil
}

// Get loads a lesson by ID or unique ID prefix.
func (s *JSONStore) Get(ctx context.Context, id string) (*Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readArchive()
	if err != nil {
		return nil, wrap("get", err)
	}
	var match *archiveEntry
	for i := range entries {
		if !strings.HasPrefix(entries[i].ID, id) {
			continue
		}
		if entries[i].ID == id {
			match = &entries[i]
			break
		}
		if match != nil && match.ID != entries[i].ID {
			return nil, ErrAmbiguousID
		}
		match = &entries[i]
	}
	if match == nil {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.dir, match.File))
	if err != nil {
		return nil, wrap("get", err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, wrap("get", fmt.Errorf("corrupt lesson file %s: %w", match.File, err))
	}
	return &r, nil
}

// RecordAttempt appends to attempts.jsonl.
func (s *JSONStore) RecordAttempt(ctx context.Context, a Attempt) error {
	if a.At.IsZero() {
		a.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return wrap("record attempt", s.appendLine(attemptsFile, a))
}

// CountSince counts archived lessons created at or after t.
func (s *JSONStore) CountSince(ctx context.Context, t time.Time) (int, error) {
	s.mu.Lock()
	entries, err := s.readArchive()
	s.mu.Unlock()
	if err != nil {
		return 0, wrap("count", err)
	}
	n := 0
	for _, e := range entries {
		if !e.CreatedAt.Before(t) {
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// slug turns a topic into a short file-name-safe token.
func slug(topic string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(topic) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 40 {
			break
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "lesson"
	}
	return s
}
