// Package narration turns lesson text into speech. Narrators synthesize
// audio files into a content-addressed cache; a Player plays them. Every
// failure here is advisory: callers log it and carry on without audio.
package narration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnavailable means no speech engine is installed or configured.
var ErrUnavailable = errors.New("narration unavailable")

// Audio is a synthesized clip on disk.
type Audio struct {
	Path   string
	Cached bool
}

// Narrator synthesizes speech for text in a locale (an ISO 639-1 code such
// as "ru").
type Narrator interface {
	Synthesize(ctx context.Context, text, locale string) (Audio, error)
	Name() string
}

// Cache stores clips under dir keyed by a hash of engine, voice, locale and
// text.
type Cache struct {
	dir   string
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCache creates the cache directory.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio cache: %w", err)
	}
	return &Cache{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Path returns the clip path for a synthesis request, and whether it exists.
func (c *Cache) Path(engine, voice, locale, text string) (string, bool) {
	h := sha256.Sum256([]byte(strings.Join([]string{engine, voice, locale, text}, "\x00")))
	p := filepath.Join(c.dir, hex.EncodeToString(h[:16])+".wav")
	_, err := os.Stat(p)
	return p, err == nil
}

// fill produces the clip at path through write unless another caller already
// has. write receives a temporary path in the cache directory.
func (c *Cache) fill(path string, write func(tmp string) error) error {
	unlock := c.lock(path)
	defer unlock()
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	f, err := os.CreateTemp(c.dir, ".clip-*.wav")
	if err != nil {
		return err
	}
	tmp := f.Name()
	f.Close()
	defer os.Remove(tmp)

	if err := write(tmp); err != nil {
		return err
	}
	if st, err := os.Stat(tmp); err != nil || st.Size() == 0 {
		return fmt.Errorf("speech engine produced no audio")
	}
	return os.Rename(tmp, path)
}

// lock serializes work on one clip; different clips proceed in parallel.
func (c *Cache) lock(path string) func() {
	c.mu.Lock()
	l, ok := c.locks[path]
	if !ok {
		l = &sync.Mutex{}
		c.locks[path] = l
	}
	c.mu.Unlock()
	l.Lock()
	return l.Unlock
}
