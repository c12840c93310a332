package narration

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"polyglot/internal/logging"
)

// runFunc runs an external command with stdin, returning its combined output
// on error.
type runFunc func(ctx context.Context, stdin, name string, args ...string) error

func execRun(ctx context.Context, stdin, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// EspeakNarrator shells out to espeak-ng (or any binary with the same
// -v/-w flags) and caches the WAV output.
type EspeakNarrator struct {
	command string
	voice   string // overrides the locale when set
	cache   *Cache
	run     runFunc
}

// NewEspeakNarrator returns ErrUnavailable when command is not on PATH.
func NewEspeakNarrator(command, voice string, cache *Cache) (*EspeakNarrator, error) {
	if command == "" {
		command = "espeak-ng"
	}
	if _, err := exec.LookPath(command); err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrUnavailable, command)
	}
	return &EspeakNarrator{command: command, voice: voice, cache: cache, run: execRun}, nil
}

// Name returns "espeak".
func (n *EspeakNarrator) Name() string { return "espeak" }

// Synthesize writes text to a cached WAV file.
func (n *EspeakNarrator) Synthesize(ctx context.Context, text, locale string) (Audio, error) {
	voice := n.voice
	if voice == "" {
		voice = locale
	}
	path, ok := n.cache.Path(n.Name(), voice, locale, text)
	if ok {
		logging.NarrationDebug("[espeak] cache hit %s", path)
		return Audio{Path: path, Cached: true}, nil
	}

	err := n.cache.fill(path, func(tmp string) error {
		args := []string{"-w", tmp}
		if voice != "" {
			args = append(args, "-v", voice)
		}
		// Text goes over stdin so it can never be read as a flag.
		args = append(args, "--stdin")
		return n.run(ctx, text, n.command, args...)
	})
	if err != nil {
		return Audio{}, fmt.Errorf("espeak synthesis failed: %w", err)
	}
	logging.NarrationDebug("[espeak] synthesized %d chars to %s", len(text), path)
	return Audio{Path: path}, nil
}
