package narration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"polyglot/internal/config"
	"polyglot/internal/lesson"
	"polyglot/internal/logging"
)

// Item is one piece of lesson text to narrate.
type Item struct {
	Label string // "story" or the vocabulary word
	Text  string
}

// Clip is the outcome for one Item.
type Clip struct {
	Item  Item
	Audio Audio
	Err   error
}

// LessonItems lists what gets read aloud: the story, then each word.
func LessonItems(c lesson.Content) []Item {
	items := []Item{{Label: "story", Text: c.StoryText}}
	for _, v := range c.Vocabulary {
		if v.Word == "" || v.Word == lesson.Unknown {
			continue
		}
		items = append(items, Item{Label: v.Word, Text: v.Word})
	}
	return items
}

// Speaker synthesizes lesson items concurrently and plays them in order.
type Speaker struct {
	Narrator    Narrator
	Player      Player // nil = synthesize only
	Concurrency int
	Timeout     time.Duration // per synthesis call
}

// NewSpeaker builds a speaker from config. It returns ErrUnavailable (wrapped)
// when the configured engine cannot run here.
func NewSpeaker(ctx context.Context, cfg config.NarrationConfig, timeout time.Duration, apiKey, audioDir string) (*Speaker, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: disabled in config", ErrUnavailable)
	}
	cache, err := NewCache(audioDir)
	if err != nil {
		return nil, err
	}

	var n Narrator
	switch cfg.Engine {
	case config.EngineGemini:
		n, err = NewGeminiNarrator(ctx, apiKey, cfg.Model, cfg.Voice, cache)
	default:
		n, err = NewEspeakNarrator(cfg.Command, cfg.Voice, cache)
	}
	if err != nil {
		return nil, err
	}

	s := &Speaker{Narrator: n, Concurrency: cfg.Concurrency, Timeout: timeout}
	if p, err := NewCommandPlayer(cfg.Player); err == nil {
		s.Player = p
	} else {
		logging.NarrationWarn("No audio player, clips will only be cached: %v", err)
	}
	return s, nil
}

// Synthesize narrates every item, at most Concurrency at a time. Per-item
// failures are reported in the clips; the returned error is only ever the
// context's.
func (s *Speaker) Synthesize(ctx context.Context, items []Item, locale string) ([]Clip, error) {
	clips := make([]Clip, len(items))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, it := range items {
		clips[i].Item = it
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cctx := gctx
			if s.Timeout > 0 {
				var cancel context.CancelFunc
				cctx, cancel = context.WithTimeout(gctx, s.Timeout)
				defer cancel()
			}
			audio, err := s.Narrator.Synthesize(cctx, it.Text, locale)
			clips[i].Audio, clips[i].Err = audio, err
			if err != nil {
				logging.NarrationWarn("Synthesis of %q failed: %v", it.Label, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return clips, err
	}
	return clips, ctx.Err()
}

// SpeakLesson synthesizes the lesson and plays the clips in lesson order. It
// returns the joined per-item failures.
func (s *Speaker) SpeakLesson(ctx context.Context, c lesson.Content, locale string) error {
	start := time.Now()
	items := LessonItems(c)
	clips, err := s.Synthesize(ctx, items, locale)
	if err != nil {
		return err
	}

	var errs []error
	for _, clip := range clips {
		if clip.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", clip.Item.Label, clip.Err))
			continue
		}
		if s.Player == nil {
			continue
		}
		if err := s.Player.Play(ctx, clip.Audio.Path); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs = append(errs, fmt.Errorf("play %s: %w", clip.Item.Label, err))
		}
	}

	joined := errors.Join(errs...)
	logging.Audit().Narrated(s.Narrator.Name(), len(items), time.Since(start), joined)
	logging.Narration("Narrated %d items with %s in %v (%d failed)", len(items), s.Narrator.Name(), time.Since(start), len(errs))
	return joined
}
