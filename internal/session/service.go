// Package session runs one learning-session request at a time:
//
//	Prompt Builder → Completion Fetcher → Response Normalizer → Save
//
// Only the fetcher loops. A fetch failure yields fallback content without
// normalizing; an interrupt aborts the request and nothing is saved.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"polyglot/internal/articulation"
	"polyglot/internal/completion"
	"polyglot/internal/lesson"
	"polyglot/internal/logging"
	"polyglot/internal/prompt"
	"polyglot/internal/store"
)

// ErrInterrupted means the learner canceled the request.
var ErrInterrupted = errors.New("request interrupted")

// MethodOffline marks fallback content produced without contacting the
// completion service.
const MethodOffline = "offline"

// Lesson is a generated lesson plus how it came to be.
type Lesson struct {
	ID string // set by Save

	Request  prompt.Request
	Content  lesson.Content
	Method   string
	FellBack bool
	Repaired bool
	Partial  bool
	Warnings []string
	// Cause explains a fallback: the fetch or extraction error.
	Cause    error
	Duration time.Duration

	mu      sync.Mutex
	answers map[string]lesson.Verdict
}

// Score counts the answered exercises.
type Score struct {
	Answered int
	Correct  int
	Total    int
}

// Score returns the answers recorded so far. Only the latest answer to each
// exercise counts.
func (l *Lesson) Score() Score {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Score{Answered: len(l.answers), Total: len(l.Content.Exercises)}
	for _, v := range l.answers {
		if v == lesson.Correct {
			s.Correct++
		}
	}
	return s
}

// Config holds the service's dependencies.
type Config struct {
	Fetcher completion.Fetcher // nil = offline, always fallback content
	Store   store.Store        // nil = nothing is persisted
	User    string
}

// Service orchestrates lesson requests. Requests are serialized.
type Service struct {
	mu         sync.Mutex
	fetcher    completion.Fetcher
	normalizer *articulation.Normalizer
	store      store.Store
	user       string
	audit      *logging.AuditLogger
	now        func() time.Time
}

// NewService creates a session service.
func NewService(cfg Config) *Service {
	id := uuid.New().String()
	logging.Session("Session %s started (fetcher=%s)", id, fetcherName(cfg.Fetcher))
	return &Service{
		fetcher:    cfg.Fetcher,
		normalizer: articulation.NewNormalizer(),
		store:      cfg.Store,
		user:       cfg.User,
		audit:      logging.AuditWithSession(id),
		now:        time.Now,
	}
}

func fetcherName(f completion.Fetcher) string {
	if f == nil {
		return MethodOffline
	}
	return f.Name()
}

// Generate builds the prompt, fetches and normalizes a lesson. It returns
// ErrInterrupted (wrapping the context error) when ctx is canceled; every
// other failure is absorbed into fallback content.
func (s *Service) Generate(ctx context.Context, req prompt.Request) (*Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	s.audit.LessonRequest(req.Language, req.Level, req.Topic)
	logging.Session("Lesson requested: %s/%s about %q", req.Language, req.Level, req.Topic)

	if err := ctx.Err(); err != nil {
		return nil, interrupted(err)
	}

	l := &Lesson{Request: req, answers: make(map[string]lesson.Verdict)}
	if s.fetcher == nil {
		l.Content = lesson.Fallback(req.Language, req.Topic)
		l.Method = MethodOffline
		l.FellBack = true
		return s.finish(l, start), nil
	}

	raw, err := s.fetcher.Complete(ctx, prompt.BuildRequest(req))
	if ctx.Err() != nil {
		return nil, interrupted(ctx.Err())
	}
	if err != nil {
		logging.SessionWarn("Fetch failed, using fallback content: %v", err)
		l.Content = lesson.Fallback(req.Language, req.Topic)
		l.Method = string(articulation.MethodFallback)
		l.FellBack = true
		l.Cause = err
		return s.finish(l, start), nil
	}

	res := s.normalizer.Normalize(raw, req.Language, req.Topic)
	if ctx.Err() != nil {
		return nil, interrupted(ctx.Err())
	}
	l.Content = res.Content
	l.Method = string(res.Method)
	l.FellBack = res.Method == articulation.MethodFallback
	l.Repaired = res.Repaired
	l.Partial = res.Partial
	l.Warnings = res.Warnings
	l.Cause = res.Err
	return s.finish(l, start), nil
}

func (s *Service) finish(l *Lesson, start time.Time) *Lesson {
	l.Duration = s.now().Sub(start)
	s.audit.LessonResolved(l.Method, l.FellBack, l.Duration, l.Cause)
	logging.Session("Lesson resolved via %s in %v (fallback=%v, warnings=%d)",
		l.Method, l.Duration, l.FellBack, len(l.Warnings))
	return l
}

func interrupted(cause error) error {
	logging.Session("Request interrupted: %v", cause)
	return fmt.Errorf("%w: %w", ErrInterrupted, cause)
}

// Save persists the lesson and sets l.ID. A service without a store is a
// no-op.
func (s *Service) Save(ctx context.Context, l *Lesson) error {
	if s.store == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return interrupted(err)
	}
	rec := &store.Record{
		User:      s.user,
		CreatedAt: s.now(),
		Language:  l.Request.Language,
		Level:     l.Request.Level,
		Topic:     l.Request.Topic,
		Method:    l.Method,
		Fallback:  l.FellBack,
		Content:   l.Content,
	}
	err := s.store.Save(ctx, rec)
	s.audit.LessonSaved(rec.ID, err)
	if err != nil {
		if ctx.Err() != nil {
			return interrupted(err)
		}
		logging.SessionError("Save failed: %v", err)
		return err
	}
	l.ID = rec.ID
	return nil
}

// Answer checks an answer to the exercise with the given ID and records it.
// Recording failures are logged, not returned: the verdict stands.
func (s *Service) Answer(ctx context.Context, l *Lesson, exerciseID, given string) (lesson.Verdict, error) {
	ex, ok := l.Content.ExerciseByID(exerciseID)
	if !ok {
		return lesson.Incorrect, fmt.Errorf("no exercise %s in this lesson", exerciseID)
	}
	v := lesson.Check(ex, given)

	l.mu.Lock()
	if l.answers == nil {
		l.answers = make(map[string]lesson.Verdict)
	}
	l.answers[exerciseID] = v
	l.mu.Unlock()

	s.audit.ExerciseAnswer(exerciseID, v.String())
	if s.store != nil && l.ID != "" {
		err := s.store.RecordAttempt(ctx, store.Attempt{
			LessonID:   l.ID,
			ExerciseID: exerciseID,
			User:       s.user,
			Given:      given,
			Verdict:    v.String(),
			At:         s.now(),
		})
		if err != nil {
			logging.SessionWarn("Could not record attempt for %s: %v", exerciseID, err)
		}
	}
	return v, nil
}

// Progress is the daily-goal status.
type Progress struct {
	Done int
	Goal int
}

// Met reports whether today's goal is reached.
func (p Progress) Met() bool { return p.Done >= p.Goal }

// DailyProgress counts lessons saved today against goal.
func (s *Service) DailyProgress(ctx context.Context, goal int) (Progress, error) {
	if goal < 1 {
		goal = 1
	}
	if s.store == nil {
		return Progress{Goal: goal}, nil
	}
	n, err := s.store.CountSince(ctx, store.StartOfDay(s.now()))
	if err != nil {
		return Progress{Goal: goal}, err
	}
	return Progress{Done: n, Goal: goal}, nil
}

// Stats exposes the normalizer's resolution counters.
func (s *Service) Stats() articulation.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.normalizer.GetStats()
}
