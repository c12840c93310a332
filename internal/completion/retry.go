package completion

import (
	"context"
	"strings"
	"time"

	"polyglot/internal/logging"
)

// RetryPolicy bounds the attempts a client makes for one prompt.
type RetryPolicy struct {
	MaxRetries int           // retries after the first attempt
	Backoff    time.Duration // fixed delay between attempts
	Timeout    time.Duration // per attempt
}

// DefaultRetryPolicy returns 3 retries, 2s apart, 90s per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Backoff: 2 * time.Second, Timeout: 90 * time.Second}
}

// attempts returns the total number of tries the policy allows.
func (p RetryPolicy) attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// do runs fn until it yields non-empty text, a permanent error occurs, or
// the attempts run out. Cancellation of ctx is returned as ctx.Err(), not as
// a *FetchError, so callers can tell an interrupt from an outage.
func (p RetryPolicy) do(ctx context.Context, provider string, fn func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	tries := 0
	for attempt := 1; attempt <= p.attempts(); attempt++ {
		if attempt > 1 {
			logging.APIDebug("[%s] Retry %d/%d after %v", provider, attempt-1, p.MaxRetries, p.Backoff)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(p.Backoff):
			}
		}

		tries = attempt
		text, err := p.once(ctx, fn)
		if err == nil {
			if attempt > 1 {
				logging.API("[%s] Succeeded on attempt %d", provider, attempt)
			}
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		lastErr = err
		if !IsTransient(err) {
			logging.APIError("[%s] Permanent failure on attempt %d: %v", provider, attempt, err)
			break
		}
		logging.APIWarn("[%s] Attempt %d failed: %v", provider, attempt, err)
	}
	return "", &FetchError{Provider: provider, Attempts: tries, Err: lastErr}
}

func (p RetryPolicy) once(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	text, err := fn(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
