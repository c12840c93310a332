// Package completion sends lesson prompts to a chat-completion service and
// returns the raw reply text. Clients retry transient failures with a fixed
// backoff and report exhaustion as a *FetchError.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Fetcher is the completion boundary used by the session.
type Fetcher interface {
	// Complete returns the raw reply text for a prompt. The reply is never
	// empty on success.
	Complete(ctx context.Context, prompt string) (string, error)
	// Name identifies the provider in logs and errors.
	Name() string
}

// Pinger is implemented by fetchers that can check reachability cheaply.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrEmptyResponse is returned for a reply with no text.
var ErrEmptyResponse = errors.New("empty response")

// FetchError means no content could be obtained after every attempt.
type FetchError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: no content after %d attempt(s): %v", e.Provider, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError is a non-200 HTTP reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error %d", e.Code)
	}
	return fmt.Sprintf("API error %d: %s", e.Code, e.Body)
}

// IsTransient reports whether a failed attempt is worth retrying: connection
// failures, timeouts, empty replies, 429 and 5xx statuses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if code := statusCode(err); code != 0 {
		return transientStatus(code)
	}
	return false
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// statusCode digs the HTTP status out of provider-specific error types.
func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		return oaiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return 0
}
