package session

import (
	"errors"
	"fmt"

	"polyglot/internal/articulation"
	"polyglot/internal/completion"
	"polyglot/internal/store"
)

// UserMessage renders err as one human-readable line with a hint. Raw model
// output never appears in it.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var fe *completion.FetchError
	var pe *store.PersistenceError
	var xe *articulation.ExtractionError
	var se *articulation.ShapeError
	switch {
	case errors.Is(err, ErrInterrupted):
		return "Request canceled. Nothing was saved."
	case errors.As(err, &fe):
		return fmt.Sprintf("The story service (%s) did not answer after %d attempt(s), so a practice story is shown instead. Hint: check that the service is running and the endpoint in config.yaml is right.",
			fe.Provider, fe.Attempts)
	case errors.As(err, &xe), errors.As(err, &se):
		return "The story service sent a reply that could not be read, so a practice story is shown instead. Hint: try again or pick a different topic."
	case errors.Is(err, store.ErrNotFound):
		return "No saved lesson matches that ID. Hint: run 'polyglot history' to list lessons."
	case errors.Is(err, store.ErrAmbiguousID):
		return "That ID prefix matches more than one lesson. Hint: type more characters of the ID."
	case errors.As(err, &pe):
		return fmt.Sprintf("Lesson storage failed during %s: %v. Hint: check free disk space and permissions of the data directory.", pe.Op, pe.Err)
	default:
		return fmt.Sprintf("Something went wrong: %v", err)
	}
}
