package articulation

import (
	"fmt"
	"strings"
)

// ExtractionError records why no usable payload was found in a response.
// It is attached to fallback results for logging and is never surfaced as a
// failure of normalization itself.
type ExtractionError struct {
	Reason     string
	Candidates int // balanced spans examined
	RawLength  int
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no usable lesson payload in %d-byte response (%d candidates examined): %s",
		e.RawLength, e.Candidates, e.Reason)
}

// ShapeError means normalized content failed its own structural check.
type ShapeError struct {
	Problems []string
}

func (e *ShapeError) Error() string {
	return "normalized lesson has invalid shape: " + strings.Join(e.Problems, "; ")
}
