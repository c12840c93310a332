// Package lesson defines the canonical lesson record produced for every
// learning session, along with the deterministic fallback content used when
// no usable model response is available.
package lesson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Unknown is the placeholder for any required string field the model omitted
// or sent with an unusable type.
const Unknown = "unknown"

// Placeholders used when a recognized payload lacks one of the two mandatory
// text fields.
const (
	MissingStoryText   = "[story text missing from model response]"
	MissingTranslation = "[translation missing from model response]"
)

// Kind identifies an exercise style. The set is open: unrecognized kinds are
// passed through verbatim.
type Kind string

const (
	KindMultipleChoice Kind = "multiple_choice"
	KindFillBlank      Kind = "fill_blank"
	KindTrueFalse      Kind = "true_false"
	KindQnA            Kind = "qna"
	KindMatching       Kind = "matching"
	KindUnknown        Kind = Unknown
)

// kindAliases maps spellings seen in model output onto the canonical kinds.
var kindAliases = map[string]Kind{
	"multiple_choice":   KindMultipleChoice,
	"multiplechoice":    KindMultipleChoice,
	"choice":            KindMultipleChoice,
	"mcq":               KindMultipleChoice,
	"fill_blank":        KindFillBlank,
	"fill_in_blank":     KindFillBlank,
	"fill_in_the_blank": KindFillBlank,
	"fill_the_blank":    KindFillBlank,
	"cloze":             KindFillBlank,
	"true_false":        KindTrueFalse,
	"true_or_false":     KindTrueFalse,
	"truefalse":         KindTrueFalse,
	"qna":               KindQnA,
	"q_and_a":           KindQnA,
	"q&a":               KindQnA,
	"question_answer":   KindQnA,
	"open_question":     KindQnA,
	"comprehension":     KindQnA,
	"matching":          KindMatching,
	"match":             KindMatching,
	"match_pairs":       KindMatching,
}

// ParseKind canonicalizes a kind string. Empty input yields KindUnknown;
// unrecognized input is returned trimmed but otherwise untouched.
func ParseKind(s string) Kind {
	s = strings.TrimSpace(s)
	if s == "" {
		return KindUnknown
	}
	key := strings.ToLower(s)
	key = strings.NewReplacer("-", "_", " ", "_", "/", "_").Replace(key)
	if k, ok := kindAliases[key]; ok {
		return k
	}
	return Kind(s)
}

// IsChoice reports whether answers are picked from a fixed option list.
func (k Kind) IsChoice() bool {
	switch k {
	case KindMultipleChoice, KindTrueFalse, KindMatching:
		return true
	}
	return false
}

// Content is the normalized lesson. All four fields are always present after
// normalization.
type Content struct {
	StoryText   string       `json:"storyText"`
	Translation string       `json:"translation"`
	Vocabulary  []VocabEntry `json:"vocabulary"`
	Exercises   []Exercise   `json:"exercises"`
}

// VocabEntry is one vocabulary item.
type VocabEntry struct {
	Word         string `json:"word"`
	Translation  string `json:"translation"`
	PartOfSpeech string `json:"partOfSpeech"`
	Example      string `json:"example"`
}

// Exercise is one practice item. ID is assigned during normalization and is
// the key answer tracking uses.
type Exercise struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Options  []string `json:"options,omitempty"`
}

// exerciseNamespace scopes name-based exercise IDs.
var exerciseNamespace = uuid.MustParse("7b0c3f52-5d1e-4c1b-9a57-2f4f8e1d6a90")

// ExerciseID derives a stable identifier from the exercise's position and
// content. The position keeps duplicate questions distinct.
func ExerciseID(index int, kind Kind, question string) string {
	name := fmt.Sprintf("%d\x00%s\x00%s", index, kind, question)
	return uuid.NewSHA1(exerciseNamespace, []byte(name)).String()
}

// JSON renders the content in its canonical wire shape.
func (c Content) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ExerciseByID returns the exercise with the given ID.
func (c Content) ExerciseByID(id string) (Exercise, bool) {
	for _, ex := range c.Exercises {
		if ex.ID == id {
			return ex, true
		}
	}
	return Exercise{}, false
}
