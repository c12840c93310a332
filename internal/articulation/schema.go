package articulation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"polyglot/internal/lesson"
)

// RequestedLessonSchema describes the payload the prompt asks for. Responses
// are checked against it only to produce diagnostics; a response that fails
// it is still normalized.
const RequestedLessonSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["storyText", "translation", "vocabulary", "exercises"],
  "properties": {
    "storyText": {"type": "string", "minLength": 1},
    "translation": {"type": "string", "minLength": 1},
    "vocabulary": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["word", "translation", "partOfSpeech"],
        "properties": {
          "word": {"type": "string"},
          "translation": {"type": "string"},
          "partOfSpeech": {"type": "string"},
          "example": {"type": "string"}
        }
      }
    },
    "exercises": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "answer"],
        "properties": {
          "type": {"type": "string"},
          "question": {"type": "string"},
          "answer": {"type": "string"},
          "options": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

// CanonicalLessonSchema is the shape every normalized lesson satisfies.
const CanonicalLessonSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["storyText", "translation", "vocabulary", "exercises"],
  "additionalProperties": false,
  "properties": {
    "storyText": {"type": "string", "minLength": 1},
    "translation": {"type": "string", "minLength": 1},
    "vocabulary": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["word", "translation", "partOfSpeech", "example"],
        "additionalProperties": false,
        "properties": {
          "word": {"type": "string", "minLength": 1},
          "translation": {"type": "string", "minLength": 1},
          "partOfSpeech": {"type": "string", "minLength": 1},
          "example": {"type": "string"}
        }
      }
    },
    "exercises": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "kind", "question", "answer"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "kind": {"type": "string", "minLength": 1},
          "question": {"type": "string", "minLength": 1},
          "answer": {"type": "string", "minLength": 1},
          "options": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var (
	requestedSchema = mustSchema(RequestedLessonSchema)
	canonicalSchema = mustSchema(CanonicalLessonSchema)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("articulation: invalid built-in schema: %v", err))
	}
	return s
}

// payloadDiagnostics lists how a decoded payload departs from the requested
// shape.
func payloadDiagnostics(payload *object) []string {
	res, err := requestedSchema.Validate(gojsonschema.NewGoLoader(plain(payload)))
	if err != nil {
		return []string{"schema check failed: " + err.Error()}
	}
	return resultMessages(res)
}

// checkCanonical validates normalized content. A non-nil error is always a
// *ShapeError.
func checkCanonical(c lesson.Content) error {
	b, err := json.Marshal(c)
	if err != nil {
		return &ShapeError{Problems: []string{err.Error()}}
	}
	res, err := canonicalSchema.Validate(gojsonschema.NewBytesLoader(b))
	if err != nil {
		return &ShapeError{Problems: []string{err.Error()}}
	}
	if problems := resultMessages(res); len(problems) > 0 {
		return &ShapeError{Problems: problems}
	}
	return nil
}

func resultMessages(res *gojsonschema.Result) []string {
	if res.Valid() {
		return nil
	}
	var out []string
	for _, e := range res.Errors() {
		out = append(out, e.String())
	}
	return out
}
