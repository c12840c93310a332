// Package prompt builds the instruction sent to the completion service.
package prompt

import (
	"fmt"
	"strings"

	"polyglot/internal/config"
	"polyglot/internal/lesson"
)

// Request is what a lesson prompt is built from.
type Request struct {
	Language string
	Level    string
	Topic    string
}

// Build returns the lesson prompt for a language, level and topic. It is a
// pure function: the same inputs always give the same prompt.
func Build(language, level, topic string) string {
	return BuildRequest(Request{Language: language, Level: level, Topic: topic})
}

// BuildRequest is Build for a Request value.
func BuildRequest(r Request) string {
	langName := strings.TrimSpace(r.Language)
	if l, ok := config.LookupLanguage(r.Language); ok {
		langName = displayName(l)
	}
	levelLine := strings.TrimSpace(r.Level)
	if lvl, ok := config.LookupLevel(r.Level); ok {
		levelLine = fmt.Sprintf("%s (CEFR %s: %s)", lvl.Key, lvl.CEFR, strings.ToLower(lvl.Description))
	}
	topic := strings.TrimSpace(r.Topic)

	var b strings.Builder
	fmt.Fprintf(&b, "Create an engaging short story in %s for %s language learners about %s.\n", langName, levelLine, topic)
	b.WriteString("Match vocabulary and grammar to the learner's level.\n\n")

	b.WriteString("Respond with a single JSON object and nothing else: no prose before or after it, no markdown, no code fences.\n")
	b.WriteString("Use exactly these keys:\n")
	fmt.Fprintf(&b, "- %q: the story in %s\n", lesson.FieldStoryText, langName)
	fmt.Fprintf(&b, "- %q: an English translation of the story\n", lesson.FieldTranslation)
	fmt.Fprintf(&b, "- %q: an array of objects with keys %q, %q, %q (noun, verb, adjective, ...) and %q (a short sentence in %s)\n",
		lesson.FieldVocabulary, lesson.FieldWord, lesson.FieldTranslation, lesson.FieldPartOfSpeech, lesson.FieldExample, langName)
	fmt.Fprintf(&b, "- %q: an array of objects with keys %q (one of %s), %q, %q (a string) and %q (an array of strings; required for multiple_choice and true_false)\n\n",
		lesson.FieldExercises, lesson.FieldType, kindList(), lesson.FieldQuestion, lesson.FieldAnswer, lesson.FieldOptions)

	b.WriteString("Example shape:\n")
	b.WriteString(exampleShape)
	b.WriteString("\nAll strings must be valid JSON strings. Do not add trailing commas.")
	return b.String()
}

func displayName(l config.Language) string {
	// Drop the flag from "🇷🇺 Russian".
	if i := strings.LastIndexByte(l.Display, ' '); i >= 0 {
		return l.Display[i+1:]
	}
	return l.Display
}

func kindList() string {
	kinds := []lesson.Kind{
		lesson.KindMultipleChoice, lesson.KindFillBlank, lesson.KindTrueFalse, lesson.KindQnA, lesson.KindMatching,
	}
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

var exampleShape = fmt.Sprintf(`{"%s": "...", "%s": "...", "%s": [{"%s": "...", "%s": "...", "%s": "noun", "%s": "..."}], "%s": [{"%s": "multiple_choice", "%s": "...", "%s": "...", "%s": ["...", "..."]}]}`,
	lesson.FieldStoryText, lesson.FieldTranslation,
	lesson.FieldVocabulary, lesson.FieldWord, lesson.FieldTranslation, lesson.FieldPartOfSpeech, lesson.FieldExample,
	lesson.FieldExercises, lesson.FieldType, lesson.FieldQuestion, lesson.FieldAnswer, lesson.FieldOptions)
