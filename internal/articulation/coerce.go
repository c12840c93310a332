package articulation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"polyglot/internal/lesson"
)

// keySet holds normalized spellings of one logical field.
type keySet map[string]struct{}

func keys(names ...string) keySet {
	s := make(keySet, len(names))
	for _, n := range names {
		s[normKey(n)] = struct{}{}
	}
	return s
}

// normKey folds case and drops separators so storyText, story_text and
// "Story Text" compare equal.
func normKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}

var (
	storyKeys       = keys(lesson.FieldStoryText, "story", "story_content", "target_text", "рассказ", "история", "کہانی")
	translationKeys = keys(lesson.FieldTranslation, "english_translation", "translated_text", "translation_text", "перевод", "ترجمہ")
	vocabularyKeys  = keys(lesson.FieldVocabulary, "vocab", "words", "word_list", "glossary")
	exercisesKeys   = keys(lesson.FieldExercises, "exercise", "questions", "quiz", "practice")

	wordKeys       = keys(lesson.FieldWord, "term", "lemma", "target_word")
	wordTransKeys  = keys(lesson.FieldTranslation, "meaning", "definition", "english", "gloss")
	posKeys        = keys(lesson.FieldPartOfSpeech, "part_of_speech", "pos", "word_class", "type")
	exampleKeys    = keys(lesson.FieldExample, "example_sentence", "sentence", "usage")
	kindKeys       = keys(lesson.FieldType, "kind", "exercise_type", "question_type", "category")
	questionKeys   = keys(lesson.FieldQuestion, "prompt", "sentence", "statement", "q", "text")
	answerKeys     = keys(lesson.FieldAnswer, "correct_answer", "solution", "correct", "a")
	optionKeys     = keys(lesson.FieldOptions, "choices", "alternatives", "variants")
	idKeys         = keys("id")
	optionTextKeys = keys("text", "label", "value", "option")
)

func lookup(o *object, set keySet) (any, bool) {
	for _, k := range o.keys {
		if _, ok := set[normKey(k)]; ok {
			return o.vals[k], true
		}
	}
	return nil, false
}

// mandatoryKeys counts how many of storyText and translation o carries. An
// object whose only mandatory key is translation must also carry vocabulary
// or exercises, so a lone vocabulary entry does not count.
func mandatoryKeys(o *object) int {
	_, story := lookup(o, storyKeys)
	_, translation := lookup(o, translationKeys)
	switch {
	case story && translation:
		return 2
	case story:
		return 1
	case translation:
		_, vocab := lookup(o, vocabularyKeys)
		_, exercises := lookup(o, exercisesKeys)
		if vocab || exercises {
			return 1
		}
	}
	return 0
}

// maxPayloadDepth bounds the search for a payload wrapped in envelope
// objects such as {"lesson": {...}}.
const maxPayloadDepth = 4

// locatePayload finds the object that carries the lesson fields: o itself,
// or the first nested object (breadth first) holding both mandatory keys,
// else the first holding one. It returns the count of mandatory keys found.
func locatePayload(o *object) (*object, int) {
	if n := mandatoryKeys(o); n > 0 {
		return o, n
	}

	var partial *object
	level := []any{o}
	for depth := 0; depth < maxPayloadDepth && len(level) > 0; depth++ {
		var next []any
		for _, v := range level {
			for _, child := range children(v) {
				if co, ok := child.(*object); ok {
					switch mandatoryKeys(co) {
					case 2:
						return co, 2
					case 1:
						if partial == nil {
							partial = co
						}
					}
				}
				next = append(next, child)
			}
		}
		level = next
	}
	if partial != nil {
		return partial, 1
	}
	return o, 0
}

func children(v any) []any {
	switch t := v.(type) {
	case *object:
		out := make([]any, 0, t.len())
		for _, k := range t.keys {
			out = append(out, t.vals[k])
		}
		return out
	case []any:
		return t
	}
	return nil
}

// notes collects coercion warnings.
type notes []string

func (n *notes) addf(format string, args ...any) {
	*n = append(*n, fmt.Sprintf(format, args...))
}

// scalar renders a JSON scalar as text. Objects, arrays and null are not
// scalars.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// requiredText returns the scalar text of a required field, or Unknown.
func requiredText(o *object, set keySet, field string, n *notes) string {
	v, ok := lookup(o, set)
	if !ok || v == nil {
		return lesson.Unknown
	}
	s, ok := scalar(v)
	if !ok {
		n.addf("%s has unusable %s value, using %q", field, jsonKind(v), lesson.Unknown)
		return lesson.Unknown
	}
	if s == "" {
		return lesson.Unknown
	}
	return s
}

func optionalText(o *object, set keySet) string {
	v, ok := lookup(o, set)
	if !ok {
		return ""
	}
	s, _ := scalar(v)
	return s
}

func jsonKind(v any) string {
	switch v.(type) {
	case *object:
		return "object"
	case []any:
		return "array"
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", v)
}

// coerce maps a located payload onto the canonical lesson shape. It never
// fails: absent or malformed pieces become placeholders.
func coerce(o *object) (lesson.Content, []string) {
	var n notes
	c := lesson.Content{
		StoryText:   mandatoryText(o, storyKeys, lesson.FieldStoryText, lesson.MissingStoryText, &n),
		Translation: mandatoryText(o, translationKeys, lesson.FieldTranslation, lesson.MissingTranslation, &n),
		Vocabulary:  []lesson.VocabEntry{},
		Exercises:   []lesson.Exercise{},
	}

	if v, ok := lookup(o, vocabularyKeys); ok {
		c.Vocabulary = coerceVocabulary(v, &n)
	} else {
		n.addf("%s missing, using empty list", lesson.FieldVocabulary)
	}
	if v, ok := lookup(o, exercisesKeys); ok {
		c.Exercises = coerceExercises(v, &n)
	} else {
		n.addf("%s missing, using empty list", lesson.FieldExercises)
	}
	return c, n
}

func mandatoryText(o *object, set keySet, field, placeholder string, n *notes) string {
	v, ok := lookup(o, set)
	if !ok {
		n.addf("%s missing, using placeholder", field)
		return placeholder
	}
	if s, ok := scalar(v); ok {
		if s == "" {
			n.addf("%s empty, using placeholder", field)
			return placeholder
		}
		return s
	}
	// Stories split into paragraphs or sentences.
	if arr, ok := v.([]any); ok {
		var parts []string
		for _, e := range arr {
			if s, ok := scalar(e); ok && s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			n.addf("%s given as array, joined", field)
			return strings.Join(parts, "\n\n")
		}
	}
	n.addf("%s has unusable %s value, using placeholder", field, jsonKind(v))
	return placeholder
}

func coerceVocabulary(v any, n *notes) []lesson.VocabEntry {
	out := []lesson.VocabEntry{}
	switch t := v.(type) {
	case []any:
		for i, e := range t {
			switch item := e.(type) {
			case *object:
				out = append(out, vocabFromObject(item, "", n))
			case nil:
			default:
				s, ok := scalar(item)
				if !ok || s == "" {
					n.addf("vocabulary[%d] has unusable %s value, skipped", i, jsonKind(item))
					continue
				}
				n.addf("vocabulary[%d] given as plain %s, coerced to entry", i, jsonKind(item))
				out = append(out, wordOnly(s))
			}
		}
	case *object:
		// {"дружба": "friendship", ...} or {"дружба": {...}, ...}
		n.addf("%s given as object, coerced to list", lesson.FieldVocabulary)
		for _, k := range t.keys {
			switch val := t.vals[k].(type) {
			case *object:
				out = append(out, vocabFromObject(val, k, n))
			default:
				e := wordOnly(k)
				if s, ok := scalar(val); ok && s != "" {
					e.Translation = s
				}
				out = append(out, e)
			}
		}
	case string:
		n.addf("%s given as string, split into entries", lesson.FieldVocabulary)
		for _, w := range splitList(t, ",;\n") {
			out = append(out, wordOnly(w))
		}
	case nil:
	default:
		n.addf("%s has unusable %s value, using empty list", lesson.FieldVocabulary, jsonKind(v))
	}
	return out
}

func wordOnly(w string) lesson.VocabEntry {
	return lesson.VocabEntry{Word: w, Translation: lesson.Unknown, PartOfSpeech: lesson.Unknown}
}

func vocabFromObject(o *object, defaultWord string, n *notes) lesson.VocabEntry {
	e := lesson.VocabEntry{
		Word:         requiredText(o, wordKeys, lesson.FieldWord, n),
		Translation:  requiredText(o, wordTransKeys, lesson.FieldTranslation, n),
		PartOfSpeech: requiredText(o, posKeys, lesson.FieldPartOfSpeech, n),
		Example:      optionalText(o, exampleKeys),
	}
	if e.Word == lesson.Unknown && defaultWord != "" {
		e.Word = defaultWord
	}
	return e
}

func coerceExercises(v any, n *notes) []lesson.Exercise {
	var out []lesson.Exercise
	switch t := v.(type) {
	case []any:
		out = exerciseList(t, lesson.KindUnknown, false, lesson.FieldExercises, n)
	case *object:
		if _, ok := lookup(t, questionKeys); ok {
			n.addf("%s given as single object, wrapped in list", lesson.FieldExercises)
			out = append(out, exerciseFromObject(t, lesson.KindUnknown, false, n))
			break
		}
		// Grouped by kind: {"multiple_choice": [...], "true_false": [...]}.
		// The group key is the kind of everything under it.
		n.addf("%s grouped by kind, flattened", lesson.FieldExercises)
		for _, k := range t.keys {
			kind := lesson.ParseKind(k)
			switch group := t.vals[k].(type) {
			case []any:
				out = append(out, exerciseList(group, kind, true, lesson.FieldExercises+"."+k, n)...)
			case *object:
				out = append(out, exerciseFromObject(group, kind, true, n))
			default:
				if s, ok := scalar(group); ok && s != "" {
					out = append(out, questionOnly(s, kind))
				}
			}
		}
	case string:
		n.addf("%s given as string, treated as one question", lesson.FieldExercises)
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, questionOnly(s, lesson.KindUnknown))
		}
	case nil:
	default:
		n.addf("%s has unusable %s value, using empty list", lesson.FieldExercises, jsonKind(v))
	}
	return assignIDs(out)
}

// exerciseList coerces a list of exercises. A list grouped under a kind key
// fixes the kind; a flat list takes the kind from each entry.
func exerciseList(items []any, kind lesson.Kind, fixedKind bool, path string, n *notes) []lesson.Exercise {
	var out []lesson.Exercise
	for i, e := range items {
		switch item := e.(type) {
		case *object:
			out = append(out, exerciseFromObject(item, kind, fixedKind, n))
		case nil:
		default:
			s, ok := scalar(item)
			if !ok || s == "" {
				n.addf("%s[%d] has unusable %s value, skipped", path, i, jsonKind(item))
				continue
			}
			out = append(out, questionOnly(s, kind))
		}
	}
	return out
}

func questionOnly(q string, kind lesson.Kind) lesson.Exercise {
	return withDefaultOptions(lesson.Exercise{Kind: kind, Question: q, Answer: lesson.Unknown})
}

func exerciseFromObject(o *object, kind lesson.Kind, fixedKind bool, n *notes) lesson.Exercise {
	ex := lesson.Exercise{
		Kind:     kind,
		Question: requiredText(o, questionKeys, lesson.FieldQuestion, n),
		Answer:   answerText(o, n),
		Options:  optionList(o, n),
	}
	if v, ok := lookup(o, kindKeys); ok && !fixedKind {
		if s, ok := scalar(v); ok && s != "" {
			ex.Kind = lesson.ParseKind(s)
		}
	}
	if id, ok := lookup(o, idKeys); ok {
		ex.ID, _ = scalar(id)
	}
	return withDefaultOptions(ex)
}

func withDefaultOptions(ex lesson.Exercise) lesson.Exercise {
	if ex.Kind == lesson.KindTrueFalse && len(ex.Options) == 0 {
		ex.Options = []string{"true", "false"}
	}
	return ex
}

func answerText(o *object, n *notes) string {
	v, ok := lookup(o, answerKeys)
	if !ok || v == nil {
		return lesson.Unknown
	}
	if arr, ok := v.([]any); ok {
		var parts []string
		for _, e := range arr {
			if s, ok := scalar(e); ok && s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return lesson.Unknown
		}
		return strings.Join(parts, ", ")
	}
	s, ok := scalar(v)
	if !ok {
		n.addf("%s has unusable %s value, using %q", lesson.FieldAnswer, jsonKind(v), lesson.Unknown)
		return lesson.Unknown
	}
	if s == "" {
		return lesson.Unknown
	}
	return s
}

func optionList(o *object, n *notes) []string {
	v, ok := lookup(o, optionKeys)
	if !ok || v == nil {
		return nil
	}
	var out []string
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s, ok := scalar(e); ok && s != "" {
				out = append(out, s)
				continue
			}
			if eo, ok := e.(*object); ok {
				if s := optionalText(eo, optionTextKeys); s != "" {
					out = append(out, s)
				}
			}
		}
	case *object:
		// {"a": "...", "b": "..."}
		for _, k := range t.keys {
			if s, ok := scalar(t.vals[k]); ok && s != "" {
				out = append(out, s)
			}
		}
	case string:
		out = splitList(t, "|\n")
	default:
		n.addf("%s has unusable %s value, ignored", lesson.FieldOptions, jsonKind(v))
	}
	return out
}

func splitList(s, seps string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(seps, r) }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// assignIDs keeps model-supplied IDs that are unique and derives the rest.
func assignIDs(exs []lesson.Exercise) []lesson.Exercise {
	out := make([]lesson.Exercise, 0, len(exs))
	seen := make(map[string]bool, len(exs))
	for i, ex := range exs {
		if ex.ID == "" || seen[ex.ID] {
			ex.ID = lesson.ExerciseID(i, ex.Kind, ex.Question)
		}
		seen[ex.ID] = true
		out = append(out, ex)
	}
	return out
}
