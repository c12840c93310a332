package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"polyglot/internal/lesson"
)

func TestBuildDeterministic(t *testing.T) {
	assert.Equal(t, Build("russian", "beginner", "friendship"), Build("russian", "beginner", "friendship"))
}

func TestBuildNamesNormalizerKeys(t *testing.T) {
	p := Build("russian", "beginner", "friendship")

	for _, key := range []string{
		lesson.FieldStoryText, lesson.FieldTranslation, lesson.FieldVocabulary, lesson.FieldExercises,
		lesson.FieldWord, lesson.FieldPartOfSpeech, lesson.FieldExample,
		lesson.FieldType, lesson.FieldQuestion, lesson.FieldAnswer, lesson.FieldOptions,
	} {
		assert.Contains(t, p, `"`+key+`"`)
	}
	assert.Contains(t, p, "JSON")
	assert.Contains(t, p, "no code fences")
}

func TestBuildUsesCatalog(t *testing.T) {
	p := Build("russian", "intermediate", "travel")

	assert.Contains(t, p, "in Russian")
	assert.Contains(t, p, "CEFR A2-B1")
	assert.Contains(t, p, "about travel")
	assert.NotContains(t, p, "🇷🇺")
}

func TestBuildUnknownValuesPassThrough(t *testing.T) {
	p := Build("Klingon", "expert", "  space  ")

	assert.True(t, strings.Contains(p, "in Klingon"))
	assert.Contains(t, p, "for expert language learners")
	assert.Contains(t, p, "about space.")
}
