package articulation

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"polyglot/internal/lesson"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sampleLesson() lesson.Content {
	q1 := "Кто друзья?"
	q2 := "Иван живёт в Москве."
	return lesson.Content{
		StoryText:   "Иван и Пётр друзья. Они живут в Москве.",
		Translation: "Ivan and Petr are friends. They live in Moscow.",
		Vocabulary: []lesson.VocabEntry{
			{Word: "друг", Translation: "friend", PartOfSpeech: "noun", Example: "Он мой друг."},
			{Word: "жить", Translation: "to live", PartOfSpeech: "verb"},
		},
		Exercises: []lesson.Exercise{
			{ID: lesson.ExerciseID(0, lesson.KindQnA, q1), Kind: lesson.KindQnA, Question: q1, Answer: "Иван и Пётр"},
			{ID: lesson.ExerciseID(1, lesson.KindTrueFalse, q2), Kind: lesson.KindTrueFalse, Question: q2, Answer: "true",
				Options: []string{"true", "false"}},
		},
	}
}

func TestNormalizeCanonicalRoundTrip(t *testing.T) {
	for name, c := range map[string]lesson.Content{
		"sample":   sampleLesson(),
		"fallback": lesson.Fallback("urdu", "food"),
	} {
		t.Run(name, func(t *testing.T) {
			raw, err := c.JSON()
			require.NoError(t, err)

			res := NewNormalizer().Normalize(string(raw), "russian", "friendship")
			assert.Equal(t, MethodDirect, res.Method)
			assert.NoError(t, res.Err)
			if diff := cmp.Diff(c, res.Content); diff != "" {
				t.Errorf("round trip changed content (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	messy := "Sure!\n{\"story\": \"  Кот спит.  \", \"english_translation\": \"The cat sleeps.\",\n" +
		"\"vocab\": [\"кот\", {\"term\": \"спать\", \"meaning\": \"to sleep\", \"pos\": verb}],\n" +
		"\"questions\": {\"true_false\": [{\"statement\": \"Кот спит.\", \"correct\": true}]},}\nEnjoy!"

	n := NewNormalizer()
	first := n.Normalize(messy, "russian", "animals")
	require.NotEqual(t, MethodFallback, first.Method, "warnings: %v", first.Warnings)

	raw, err := first.Content.JSON()
	require.NoError(t, err)
	second := n.Normalize(string(raw), "russian", "animals")

	assert.Equal(t, MethodDirect, second.Method)
	if diff := cmp.Diff(first.Content, second.Content); diff != "" {
		t.Errorf("second pass changed content (-first +second):\n%s", diff)
	}
}

func TestNormalizeFencedResponse(t *testing.T) {
	raw := "Here is your lesson:\n```json\n" + `{
  "storyText": "Иван и Пётр друзья.",
  "translation": "Ivan and Petr are friends.",
  "vocabulary": [{"word": "друг", "translation": "friend", "example": "Он мой друг."}],
  "exercises": [{"type": "Q&A", "question": "Кто друзья?", "answer": "Иван и Пётр"}]
}` + "\n```\nGood luck!"

	res := NewNormalizer().Normalize(raw, "russian", "friendship")

	require.Equal(t, MethodDirect, res.Method)
	assert.Equal(t, "Иван и Пётр друзья.", res.Content.StoryText)
	assert.Equal(t, "Ivan and Petr are friends.", res.Content.Translation)

	require.Len(t, res.Content.Vocabulary, 1)
	assert.Equal(t, lesson.VocabEntry{
		Word: "друг", Translation: "friend", PartOfSpeech: lesson.Unknown, Example: "Он мой друг.",
	}, res.Content.Vocabulary[0])

	require.Len(t, res.Content.Exercises, 1)
	ex := res.Content.Exercises[0]
	assert.Equal(t, lesson.KindQnA, ex.Kind)
	assert.Equal(t, "Иван и Пётр", ex.Answer)
	assert.Equal(t, lesson.ExerciseID(0, lesson.KindQnA, "Кто друзья?"), ex.ID)

	assert.NotEmpty(t, res.Warnings, "missing partOfSpeech should be diagnosed")
}

func TestNormalizeMandatoryKeysBeatLength(t *testing.T) {
	long := `{"note": "` + strings.Repeat("this object is long but carries no lesson ", 10) + `"}`
	short := `{"storyText": "Короткий рассказ.", "translation": "A short story."}`
	raw := "Metadata: " + long + "\nLesson: " + short

	res := NewNormalizer().Normalize(raw, "russian", "travel")

	require.Equal(t, MethodBraceMatched, res.Method)
	assert.Equal(t, "Короткий рассказ.", res.Content.StoryText)
	assert.False(t, res.Partial)
}

func TestNormalizeBothKeysBeatLongerStoryOnlyBlock(t *testing.T) {
	storyOnly := `{"storyText": "` + strings.Repeat("Очень длинный рассказ без перевода. ", 8) + `"}`
	both := `{"storyText": "s", "translation": "t"}`
	require.Greater(t, len(storyOnly), len(both))

	res := NewNormalizer().Normalize("Draft: "+storyOnly+"\nFinal: "+both, "russian", "travel")

	require.Equal(t, MethodBraceMatched, res.Method)
	assert.Equal(t, "s", res.Content.StoryText)
	assert.Equal(t, "t", res.Content.Translation)
	assert.False(t, res.Partial)
}

func TestNormalizeDuplicatedBlockMatchesSingleBlock(t *testing.T) {
	block := `{"storyText": "Кот спит.", "translation": "The cat sleeps.", "vocabulary": [{"word": "кот", "translation": "cat", "partOfSpeech": "noun"}], "exercises": [{"type": "qna", "question": "Кто спит?", "answer": "кот"}]}`
	n := NewNormalizer()

	single := n.Normalize(block, "russian", "animals")
	require.Equal(t, MethodDirect, single.Method)

	twice := n.Normalize("Here it is:\n"+block+"\nAgain:\n"+block, "russian", "animals")
	require.Equal(t, MethodBraceMatched, twice.Method)
	if diff := cmp.Diff(single.Content, twice.Content); diff != "" {
		t.Errorf("duplicated block differs from single block (-single +twice):\n%s", diff)
	}
}

func TestNormalizeStrayBraceAndQuoteInProse(t *testing.T) {
	raw := `Note: { he said "hi. {"storyText":"a","translation":"b"}`

	res := NewNormalizer().Normalize(raw, "english", "prose")

	require.Equal(t, MethodBraceMatched, res.Method, "warnings: %v", res.Warnings)
	assert.Equal(t, "a", res.Content.StoryText)
	assert.Equal(t, "b", res.Content.Translation)
}

func TestNormalizeEqualLengthPrefersLeftmost(t *testing.T) {
	a := `{"storyText": "A", "translation": "x"}`
	b := `{"storyText": "B", "translation": "x"}`
	res := NewNormalizer().Normalize("first "+a+" then "+b, "english", "letters")

	require.Equal(t, MethodBraceMatched, res.Method)
	assert.Equal(t, "A", res.Content.StoryText)
}

func TestNormalizeTrailingCommaRepair(t *testing.T) {
	raw := `Lesson follows. {"storyText": "s", "translation": "t", "vocabulary": [{"word": "w", "translation": "x", "partOfSpeech": "noun",},], "exercises": [],}`

	res := NewNormalizer().Normalize(raw, "english", "repair")

	require.Equal(t, MethodBraceMatched, res.Method, "err: %v", res.Err)
	assert.True(t, res.Repaired)
	assert.Contains(t, res.Warnings, "repair: "+repairTrailingCommas)
	require.Len(t, res.Content.Vocabulary, 1)
	assert.Equal(t, "noun", res.Content.Vocabulary[0].PartOfSpeech)
}

func TestNormalizeTrailingCommaInVocabularyEntry(t *testing.T) {
	raw := `{"storyText":"a","translation":"b","vocabulary":[{"word":"x",}],"exercises":[]}`

	res := NewNormalizer().Normalize(raw, "english", "repair")

	require.NotEqual(t, MethodFallback, res.Method, "err: %v", res.Err)
	assert.True(t, res.Repaired)
	require.Len(t, res.Content.Vocabulary, 1)
	assert.Equal(t, "x", res.Content.Vocabulary[0].Word)
	assert.Empty(t, res.Content.Exercises)
}

func TestNormalizeMissingCommaAndBareValue(t *testing.T) {
	raw := `{"storyText": "s", "translation": "t"
"vocabulary": [{"word": "a", "translation": "b", "partOfSpeech": noun}]
"exercises": []}`

	res := NewNormalizer().Normalize(raw, "english", "repair")

	require.Equal(t, MethodBraceMatched, res.Method, "err: %v", res.Err)
	assert.True(t, res.Repaired)
	require.Len(t, res.Content.Vocabulary, 1)
	assert.Equal(t, "noun", res.Content.Vocabulary[0].PartOfSpeech)
}

func TestNormalizeVocabularyStrings(t *testing.T) {
	raw := `{"storyText": "s", "translation": "t", "vocabulary": ["дом", "кот"], "exercises": []}`

	res := NewNormalizer().Normalize(raw, "russian", "home")

	want := []lesson.VocabEntry{
		{Word: "дом", Translation: lesson.Unknown, PartOfSpeech: lesson.Unknown},
		{Word: "кот", Translation: lesson.Unknown, PartOfSpeech: lesson.Unknown},
	}
	assert.Equal(t, want, res.Content.Vocabulary)
}

func TestNormalizeVocabularyObjectMap(t *testing.T) {
	raw := `{"storyText": "s", "translation": "t", "vocabulary": {"дом": "house", "кот": {"translation": "cat", "pos": "noun"}}}`

	res := NewNormalizer().Normalize(raw, "russian", "home")

	want := []lesson.VocabEntry{
		{Word: "дом", Translation: "house", PartOfSpeech: lesson.Unknown},
		{Word: "кот", Translation: "cat", PartOfSpeech: "noun"},
	}
	assert.Equal(t, want, res.Content.Vocabulary)
	assert.Empty(t, res.Content.Exercises)
	assert.NotNil(t, res.Content.Exercises)
}

func TestNormalizeGroupedStringEntries(t *testing.T) {
	raw := `{"storyText": "s", "translation": "t", "exercises": {"fill_blank": ["What is X?"]}}`

	res := NewNormalizer().Normalize(raw, "english", "letters")

	require.Len(t, res.Content.Exercises, 1)
	ex := res.Content.Exercises[0]
	assert.Equal(t, lesson.KindFillBlank, ex.Kind)
	assert.Equal(t, "What is X?", ex.Question)
	assert.Equal(t, lesson.Unknown, ex.Answer)
}

func TestNormalizeGroupKeyOverridesNestedKind(t *testing.T) {
	raw := `{"storyText":"a","translation":"b","exercises":{"multiple_choice":[{"type":"qna","question":"Q","answer":"A"}]}}`

	res := NewNormalizer().Normalize(raw, "english", "letters")

	require.Len(t, res.Content.Exercises, 1)
	assert.Equal(t, lesson.KindMultipleChoice, res.Content.Exercises[0].Kind)

	flat := NewNormalizer().Normalize(`{"storyText":"a","translation":"b","exercises":[{"type":"qna","question":"Q","answer":"A"}]}`, "english", "letters")
	require.Len(t, flat.Content.Exercises, 1)
	assert.Equal(t, lesson.KindQnA, flat.Content.Exercises[0].Kind)
}

func TestNormalizeExercisesGroupedByKind(t *testing.T) {
	raw := `{"storyText": "s", "translation": "t", "vocabulary": [], "exercises": {
  "multiple_choice": [{"question": "q1", "answer": "a", "options": ["a", "b"]}],
  "true_false": [{"question": "q2", "answer": true}],
  "fill in the blank": {"sentence": "Я ___ дома.", "answer": "сижу"}
}}`

	res := NewNormalizer().Normalize(raw, "russian", "home")

	require.Len(t, res.Content.Exercises, 3)
	mc, tf, fb := res.Content.Exercises[0], res.Content.Exercises[1], res.Content.Exercises[2]

	assert.Equal(t, lesson.KindMultipleChoice, mc.Kind)
	assert.Equal(t, []string{"a", "b"}, mc.Options)

	assert.Equal(t, lesson.KindTrueFalse, tf.Kind)
	assert.Equal(t, "true", tf.Answer)
	assert.Equal(t, []string{"true", "false"}, tf.Options)

	assert.Equal(t, lesson.KindFillBlank, fb.Kind)
	assert.Equal(t, "Я ___ дома.", fb.Question)

	ids := map[string]bool{}
	for _, ex := range res.Content.Exercises {
		assert.NotEmpty(t, ex.ID)
		ids[ex.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestNormalizeDuplicateExerciseIDs(t *testing.T) {
	raw := `{"storyText": "s", "translation": "t", "exercises": [
  {"id": "1", "question": "a", "answer": "x"},
  {"id": "1", "question": "b", "answer": "y"}
]}`

	res := NewNormalizer().Normalize(raw, "english", "ids")

	require.Len(t, res.Content.Exercises, 2)
	assert.Equal(t, "1", res.Content.Exercises[0].ID)
	assert.NotEqual(t, "1", res.Content.Exercises[1].ID)
}

func TestNormalizeNoJSON(t *testing.T) {
	for _, raw := range []string{
		"",
		"I'm sorry, I can't write that lesson right now.",
		"{ unbalanced",
		`{"word": "друг", "translation": "friend"}`,
		`{"foo": "bar"}`,
	} {
		t.Run(raw, func(t *testing.T) {
			res := NewNormalizer().Normalize(raw, "russian", "friendship")

			assert.Equal(t, MethodFallback, res.Method)
			assert.Equal(t, lesson.Fallback("russian", "friendship"), res.Content)

			var extractErr *ExtractionError
			require.True(t, errors.As(res.Err, &extractErr), "err = %v", res.Err)
			assert.Equal(t, len(raw), extractErr.RawLength)
		})
	}
}

func TestNormalizePartialPayload(t *testing.T) {
	res := NewNormalizer().Normalize(`{"storyText": "Only a story."}`, "english", "partial")

	assert.Equal(t, MethodDirect, res.Method)
	assert.True(t, res.Partial)
	assert.Equal(t, "Only a story.", res.Content.StoryText)
	assert.Equal(t, lesson.MissingTranslation, res.Content.Translation)
}

func TestNormalizeNestedEnvelope(t *testing.T) {
	raw := `{"status": "ok", "lesson": {"story_text": "s", "Translation": "t", "words": []}}`

	res := NewNormalizer().Normalize(raw, "english", "nested")

	assert.Equal(t, MethodDirect, res.Method)
	assert.Equal(t, "s", res.Content.StoryText)
	assert.Equal(t, "t", res.Content.Translation)
}

func TestNormalizeStoryParagraphs(t *testing.T) {
	res := NewNormalizer().Normalize(`{"storyText": ["One.", "Two."], "translation": "t"}`, "english", "p")
	assert.Equal(t, "One.\n\nTwo.", res.Content.StoryText)
}

func TestNormalizerStats(t *testing.T) {
	n := NewNormalizer()
	n.Normalize(`{"storyText": "s", "translation": "t"}`, "english", "a")
	n.Normalize(`x {"storyText": "s", "translation": "t",} y`, "english", "b")
	n.Normalize(`nothing here`, "english", "c")

	got := n.GetStats()
	assert.Equal(t, Stats{TotalProcessed: 3, DirectParses: 1, BraceMatched: 1, Repaired: 1, Fallbacks: 1}, got)

	n.ResetStats()
	assert.Equal(t, Stats{}, n.GetStats())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	s := strings.Repeat("ж", 10) // 2 bytes per rune
	got := truncate(s, 5)
	assert.True(t, strings.HasPrefix(got, "жж"))
	assert.Contains(t, got, "[16 bytes truncated]")
}

func TestNormalizeInlineFence(t *testing.T) {
	raw := "```json {\"storyText\":\"...\", \"translation\":\"...\", " +
		"\"vocabulary\":[{\"word\":\"друг\",\"translation\":\"friend\"}], " +
		"\"exercises\":[{\"type\":\"qna\",\"question\":\"Who?\",\"answer\":\"friend\"}]} ```"

	res := NewNormalizer().Normalize(raw, "russian", "friendship")

	require.Equal(t, MethodDirect, res.Method)
	require.Len(t, res.Content.Vocabulary, 1)
	assert.Equal(t, lesson.Unknown, res.Content.Vocabulary[0].PartOfSpeech)
	require.Len(t, res.Content.Exercises, 1)
	assert.Equal(t, lesson.KindQnA, res.Content.Exercises[0].Kind)
}
