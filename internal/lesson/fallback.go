package lesson

import "fmt"

// Fallback builds the placeholder lesson shown when the completion service
// fails or its output holds no usable payload. It never fails and every field
// is non-empty for any input.
func Fallback(language, topic string) Content {
	question := "What is this story about?"
	return Content{
		StoryText: fmt.Sprintf("Welcome to your %s lesson about %s. This is a sample story for learning.", language, topic),
		Translation: fmt.Sprintf("This is a sample %s story about %s, shown while generated lesson content is unavailable.",
			language, topic),
		Vocabulary: []VocabEntry{
			{
				Word:         "welcome",
				Translation:  "greeting",
				PartOfSpeech: "interjection",
				Example:      "Welcome to the lesson.",
			},
		},
		Exercises: []Exercise{
			{
				ID:       ExerciseID(0, KindMultipleChoice, question),
				Kind:     KindMultipleChoice,
				Question: question,
				Answer:   "learning",
				Options:  []string{"learning", "working", "playing"},
			},
		},
	}
}
