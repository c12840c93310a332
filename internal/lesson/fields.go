package lesson

// Wire names of the payload requested from the model. The prompt builder and
// the response normalizer both read these so that a well-behaved response
// needs no repair.
const (
	FieldStoryText    = "storyText"
	FieldTranslation  = "translation"
	FieldVocabulary   = "vocabulary"
	FieldExercises    = "exercises"
	FieldWord         = "word"
	FieldPartOfSpeech = "partOfSpeech"
	FieldExample      = "example"
	FieldType         = "type"
	FieldQuestion     = "question"
	FieldAnswer       = "answer"
	FieldOptions      = "options"
)
