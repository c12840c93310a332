package config

import (
	"sort"
	"strings"
)

// Language is a target language the storyteller can teach.
type Language struct {
	Key     string
	Display string
	Code    string // ISO 639-1, also the narration locale
}

// Level is a proficiency level with its CEFR band.
type Level struct {
	Key         string
	CEFR        string
	Description string
	rank        int
}

var languages = map[string]Language{
	"russian": {Key: "russian", Display: "🇷🇺 Russian", Code: "ru"},
	"urdu":    {Key: "urdu", Display: "🇵🇰 Urdu", Code: "ur"},
	"english": {Key: "english", Display: "🇺🇸 English", Code: "en"},
}

var levels = map[string]Level{
	"beginner":     {Key: "beginner", CEFR: "A1", Description: "Simple vocabulary, basic sentences", rank: 0},
	"intermediate": {Key: "intermediate", CEFR: "A2-B1", Description: "Complex sentences, everyday topics", rank: 1},
	"advanced":     {Key: "advanced", CEFR: "B2-C1", Description: "Advanced grammar, technical topics", rank: 2},
}

// Languages returns the catalog sorted by key.
func Languages() []Language {
	out := make([]Language, 0, len(languages))
	for _, l := range languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// LanguageKeys returns the sorted language keys.
func LanguageKeys() []string {
	var keys []string
	for _, l := range Languages() {
		keys = append(keys, l.Key)
	}
	return keys
}

// LookupLanguage finds a language by key or ISO code, ignoring case.
func LookupLanguage(s string) (Language, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if l, ok := languages[s]; ok {
		return l, true
	}
	for _, l := range languages {
		if l.Code == s {
			return l, true
		}
	}
	return Language{}, false
}

// Levels returns the catalog from easiest to hardest.
func Levels() []Level {
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rank < out[j].rank })
	return out
}

// LevelKeys returns the level keys from easiest to hardest.
func LevelKeys() []string {
	var keys []string
	for _, l := range Levels() {
		keys = append(keys, l.Key)
	}
	return keys
}

// LookupLevel finds a level by key or CEFR band, ignoring case.
func LookupLevel(s string) (Level, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if l, ok := levels[s]; ok {
		return l, true
	}
	for _, l := range levels {
		if strings.ToLower(l.CEFR) == s {
			return l, true
		}
	}
	return Level{}, false
}
