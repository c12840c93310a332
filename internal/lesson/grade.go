package lesson

import (
	"strconv"
	"strings"
	"unicode"
)

// Verdict is the outcome of checking a learner's answer.
type Verdict int

const (
	Incorrect Verdict = iota
	Correct
	// Ungraded means the exercise carries no reference answer.
	Ungraded
)

func (v Verdict) String() string {
	switch v {
	case Correct:
		return "correct"
	case Ungraded:
		return "ungraded"
	default:
		return "incorrect"
	}
}

// Check compares a learner's answer with the exercise's reference answer.
// Comparison ignores case, surrounding whitespace and trailing punctuation.
// For exercises with options, the 1-based option number or option letter is
// accepted in place of the option text.
func Check(ex Exercise, given string) Verdict {
	if ex.Answer == "" || ex.Answer == Unknown {
		return Ungraded
	}
	want := canonicalAnswer(ex.Answer)
	got := canonicalAnswer(given)
	if got == "" {
		return Incorrect
	}
	if got == want {
		return Correct
	}
	if opt, ok := pickOption(ex.Options, got); ok && canonicalAnswer(opt) == want {
		return Correct
	}
	if ex.Kind == KindTrueFalse {
		if b, ok := parseTruth(got); ok {
			if w, ok := parseTruth(want); ok && b == w {
				return Correct
			}
		}
	}
	return Incorrect
}

func canonicalAnswer(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != ')' && r != ']'
	})
	return strings.Join(strings.Fields(s), " ")
}

// pickOption resolves "2", "b", "b)" or "(b)" to an option.
func pickOption(options []string, s string) (string, bool) {
	if len(options) == 0 {
		return "", false
	}
	s = strings.Trim(s, "()[]. ")
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return "", false
	}
	if len(s) == 1 && s[0] >= 'a' && s[0] <= 'z' {
		idx := int(s[0] - 'a')
		if idx < len(options) {
			return options[idx], true
		}
	}
	return "", false
}

func parseTruth(s string) (bool, bool) {
	switch s {
	case "true", "t", "yes", "y", "correct":
		return true, true
	case "false", "f", "no", "n", "incorrect":
		return false, true
	}
	return false, false
}
