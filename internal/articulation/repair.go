package articulation

import (
	"regexp"
	"strings"
)

// Names reported in warnings when a repair changed the candidate.
const (
	repairBareValues     = "quoted bare enum values"
	repairMissingCommas  = "inserted missing commas"
	repairTrailingCommas = "removed trailing commas"
)

// bareValuePattern matches unquoted word values of the enum-like fields
// models most often leave bare, e.g. "partOfSpeech": noun.
var bareValuePattern = regexp.MustCompile(
	`("(?:partOfSpeech|part_of_speech|pos|type|kind|exercise_type)"\s*:\s*)([A-Za-z][A-Za-z_\-/ ]*)(\s*[,}\]\n])`)

// repairJSON applies the fixed set of textual repairs to a candidate and
// reports which of them changed anything.
func repairJSON(s string) (string, []string) {
	var applied []string
	steps := []struct {
		name string
		fn   func(string) string
	}{
		{repairBareValues, quoteBareValues},
		{repairMissingCommas, insertMissingCommas},
		{repairTrailingCommas, removeTrailingCommas},
	}
	for _, step := range steps {
		out := step.fn(s)
		if out != s {
			applied = append(applied, step.name)
			s = out
		}
	}
	return s, applied
}

func quoteBareValues(s string) string {
	return bareValuePattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := bareValuePattern.FindStringSubmatch(m)
		val := strings.TrimSpace(sub[2])
		switch val {
		case "true", "false", "null":
			return m
		}
		trail := sub[2][len(strings.TrimRight(sub[2], " ")):]
		return sub[1] + `"` + val + `"` + trail + sub[3]
	})
}

// insertMissingCommas adds a comma where a value ends and the next string,
// object or array begins with only whitespace between them.
func insertMissingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	var inString, escape bool
	var prev byte // last significant byte outside strings

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			b.WriteByte(c)
			continue
		}
		if inString {
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
				prev = '"'
			}
			b.WriteByte(c)
			continue
		}

		switch c {
		case ' ', '\t', '\r', '\n':
			b.WriteByte(c)
			continue
		case '"', '{', '[':
			if endsValue(prev) {
				b.WriteByte(',')
			}
			if c == '"' {
				inString = true
			}
		}
		b.WriteByte(c)
		prev = c
	}
	return b.String()
}

func endsValue(c byte) bool {
	switch {
	case c == '"', c == '}', c == ']':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == 'e', c == 'l': // true, false, null
		return true
	}
	return false
}

// removeTrailingCommas drops commas directly followed by a closing bracket.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var inString, escape bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			b.WriteByte(c)
			continue
		}
		if inString {
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && strings.IndexByte(" \t\r\n", s[j]) >= 0 {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
