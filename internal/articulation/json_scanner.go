package articulation

import "sort"

// candidate is a balanced {...} span found in raw model output.
type candidate struct {
	start int
	text  string
}

// findJSONCandidates returns every balanced brace span in s, nested spans
// included. Within one scan spans are ordered by their closing brace.
//
// Quotes only open a string while inside an object, so a stray quote in
// surrounding prose cannot swallow the payload. Braces inside
// strings are ignored and backslash escapes are honored.
//
// Iterating bytes is safe for the ASCII delimiters: UTF-8 never uses ASCII
// bytes inside a multi-byte sequence.
func findJSONCandidates(s string) []candidate {
	var candidates []candidate
	seen := make(map[[2]int]bool)
	for from := 0; from < len(s); {
		found, unclosed := scanCandidates(s, from)
		for _, c := range found {
			key := [2]int{c.start, len(c.text)}
			if !seen[key] {
				seen[key] = true
				candidates = append(candidates, c)
			}
		}
		// A stray '{' in prose can leave the string state out of step with
		// the rest of the text. Rescan past it with the state reset.
		if unclosed < 0 {
			break
		}
		from = unclosed + 1
	}
	return candidates
}

// scanCandidates scans s from the given offset. It also returns the offset
// of the outermost '{' left open at the end, or -1.
func scanCandidates(s string, from int) ([]candidate, int) {
	var candidates []candidate
	var stack []int
	var inString, escape bool

	for i := from; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			if len(stack) > 0 {
				inString = true
			}
		case '{':
			stack = append(stack, i)
		case '}':
			if len(stack) == 0 {
				continue
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			candidates = append(candidates, candidate{start: start, text: s[start : i+1]})
		}
	}

	if len(stack) == 0 {
		return candidates, -1
	}
	return candidates, stack[0]
}

// rankCandidates orders spans longest first, breaking ties by leftmost start.
func rankCandidates(c []candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if len(c[i].text) != len(c[j].text) {
			return len(c[i].text) > len(c[j].text)
		}
		return c[i].start < c[j].start
	})
}
