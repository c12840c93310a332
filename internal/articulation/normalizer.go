// Package articulation turns raw completion text into a canonical lesson.
//
// Models rarely return exactly the JSON they were asked for: the payload
// arrives fenced in markdown, wrapped in prose, with aliased keys or with
// small syntax slips. The Normalizer runs a fixed escalation:
//
//	direct         strip wrapping, parse first '{' .. last '}'
//	brace_matched  every balanced span, longest first, raw then repaired
//	fallback       deterministic placeholder lesson
//
// and always yields a lesson with all four sections populated.
package articulation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"polyglot/internal/lesson"
	"polyglot/internal/logging"
)

// Method names the escalation stage that produced a result.
type Method string

const (
	MethodDirect       Method = "direct"
	MethodBraceMatched Method = "brace_matched"
	MethodFallback     Method = "fallback"
)

// maxLoggedRaw caps how much of a raw response goes into the log.
const maxLoggedRaw = 4 << 10

// Result is the outcome of normalizing one response.
type Result struct {
	Content lesson.Content
	Method  Method

	// Repaired is set when the winning candidate only parsed after repair.
	Repaired bool
	// Partial is set when the payload carried only one of the two
	// mandatory text fields and the other was filled with a placeholder.
	Partial bool

	Warnings []string

	// Err explains a fallback result: *ExtractionError or *ShapeError.
	Err error

	RawResponse string
}

// Stats tracks how responses were resolved.
type Stats struct {
	TotalProcessed int
	DirectParses   int
	BraceMatched   int
	Repaired       int
	Partial        int
	Fallbacks      int
}

// Normalizer extracts lessons from raw completion text. It holds no state
// besides statistics and is not safe for concurrent use.
type Normalizer struct {
	// MaxCandidates bounds how many balanced spans brace matching will try.
	MaxCandidates int
	// SchemaDiagnostics adds requested-schema violations to warnings.
	SchemaDiagnostics bool

	stats Stats
}

// NewNormalizer creates a normalizer with default settings.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		MaxCandidates:     512,
		SchemaDiagnostics: true,
	}
}

// Normalize converts raw into a lesson. It never fails: when no usable
// payload is found, the result carries lesson.Fallback(language, topic) and
// Err says why.
func (n *Normalizer) Normalize(raw, language, topic string) *Result {
	n.stats.TotalProcessed++
	res := &Result{RawResponse: raw}

	if obj, ok := n.direct(raw); ok {
		n.stats.DirectParses++
		res.Method = MethodDirect
		return n.finish(res, obj, language, topic)
	}

	obj, examined, ok := n.braceMatched(raw, res)
	if ok {
		n.stats.BraceMatched++
		if res.Repaired {
			n.stats.Repaired++
		}
		res.Method = MethodBraceMatched
		return n.finish(res, obj, language, topic)
	}

	reason := "no balanced JSON object found"
	if examined > 0 {
		reason = "no candidate parsed to an object with storyText or translation"
	}
	return n.fallback(res, &ExtractionError{Reason: reason, Candidates: examined, RawLength: len(raw)}, language, topic)
}

func (n *Normalizer) finish(res *Result, payload *object, language, topic string) *Result {
	if n.SchemaDiagnostics {
		for _, d := range payloadDiagnostics(payload) {
			res.Warnings = append(res.Warnings, "schema: "+d)
		}
	}

	content, notes := coerce(payload)
	res.Warnings = append(res.Warnings, notes...)
	if mandatoryKeys(payload) < 2 {
		res.Partial = true
		n.stats.Partial++
	}

	if err := checkCanonical(content); err != nil {
		return n.fallback(res, err, language, topic)
	}
	res.Content = content

	logging.ArticulationDebug("normalized via %s (repaired=%v partial=%v, %d vocabulary, %d exercises, %d warnings)",
		res.Method, res.Repaired, res.Partial, len(content.Vocabulary), len(content.Exercises), len(res.Warnings))
	return res
}

func (n *Normalizer) fallback(res *Result, cause error, language, topic string) *Result {
	n.stats.Fallbacks++
	res.Method = MethodFallback
	res.Content = lesson.Fallback(language, topic)
	res.Err = cause

	logging.ArticulationWarn("using fallback lesson: %v", cause)
	logging.ArticulationDebug("raw response: %s", truncate(res.RawResponse, maxLoggedRaw))
	return res
}

var (
	fenceLine    = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z0-9_+-]*[ \t]*$")
	leadingLabel = regexp.MustCompile(`(?i)^(?:json|response|output|answer)\s*:\s*`)
)

// stripWrapping removes markdown fences, a leading "JSON:" style label and
// surrounding whitespace or control characters.
func stripWrapping(s string) string {
	s = strings.ReplaceAll(s, "\ufeff", "")
	s = fenceLine.ReplaceAllString(s, "")
	s = strings.TrimFunc(s, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) })
	// Fences on the same line as the payload: ```json {...}```
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = leadingLabel.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.TrimSpace(s)
}

// direct parses the span between the first '{' and the last '}' of the
// unwrapped text. It succeeds only when that span is one JSON object holding
// at least one mandatory key.
func (n *Normalizer) direct(raw string) (*object, bool) {
	s := stripWrapping(raw)
	first := strings.IndexByte(s, '{')
	last := strings.LastIndexByte(s, '}')
	if first < 0 || last <= first {
		return nil, false
	}
	obj, err := parseObject(s[first : last+1])
	if err != nil {
		logging.ArticulationDebug("direct parse failed: %v", err)
		return nil, false
	}
	payload, found := locatePayload(obj)
	if found == 0 {
		return nil, false
	}
	return payload, true
}

// braceMatched tries every balanced span, longest first and leftmost on
// ties. The first span holding both mandatory keys wins; failing that, the
// first holding one. Each span is tried as-is before repair.
func (n *Normalizer) braceMatched(raw string, res *Result) (*object, int, bool) {
	cands := findJSONCandidates(raw)
	rankCandidates(cands)
	if n.MaxCandidates > 0 && len(cands) > n.MaxCandidates {
		cands = cands[:n.MaxCandidates]
	}

	var partial *object
	var partialRepairs []string
	for _, c := range cands {
		obj, repairs, ok := parseCandidate(c.text)
		if !ok {
			continue
		}
		payload, found := locatePayload(obj)
		switch found {
		case 2:
			noteRepairs(res, repairs)
			return payload, len(cands), true
		case 1:
			if partial == nil {
				partial, partialRepairs = payload, repairs
			}
		}
	}
	if partial != nil {
		noteRepairs(res, partialRepairs)
		return partial, len(cands), true
	}
	return nil, len(cands), false
}

func parseCandidate(text string) (*object, []string, bool) {
	if obj, err := parseObject(text); err == nil {
		return obj, nil, true
	}
	fixed, repairs := repairJSON(text)
	if len(repairs) == 0 {
		return nil, nil, false
	}
	obj, err := parseObject(fixed)
	if err != nil {
		return nil, nil, false
	}
	return obj, repairs, true
}

func noteRepairs(res *Result, repairs []string) {
	if len(repairs) == 0 {
		return
	}
	res.Repaired = true
	for _, r := range repairs {
		res.Warnings = append(res.Warnings, "repair: "+r)
	}
}

// GetStats returns the current statistics.
func (n *Normalizer) GetStats() Stats {
	return n.stats
}

// ResetStats clears the statistics.
func (n *Normalizer) ResetStats() {
	n.stats = Stats{}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + fmt.Sprintf("... [%d bytes truncated]", len(s)-cut)
}
