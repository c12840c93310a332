package articulation

import (
	"strings"
	"testing"
)

func spans(c []candidate) []string {
	var out []string
	for _, x := range c {
		out = append(out, x.text)
	}
	return out
}

func TestFindJSONCandidates(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple",
			input: `prefix {"key": "value"} suffix`,
			want:  []string{`{"key": "value"}`},
		},
		{
			name:  "nested reports inner first",
			input: `start {"a": {"b": "c"}} end`,
			want:  []string{`{"b": "c"}`, `{"a": {"b": "c"}}`},
		},
		{
			name:  "multiple",
			input: `obj1 {"id": 1} obj2 {"id": 2}`,
			want:  []string{`{"id": 1}`, `{"id": 2}`},
		},
		{
			name:  "string_with_braces",
			input: `{"key": "value with } inside"}`,
			want:  []string{`{"key": "value with } inside"}`},
		},
		{
			name:  "escaped_quote",
			input: `{"key": "value with \" inside"}`,
			want:  []string{`{"key": "value with \" inside"}`},
		},
		{
			name:  "incomplete",
			input: `prefix { incomplete`,
			want:  nil,
		},
		{
			name:  "malformed_braces",
			input: `} { valid } {`,
			want:  []string{`{ valid }`},
		},
		{
			name:  "escaped_backslash",
			input: `{"key": "value with \\ inside"}`,
			want:  []string{`{"key": "value with \\ inside"}`},
		},
		{
			name:  "stray quote in prose",
			input: `He said "here it is: {"a": 1}`,
			want:  []string{`{"a": 1}`},
		},
		{
			name:  "stray brace and odd quote in prose",
			input: `Note: { he said "hi. {"a": 1}`,
			want:  []string{`{"a": 1}`},
		},
		{
			name:  "empty_object",
			input: `{}`,
			want:  []string{`{}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := spans(findJSONCandidates(tt.input))
			if len(got) != len(tt.want) {
				t.Fatalf("findJSONCandidates() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("candidate %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFindJSONCandidatesOffsets(t *testing.T) {
	in := `xx {"a": 1} yy {"b": 2}`
	got := findJSONCandidates(in)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	for _, c := range got {
		if !strings.HasPrefix(in[c.start:], c.text) {
			t.Errorf("offset %d does not point at %q", c.start, c.text)
		}
	}
}

func TestRankCandidates(t *testing.T) {
	c := []candidate{
		{start: 10, text: `{"b":2}`},
		{start: 0, text: `{"a":1}`},
		{start: 20, text: `{"long":true}`},
	}
	rankCandidates(c)
	want := []string{`{"long":true}`, `{"a":1}`, `{"b":2}`}
	got := spans(c)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rankCandidates() = %q, want %q", got, want)
		}
	}
}

func BenchmarkFindJSONCandidates(b *testing.B) {
	body := `{"storyText": "` + strings.Repeat("слово ", 2000) + `", "translation": "x"}`
	input := strings.Repeat("prose ", 500) + body + strings.Repeat(" tail", 500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		findJSONCandidates(input)
	}
}
