package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"polyglot/internal/lesson"
	"polyglot/internal/logging"
)

// LessonView is what the lesson screen shows.
type LessonView struct {
	Language        string // display name
	Level           string
	Topic           string
	CreatedAt       time.Time // zero = not saved yet
	Content         lesson.Content
	ShowTranslation bool
	ShowAnswers     bool // list exercises with their answers (history view)
	Note            string
}

// Markdown renders the lesson as markdown.
func (v LessonView) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s story: %s\n\n", v.Language, v.Topic)
	meta := []string{"Level: " + v.Level}
	if !v.CreatedAt.IsZero() {
		meta = append(meta, "Saved: "+v.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "*%s*\n\n", strings.Join(meta, " · "))
	if v.Note != "" {
		fmt.Fprintf(&b, "> %s\n\n", v.Note)
	}

	b.WriteString("## Story\n\n")
	b.WriteString(paragraphs(v.Content.StoryText))

	if v.ShowTranslation {
		b.WriteString("## Translation\n\n")
		b.WriteString(paragraphs(v.Content.Translation))
	}

	if len(v.Content.Vocabulary) > 0 {
		b.WriteString("## Vocabulary\n\n")
		b.WriteString("| Word | Translation | Part of speech | Example |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, e := range v.Content.Vocabulary {
			fmt.Fprintf(&b, "| **%s** | %s | %s | %s |\n",
				cell(e.Word), cell(e.Translation), cell(e.PartOfSpeech), cell(e.Example))
		}
		b.WriteString("\n")
	}

	if v.ShowAnswers && len(v.Content.Exercises) > 0 {
		b.WriteString("## Exercises\n\n")
		for i, ex := range v.Content.Exercises {
			fmt.Fprintf(&b, "%d. *(%s)* %s\n", i+1, KindLabel(ex.Kind), ex.Question)
			for j, opt := range ex.Options {
				fmt.Fprintf(&b, "   - %c) %s\n", 'a'+j, opt)
			}
			fmt.Fprintf(&b, "   - **Answer:** %s\n", ex.Answer)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func paragraphs(s string) string {
	var b strings.Builder
	for _, p := range strings.Split(s, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteString(p)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// KindLabel is the human name of an exercise kind.
func KindLabel(k lesson.Kind) string {
	switch k {
	case lesson.KindMultipleChoice:
		return "multiple choice"
	case lesson.KindFillBlank:
		return "fill in the blank"
	case lesson.KindTrueFalse:
		return "true or false"
	case lesson.KindQnA:
		return "question"
	case lesson.KindMatching:
		return "matching"
	case lesson.KindUnknown:
		return "exercise"
	}
	return strings.ReplaceAll(string(k), "_", " ")
}

// Renderer turns markdown into terminal output.
type Renderer struct {
	term *glamour.TermRenderer
}

// NewRenderer picks glamour's auto style on a terminal and the plain
// "notty" style otherwise.
func NewRenderer(tty bool, theme string, wordWrap int) *Renderer {
	if wordWrap <= 0 {
		wordWrap = 80
	}
	style := glamour.WithStandardStyle("notty")
	if tty {
		switch theme {
		case "dark", "light":
			style = glamour.WithStandardStyle(theme)
		default:
			style = glamour.WithAutoStyle()
		}
	}
	term, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wordWrap))
	if err != nil {
		logging.UIDebug("glamour renderer unavailable: %v", err)
		return &Renderer{}
	}
	return &Renderer{term: term}
}

// Render returns the formatted markdown, or the markdown itself when
// rendering fails.
func (r *Renderer) Render(md string) string {
	if r == nil || r.term == nil {
		return md
	}
	out, err := r.term.Render(md)
	if err != nil {
		logging.UIDebug("markdown render failed: %v", err)
		return md
	}
	return out
}
