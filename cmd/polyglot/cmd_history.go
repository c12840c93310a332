package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"polyglot/cmd/polyglot/ui"
	"polyglot/internal/session"
	"polyglot/internal/store"
)

var historyLimit int

// historyCmd lists saved lessons
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved lessons",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved lesson (a unique ID prefix is enough)",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of lessons to list (0 = all)")
	historyCmd.AddCommand(historyShowCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	st, err := env.openStore()
	if err != nil {
		return errors.New(session.UserMessage(err))
	}
	defer st.Close()

	list, err := st.List(cmd.Context(), historyLimit)
	if err != nil {
		return errors.New(session.UserMessage(err))
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No saved lessons yet. Run 'polyglot' to start one.")
		return nil
	}
	r := ui.NewRenderer(ui.IsTerminal(out), env.cfg.UI.Theme, env.cfg.UI.WordWrap)
	fmt.Fprint(out, r.Render(historyMarkdown(list)))
	return nil
}

// historyMarkdown lists lessons as a markdown table, newest first.
func historyMarkdown(list []store.Summary) string {
	var b strings.Builder
	b.WriteString("| ID | Saved | Language | Level | Topic | Words | Exercises |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, s := range list {
		topic := strings.ReplaceAll(s.Topic, "|", `\|`)
		if s.Fallback {
			topic += " (practice)"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %d | %d |\n",
			shortID(s.ID), s.CreatedAt.Local().Format("2006-01-02 15:04"),
			s.Language, s.Level, topic, s.Words, s.Exercises)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	st, err := env.openStore()
	if err != nil {
		return errors.New(session.UserMessage(err))
	}
	defer st.Close()

	rec, err := st.Get(cmd.Context(), args[0])
	if err != nil {
		return errors.New(session.UserMessage(err))
	}

	out := cmd.OutOrStdout()
	view := ui.LessonView{
		Language:        languageName(rec.Language),
		Level:           levelName(rec.Level),
		Topic:           rec.Topic,
		CreatedAt:       rec.CreatedAt.Local(),
		Content:         rec.Content,
		ShowTranslation: true,
		ShowAnswers:     true,
	}
	if rec.Fallback {
		view.Note = "Practice story generated without the story service."
	}
	r := ui.NewRenderer(ui.IsTerminal(out), env.cfg.UI.Theme, env.cfg.UI.WordWrap)
	fmt.Fprint(out, r.Render(view.Markdown()))
	return nil
}
