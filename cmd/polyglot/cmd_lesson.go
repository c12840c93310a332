package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"polyglot/cmd/polyglot/ui"
	"polyglot/internal/prompt"
	"polyglot/internal/session"
)

var (
	lessonJSON   bool
	lessonNoSave bool
)

// startCmd opens the interactive menu; with --topic it runs a single lesson.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start an interactive learning session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagTopic != "" {
			return runSingleLesson(cmd.Context(), flagTopic)
		}
		return runInteractive(cmd.Context())
	},
}

// lessonCmd generates one lesson without the menu or the exercise loop.
var lessonCmd = &cobra.Command{
	Use:   "lesson [topic]",
	Short: "Generate one lesson and print it",
	Long: `Generates a lesson for the current language and level and prints it.
With --json the normalized lesson content is printed as JSON, suitable for
piping into other tools.

Example:
  polyglot lesson --language urdu --level intermediate "street food" --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLesson,
}

func init() {
	lessonCmd.Flags().BoolVar(&lessonJSON, "json", false, "Print the lesson content as JSON")
	lessonCmd.Flags().BoolVar(&lessonNoSave, "no-save", false, "Do not save the lesson")
}

func runLesson(cmd *cobra.Command, args []string) error {
	topic := flagTopic
	if len(args) == 1 {
		topic = args[0]
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return fmt.Errorf("a topic is required: polyglot lesson <topic>")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	intr := newInterrupter(cancel)
	intr.watchSignals(ctx)

	svc, closeStore, err := env.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	req := prompt.Request{Language: env.settings.Language, Level: env.settings.Level, Topic: topic}
	logger.Debug("generating lesson", zap.String("topic", topic), zap.Bool("json", lessonJSON))

	l, err := svc.Generate(ctx, req)
	if err != nil {
		return errors.New(session.UserMessage(err))
	}
	if l.FellBack && l.Cause != nil {
		fmt.Fprintln(os.Stderr, session.UserMessage(l.Cause))
	}
	if !lessonNoSave {
		if err := svc.Save(ctx, l); err != nil {
			fmt.Fprintln(os.Stderr, session.UserMessage(err))
		}
	}

	out := cmd.OutOrStdout()
	if lessonJSON {
		data, err := l.Content.JSON()
		if err != nil {
			return fmt.Errorf("failed to encode lesson: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	view := ui.LessonView{
		Language:        languageName(req.Language),
		Level:           levelName(req.Level),
		Topic:           topic,
		Content:         l.Content,
		ShowTranslation: env.settings.AutoTranslate,
		ShowAnswers:     true,
	}
	tty := ui.IsTerminal(out)
	r := ui.NewRenderer(tty, env.cfg.UI.Theme, env.cfg.UI.WordWrap)
	fmt.Fprint(out, r.Render(view.Markdown()))
	if l.ID != "" {
		fmt.Fprintf(out, "Saved as %s\n", l.ID)
	}
	return nil
}
