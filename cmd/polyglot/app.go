package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"polyglot/cmd/polyglot/ui"
	"polyglot/internal/config"
	"polyglot/internal/logging"
	"polyglot/internal/narration"
	"polyglot/internal/prompt"
	"polyglot/internal/session"
)

// errQuit is returned by prompts when the learner types q.
var errQuit = errors.New("quit")

const rule = "──────────────────────────────────────────────────────────────────"

// App is the interactive menu.
type App struct {
	env      *environment
	svc      *session.Service
	speaker  *narration.Speaker // nil = no narration
	in       *lineReader
	out      io.Writer
	styles   ui.Styles
	renderer *ui.Renderer
	intr     *interrupter
	tty      bool
}

func newApp(e *environment, svc *session.Service, speaker *narration.Speaker, in io.Reader, out io.Writer, intr *interrupter) *App {
	tty := ui.IsTerminal(out)
	theme := ui.LightTheme()
	if tty && e.cfg.UI.Theme != "notty" {
		theme = ui.ThemeFor(e.cfg.UI.Theme)
	}
	return &App{
		env:      e,
		svc:      svc,
		speaker:  speaker,
		in:       newLineReader(in),
		out:      out,
		styles:   ui.NewStyles(theme),
		renderer: ui.NewRenderer(tty && e.cfg.UI.Theme != "notty", e.cfg.UI.Theme, e.cfg.UI.WordWrap),
		intr:     intr,
		tty:      tty,
	}
}

// runInteractive opens the menu on stdin/stdout.
func runInteractive(parent context.Context) error {
	return withApp(parent, func(ctx context.Context, app *App) error {
		return app.Run(ctx)
	})
}

// runSingleLesson generates one lesson about topic and quizzes the learner
// until stdin runs out.
func runSingleLesson(parent context.Context, topic string) error {
	return withApp(parent, func(ctx context.Context, app *App) error {
		err := app.runSession(ctx, topic)
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

func withApp(parent context.Context, fn func(ctx context.Context, app *App) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	intr := newInterrupter(cancel)
	intr.watchSignals(ctx)

	svc, closeStore, err := env.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	app := newApp(env, svc, env.newSpeaker(ctx), os.Stdin, os.Stdout, intr)
	return fn(ctx, app)
}

// Run shows the main menu until the learner exits, input ends or the run is
// interrupted. All three end with exit status 0.
func (a *App) Run(ctx context.Context) error {
	a.printHeader()
	a.status("⚙️", "Initializing "+config.AppName+" v"+config.Version+"...")
	a.success("Application ready")
	logging.UI("Interactive menu opened")

	for {
		a.showMainMenu()
		choice, err := a.readChoice(ctx, "Choose option (1-5): ", 1, 5)
		if err != nil {
			return a.endRun(err)
		}

		switch choice {
		case 1:
			topic, err := a.readTopic(ctx)
			if errors.Is(err, errQuit) {
				continue
			}
			if err != nil {
				return a.endRun(err)
			}
			if err := a.runSession(ctx, topic); err != nil {
				return a.endRun(err)
			}
		case 2:
			if err := a.selectLanguage(ctx); err != nil && !errors.Is(err, errQuit) {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return a.endRun(err)
				}
				a.failure("Failed to change language: " + err.Error())
			}
		case 3:
			if err := a.selectLevel(ctx); err != nil && !errors.Is(err, errQuit) {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return a.endRun(err)
				}
				a.failure("Failed to change level: " + err.Error())
			}
		case 4:
			if err := a.showSettings(ctx); err != nil && !errors.Is(err, errQuit) {
				return a.endRun(err)
			}
		case 5:
			a.success("Happy learning! 👋")
			return nil
		}
	}
}

// endRun maps the ways a run can end normally onto a nil error.
func (a *App) endRun(err error) error {
	if errors.Is(err, errQuit) || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		fmt.Fprintln(a.out)
		a.success("Thank you for learning languages! 🌍")
		return nil
	}
	return err
}

// runSession runs one learning session: generate, save, show, narrate and
// quiz. An interrupt ends the session and returns to the caller with a nil
// error; only the end of the run (input exhausted or run canceled) is
// returned.
func (a *App) runSession(ctx context.Context, topic string) error {
	reqCtx, done := a.intr.request(ctx)
	defer done()

	s := a.env.settings
	req := prompt.Request{Language: s.Language, Level: s.Level, Topic: topic}
	a.status("🚀", fmt.Sprintf("Starting %s %s session: %s", s.Level, s.Language, topic))

	var l *session.Lesson
	err := ui.Spin(reqCtx, a.out, a.env.cfg.UI.Spinner, "Writing your story...", a.styles, func(ctx context.Context) error {
		var err error
		l, err = a.svc.Generate(ctx, req)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.warning(session.UserMessage(err))
		return nil
	}
	if l.FellBack && l.Cause != nil {
		a.warning(session.UserMessage(l.Cause))
	}

	if err := a.svc.Save(reqCtx, l); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, session.ErrInterrupted) {
			a.warning(session.UserMessage(err))
			return nil
		}
		a.failure(session.UserMessage(err))
	}

	a.showLesson(l)
	a.narrate(reqCtx, l)

	if err := a.runExercises(reqCtx, l); err != nil {
		if ctx.Err() != nil || errors.Is(err, io.EOF) {
			return err
		}
		if errors.Is(err, context.Canceled) {
			a.warning("🛑 Session interrupted")
			return nil
		}
		return err
	}

	a.success("Lesson completed! Excellent work! 🎉")
	a.showProgress(ctx)
	return nil
}

func (a *App) showLesson(l *session.Lesson) {
	view := ui.LessonView{
		Language:        languageName(l.Request.Language),
		Level:           levelName(l.Request.Level),
		Topic:           l.Request.Topic,
		Content:         l.Content,
		ShowTranslation: a.env.settings.AutoTranslate,
	}
	if l.FellBack {
		view.Note = "Practice story: the story service did not provide a lesson this time."
	}
	fmt.Fprint(a.out, a.renderer.Render(view.Markdown()))
	if l.ID != "" {
		fmt.Fprintln(a.out, a.styles.Muted.Render("Saved as "+l.ID))
	}
}

func (a *App) narrate(ctx context.Context, l *session.Lesson) {
	if a.speaker == nil {
		return
	}
	err := ui.Spin(ctx, a.out, a.env.cfg.UI.Spinner, "🔊 Narrating the story...", a.styles, func(ctx context.Context) error {
		return a.speaker.SpeakLesson(ctx, l.Content, a.env.locale())
	})
	if err != nil && ctx.Err() == nil {
		a.warning("Narration failed: " + firstLine(err.Error()))
	}
}

func (a *App) showProgress(ctx context.Context) {
	p, err := a.svc.DailyProgress(ctx, a.env.settings.DailyGoal)
	if err != nil {
		logging.SessionWarn("Daily progress unavailable: %v", err)
		return
	}
	fmt.Fprintln(a.out, progressLine(p))
}

func progressLine(p session.Progress) string {
	line := fmt.Sprintf("🎯 Daily goal: %d/%d stories today", p.Done, p.Goal)
	if p.Met() {
		line += " (goal reached!)"
	}
	return line
}

// =============================================================================
// MENUS
// =============================================================================

func (a *App) showMainMenu() {
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, a.styles.Title.Render("🎯 Main Menu"))
	fmt.Fprintln(a.out, rule)
	items := []string{
		"🆕 New Learning Session",
		"🌍 Change Language",
		"📊 Change Level",
		"⚙️ Settings",
		"🚪 Exit",
	}
	for i, item := range items {
		fmt.Fprintf(a.out, "   %s %s\n", a.styles.MenuKey.Render(strconv.Itoa(i+1)+"."), item)
	}
	fmt.Fprintln(a.out)
}

func (a *App) readTopic(ctx context.Context) (string, error) {
	fmt.Fprintln(a.out, a.styles.Title.Render("📝 Enter Story Topic"))
	fmt.Fprintln(a.out, rule)
	fmt.Fprintln(a.out, a.styles.Muted.Render("Examples: technology, travel, food, sports, animals (q to go back)"))
	for {
		fmt.Fprint(a.out, a.styles.Prompt.Render("Topic: "))
		topic, err := a.in.readLine(ctx)
		if err != nil {
			return "", err
		}
		if topic == "q" {
			return "", errQuit
		}
		if topic != "" {
			return topic, nil
		}
		a.failure("Please enter a topic")
	}
}

func (a *App) selectLanguage(ctx context.Context) error {
	fmt.Fprintln(a.out, a.styles.Title.Render("🌍 Select Language"))
	fmt.Fprintln(a.out, rule)
	langs := config.Languages()
	for i, l := range langs {
		fmt.Fprintf(a.out, "   %s %s\n", a.styles.MenuKey.Render(strconv.Itoa(i+1)+"."), l.Display)
	}
	choice, err := a.readChoice(ctx, fmt.Sprintf("Choose language (1-%d): ", len(langs)), 1, len(langs))
	if err != nil {
		return err
	}
	picked := langs[choice-1]
	if err := a.env.saveSetting("language", picked.Key); err != nil {
		return err
	}
	a.success("Language set to: " + picked.Display)
	return nil
}

func (a *App) selectLevel(ctx context.Context) error {
	fmt.Fprintln(a.out, a.styles.Title.Render("📊 Select Difficulty Level"))
	fmt.Fprintln(a.out, rule)
	levels := config.Levels()
	for i, l := range levels {
		fmt.Fprintf(a.out, "   %s %s (%s, %s)\n", a.styles.MenuKey.Render(strconv.Itoa(i+1)+"."),
			titleCase(l.Key), l.CEFR, l.Description)
	}
	choice, err := a.readChoice(ctx, fmt.Sprintf("Choose level (1-%d): ", len(levels)), 1, len(levels))
	if err != nil {
		return err
	}
	picked := levels[choice-1]
	if err := a.env.saveSetting("level", picked.Key); err != nil {
		return err
	}
	a.success("Level set to: " + picked.Key)
	return nil
}

func (a *App) showSettings(ctx context.Context) error {
	fmt.Fprintln(a.out, a.styles.Title.Render("⚙️ Settings"))
	fmt.Fprintln(a.out, rule)
	for _, row := range settingsRows(a.env) {
		fmt.Fprintf(a.out, "%s %s\n", a.styles.Bold.Render(row[0]+":"), row[1])
	}
	p, err := a.svc.DailyProgress(ctx, a.env.settings.DailyGoal)
	if err == nil {
		fmt.Fprintln(a.out, progressLine(p))
	}
	fmt.Fprintln(a.out, a.styles.Muted.Render("Change these with: polyglot config set <key> <value>"))
	fmt.Fprint(a.out, a.styles.Muted.Render("Press Enter to continue..."))
	_, err = a.in.readLine(ctx)
	return err
}

// settingsRows is the settings table shared by the menu and `config show`.
func settingsRows(e *environment) [][2]string {
	s := e.settings
	return [][2]string{
		{"🌍 Language", languageName(s.Language)},
		{"📊 Level", levelName(s.Level)},
		{"🔤 Auto-translate", strconv.FormatBool(s.AutoTranslate)},
		{"🎯 Daily goal", fmt.Sprintf("%d story/day", s.DailyGoal)},
		{"🤖 Story service", e.cfg.Completion.Provider + " (" + e.cfg.Completion.Model + ")"},
		{"💾 Storage", e.cfg.Storage.Backend},
		{"🔊 Narration", narrationName(e.cfg)},
		{"📁 Home", e.paths.Home},
	}
}

// readChoice reads a number in [lo, hi]. q returns errQuit.
func (a *App) readChoice(ctx context.Context, label string, lo, hi int) (int, error) {
	for {
		fmt.Fprint(a.out, a.styles.Prompt.Render(label))
		line, err := a.in.readLine(ctx)
		if err != nil {
			return 0, err
		}
		if strings.EqualFold(line, "q") || strings.EqualFold(line, "quit") {
			return 0, errQuit
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= lo && n <= hi {
			return n, nil
		}
		a.failure(fmt.Sprintf("Please enter a number between %d and %d", lo, hi))
	}
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func (a *App) printHeader() {
	fmt.Fprintln(a.out, a.styles.Banner.Render("🌍 "+config.AppName+" v"+config.Version))
}

func (a *App) status(icon, msg string) {
	fmt.Fprintln(a.out, a.styles.Info.Render(icon+" "+msg))
}

func (a *App) success(msg string) {
	fmt.Fprintln(a.out, a.styles.Success.Render("✅ "+msg))
}

func (a *App) warning(msg string) {
	fmt.Fprintln(a.out, a.styles.Warning.Render("⚠️  "+msg))
}

func (a *App) failure(msg string) {
	fmt.Fprintln(a.out, a.styles.Error.Render("❌ "+msg))
}

func languageName(key string) string {
	if l, ok := config.LookupLanguage(key); ok {
		return l.Display
	}
	return key
}

func levelName(key string) string {
	if l, ok := config.LookupLevel(key); ok {
		return fmt.Sprintf("%s (%s)", titleCase(l.Key), l.CEFR)
	}
	return key
}

func narrationName(cfg *config.Config) string {
	if noAudio || !cfg.Narration.Enabled {
		return "off"
	}
	return cfg.Narration.Engine
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
