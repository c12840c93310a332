package main

import (
	"context"
	"fmt"

	"polyglot/cmd/polyglot/ui"
	"polyglot/internal/lesson"
	"polyglot/internal/session"
)

// runExercises asks every exercise of the lesson in order and prints the
// score. Answers are recorded by exercise ID.
func (a *App) runExercises(ctx context.Context, l *session.Lesson) error {
	exercises := l.Content.Exercises
	if len(exercises) == 0 {
		return nil
	}

	fmt.Fprintln(a.out, a.styles.Title.Render("💪 Practice Exercises"))
	fmt.Fprintln(a.out, rule)

	for i, ex := range exercises {
		fmt.Fprintf(a.out, "\n%s %s\n",
			a.styles.Bold.Render(fmt.Sprintf("Exercise %d/%d", i+1, len(exercises))),
			a.styles.Muted.Render("("+ui.KindLabel(ex.Kind)+")"))
		fmt.Fprintf(a.out, "Q: %s\n", ex.Question)
		if ex.Kind.IsChoice() {
			for j, opt := range ex.Options {
				fmt.Fprintln(a.out, a.styles.Option.Render(fmt.Sprintf("%c) %s", 'a'+j, opt)))
			}
		}

		fmt.Fprint(a.out, a.styles.Prompt.Render("Your answer: "))
		given, err := a.in.readLine(ctx)
		if err != nil {
			return err
		}

		v, err := a.svc.Answer(ctx, l, ex.ID, given)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, verdictLine(a.styles, v, ex))
	}

	sc := l.Score()
	fmt.Fprintf(a.out, "\n%s\n", a.styles.Title.Render(fmt.Sprintf("📊 Score: %d/%d correct", sc.Correct, sc.Total)))
	fmt.Fprintln(a.out, rule)
	return nil
}

func verdictLine(st ui.Styles, v lesson.Verdict, ex lesson.Exercise) string {
	switch v {
	case lesson.Correct:
		return st.Success.Render("✅ Correct!")
	case lesson.Ungraded:
		return st.Muted.Render("📝 Noted. This exercise has no reference answer.")
	default:
		return st.Error.Render("❌ The answer is: " + ex.Answer)
	}
}
