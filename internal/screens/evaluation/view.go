package evaluation

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/session"
	"github.com/selfeval/selfeval/internal/ui/components"
	"github.com/selfeval/selfeval/internal/ui/layout"
	"github.com/selfeval/selfeval/internal/ui/theme"
)

func (s *EvaluationScreen) View(width, height int) string {
	if s.errMsg != "" {
		return renderError(width, height, s.errMsg)
	}
	if !s.loaded {
		return renderLoading(width, height)
	}
	return s.renderQuestionView(width, height)
}

func renderLoading(width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.TextDim).
		Render("Loading questions...")
}

func renderError(width, height int, msg string) string {
	body := lipgloss.NewStyle().Foreground(theme.Error).Bold(true).Render(msg) +
		"\n\n" + theme.Hint.Render("Press R to try again or Esc to go back.")
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(body)
}

// renderQuestionView renders the active question display.
func (s *EvaluationScreen) renderQuestionView(width, height int) string {
	v := s.view
	var b strings.Builder

	// Progress line.
	b.WriteString(lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(fmt.Sprintf("  Question %d of %d", v.Index+1, v.Total)))
	b.WriteString("\n")

	barWidth := max(width-4, 20)
	b.WriteString("  " + components.QuestionProgress(v.Progress, v.AnsweredCount(), v.Total, barWidth).View())
	b.WriteString("\n")
	if !layout.IsCompactHeight(height + layout.HeaderHeight + layout.FooterHeight) {
		b.WriteString("  " + components.RenderDots(dots(v.Dots)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	// Question text.
	text := v.Question.Text
	if v.Required {
		text += lipgloss.NewStyle().Foreground(theme.Error).Render(" *")
	}
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Padding(0, 2).
		Foreground(theme.Text).
		Bold(true).
		Render(text))
	b.WriteString("\n\n")

	// Input area.
	b.WriteString(lipgloss.NewStyle().Padding(0, 4).Render(s.renderInput()))
	b.WriteString("\n\n")

	// Save status and notices.
	if status := renderSubmitState(v); status != "" {
		b.WriteString("  " + status)
		b.WriteString("\n")
	}
	if s.busy {
		b.WriteString("  " + theme.Hint.Render("Saving..."))
		b.WriteString("\n")
	}
	if s.notice != "" {
		b.WriteString("  " + lipgloss.NewStyle().Foreground(theme.Error).Render(s.notice))
		b.WriteString("\n")
	}

	return b.String()
}

func (s *EvaluationScreen) renderInput() string {
	q := s.view.Question
	switch q.Kind {
	case model.KindScale:
		return s.scale.View() + "\n" +
			theme.Hint.Render(fmt.Sprintf("%d = lowest, %d = highest", q.Min, q.Max))
	case model.KindMultipleChoice:
		return s.choice.View()
	case model.KindFreeText:
		hint := "Press Enter to save."
		if !s.view.Required {
			hint = "Optional. Press Enter to save."
		}
		return s.text.View() + "\n" + theme.Hint.Render(hint)
	}
	return theme.Hint.Render("Unsupported question type.")
}

func renderSubmitState(v session.View) string {
	switch v.Submit {
	case session.SubmitPending:
		return theme.Saving.Render("● " + v.Submit.String())
	case session.SubmitSaved:
		return theme.Saved.Render("✓ " + v.Submit.String())
	case session.SubmitFailed:
		msg := "✗ " + v.Submit.String()
		if v.SubmitErr != nil {
			msg += ": " + describe(v.SubmitErr)
		}
		return theme.Failed.Render(msg) + theme.Hint.Render("  (Ctrl+R to retry)")
	}
	return ""
}

func dots(in []session.Dot) []components.Dot {
	out := make([]components.Dot, len(in))
	for i, d := range in {
		state := components.DotUnanswered
		switch {
		case d.Submit == session.SubmitFailed:
			state = components.DotFailed
		case d.Submit == session.SubmitPending:
			state = components.DotSaving
		case d.Answered:
			state = components.DotAnswered
		}
		out[i] = components.Dot{State: state, Current: d.Current}
	}
	return out
}
