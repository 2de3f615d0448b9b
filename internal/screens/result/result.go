package result

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/router"
	"github.com/selfeval/selfeval/internal/screen"
	"github.com/selfeval/selfeval/internal/ui/components"
	"github.com/selfeval/selfeval/internal/ui/layout"
	"github.com/selfeval/selfeval/internal/ui/theme"
)

// ResultScreen shows a completed evaluation's score.
type ResultScreen struct {
	evaluation model.Evaluation
	section    string
	retake     func() screen.Screen
}

var _ screen.Screen = (*ResultScreen)(nil)
var _ screen.KeyHintProvider = (*ResultScreen)(nil)

// New creates a ResultScreen. retake builds the screen for a new attempt;
// when nil, retaking is not offered.
func New(e model.Evaluation, sectionName string, retake func() screen.Screen) *ResultScreen {
	return &ResultScreen{evaluation: e, section: sectionName, retake: retake}
}

func (s *ResultScreen) Init() tea.Cmd {
	return nil
}

func (s *ResultScreen) Title() string {
	return "Result"
}

func (s *ResultScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Enter", Description: "Back to sections"}}
	if s.retake != nil {
		hints = append(hints, layout.KeyHint{Key: "R", Description: "Retake"})
	}
	return hints
}

func (s *ResultScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "q":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "r", "R":
			if s.retake != nil {
				next := s.retake()
				return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
			}
		}
	}
	return s, nil
}

func (s *ResultScreen) View(width, height int) string {
	e := s.evaluation
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)

	var b strings.Builder
	b.WriteString(center.Foreground(theme.Primary).Bold(true).Render("Evaluation complete"))
	b.WriteString("\n")
	if s.section != "" {
		b.WriteString(center.Foreground(theme.TextDim).Render(s.section))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if e.TotalScore != nil && e.MaxScore != nil {
		b.WriteString(center.Foreground(theme.Text).Bold(true).
			Render(fmt.Sprintf("Score: %s / %s", formatScore(*e.TotalScore), formatScore(*e.MaxScore))))
		b.WriteString("\n\n")
	} else {
		b.WriteString(center.Foreground(theme.TextDim).Render("Your score is not available yet."))
		b.WriteString("\n\n")
	}

	if pct, ok := e.Percent(); ok {
		barWidth := width / 2
		if barWidth < 20 {
			barWidth = 20
		}
		bar := components.ScoreBar(pct, barWidth).View()
		b.WriteString(center.Render(bar))
		b.WriteString("\n\n")
	}

	if e.Level != "" {
		label := theme.LevelColor(string(e.Level)).Render(e.Level.Label())
		b.WriteString(center.Render("Level: " + label))
		b.WriteString("\n")
	}

	if e.CompletedAt != nil {
		b.WriteString("\n")
		b.WriteString(center.Foreground(theme.TextDim).
			Render("Completed " + e.CompletedAt.Local().Format("2 Jan 2006 15:04")))
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().Height(height).Render(b.String())
}

func formatScore(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.1f", f)
}
