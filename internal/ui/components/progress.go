package components

import (
	"fmt"
	"math"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/selfeval/selfeval/internal/ui/theme"
)

// ProgressBar is a horizontal bar with an optional trailing label.
type ProgressBar struct {
	// Fraction of the bar to fill, clamped to [0, 1].
	Fraction float64
	Width    int
	// Suffix is rendered dimmed after the bar.
	Suffix string
}

// QuestionProgress shows how far through the questions the student is
// and how many of them carry an answer.
func QuestionProgress(fraction float64, answered, total, width int) ProgressBar {
	return ProgressBar{
		Fraction: fraction,
		Width:    width,
		Suffix:   fmt.Sprintf("%d/%d answered", answered, total),
	}
}

// ScoreBar shows a score percentage in [0, 100].
func ScoreBar(percent float64, width int) ProgressBar {
	return ProgressBar{
		Fraction: percent / 100,
		Width:    width,
		Suffix:   fmt.Sprintf("%d%%", int(math.Round(percent))),
	}
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	suffix := ""
	if p.Suffix != "" {
		suffix = lipgloss.NewStyle().Foreground(theme.TextDim).Render("  " + p.Suffix)
	}

	barWidth := max(p.Width-lipgloss.Width(suffix), 4)
	filled := min(max(int(float64(barWidth)*p.Fraction), 0), barWidth)

	return theme.ProgressFilled.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", barWidth-filled)) +
		suffix
}
