package components

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/selfeval/selfeval/internal/ui/theme"
)

// DotState is the display state of one question in the progress dots.
type DotState int

const (
	DotUnanswered DotState = iota
	DotAnswered
	DotSaving
	DotFailed
)

// Dot is one question marker.
type Dot struct {
	State   DotState
	Current bool
}

// RenderDots draws one glyph per question. The current question is
// underlined; answered questions are filled; saving and failed answers
// are colored.
func RenderDots(dots []Dot) string {
	var b strings.Builder
	for i, d := range dots {
		if i > 0 {
			b.WriteString(" ")
		}
		glyph := "○"
		style := lipgloss.NewStyle().Foreground(theme.TextDim)
		switch d.State {
		case DotAnswered:
			glyph = "●"
			style = theme.Saved
		case DotSaving:
			glyph = "●"
			style = theme.Saving
		case DotFailed:
			glyph = "✗"
			style = theme.Failed
		}
		if d.Current {
			style = style.Underline(true).Bold(true)
		}
		b.WriteString(style.Render(glyph))
	}
	return b.String()
}
