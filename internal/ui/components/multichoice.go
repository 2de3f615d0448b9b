package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/selfeval/selfeval/internal/ui/theme"
)

// MultiChoice is a single-answer option selector. Moving the cursor does
// not choose; Enter or a letter key does.
type MultiChoice struct {
	Options []string
	Cursor  int
	Chosen  int // -1 when nothing is chosen
}

// NewMultiChoice creates a selector with chosen preselected, or nothing
// when chosen is not one of the options.
func NewMultiChoice(options []string, chosen string) MultiChoice {
	m := MultiChoice{Options: options, Chosen: -1}
	for i, o := range options {
		if o == chosen {
			m.Chosen = i
			m.Cursor = i
			break
		}
	}
	return m
}

// Update handles keyboard navigation. The returned bool reports whether an
// option was chosen by this message.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, bool) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, false
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, false
	case "down", "j":
		if m.Cursor < len(m.Options)-1 {
			m.Cursor++
		}
		return m, false
	case "enter", "space":
		if len(m.Options) == 0 {
			return m, false
		}
		m.Chosen = m.Cursor
		return m, true
	}

	if len(key) == 1 {
		idx := int(strings.ToLower(key)[0]) - 'a'
		if idx >= 0 && idx < len(m.Options) {
			m.Cursor = idx
			m.Chosen = idx
			return m, true
		}
	}
	return m, false
}

// Value returns the chosen option.
func (m MultiChoice) Value() (string, bool) {
	if m.Chosen < 0 || m.Chosen >= len(m.Options) {
		return "", false
	}
	return m.Options[m.Chosen], true
}

// View renders the option list.
func (m MultiChoice) View() string {
	var b strings.Builder
	for i, opt := range m.Options {
		prefix := "  "
		if i == m.Cursor {
			prefix = "▸ "
		}
		mark := "( )"
		if i == m.Chosen {
			mark = "(•)"
		}
		line := fmt.Sprintf("%s%c) %s %s", prefix, 'A'+i, mark, opt)

		switch {
		case i == m.Cursor:
			b.WriteString(theme.Selected.Render(line))
		case i == m.Chosen:
			b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Render(line))
		default:
			b.WriteString(theme.Unselected.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
