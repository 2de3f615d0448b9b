package components

import (
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/selfeval/selfeval/internal/ui/theme"
)

// Scale picks an integer in [Min, Max].
type Scale struct {
	Min, Max int
	Cursor   int
	Chosen   bool

	digits string // typed digits awaiting a second keystroke
}

// NewScale creates a scale with value preselected when set is true,
// otherwise with the cursor on the midpoint.
func NewScale(lo, hi, value int, set bool) Scale {
	s := Scale{Min: lo, Max: hi, Cursor: lo + (hi-lo)/2}
	if set && value >= lo && value <= hi {
		s.Cursor = value
		s.Chosen = true
	}
	return s
}

// Update handles keyboard input. The returned bool reports whether a value
// was chosen by this message.
func (s Scale) Update(msg tea.Msg) (Scale, bool) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, false
	}

	key := kmsg.String()
	switch key {
	case "left", "h":
		s.digits = ""
		if s.Cursor > s.Min {
			s.Cursor--
		}
		return s, false
	case "right", "l":
		s.digits = ""
		if s.Cursor < s.Max {
			s.Cursor++
		}
		return s, false
	case "enter", "space":
		s.digits = ""
		s.Chosen = true
		return s, true
	}

	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return s.typeDigit(key)
	}
	return s, false
}

// typeDigit selects the typed number. A digit that could still be the
// prefix of a larger in-range value is held until the next keystroke.
func (s Scale) typeDigit(d string) (Scale, bool) {
	typed := s.digits + d
	n, err := strconv.Atoi(typed)
	if err != nil || n > s.Max {
		typed = d
		n, _ = strconv.Atoi(d)
	}
	if n < s.Min || n > s.Max {
		s.digits = ""
		return s, false
	}
	s.Cursor = n
	s.Chosen = true
	if n*10 <= s.Max {
		s.digits = typed
	} else {
		s.digits = ""
	}
	return s, true
}

// Value returns the chosen value.
func (s Scale) Value() (int, bool) {
	return s.Cursor, s.Chosen
}

// View renders the scale as a row of numbers with the cursor highlighted.
func (s Scale) View() string {
	parts := make([]string, 0, s.Max-s.Min+1)
	for n := s.Min; n <= s.Max; n++ {
		label := strconv.Itoa(n)
		switch {
		case n == s.Cursor && s.Chosen:
			parts = append(parts, theme.Selected.Render("["+label+"]"))
		case n == s.Cursor:
			parts = append(parts, lipgloss.NewStyle().Foreground(theme.Accent).Render("<"+label+">"))
		default:
			parts = append(parts, theme.Unselected.Render(" "+label+" "))
		}
	}
	return strings.Join(parts, " ")
}
