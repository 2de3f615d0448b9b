package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary   = lipgloss.Color("#6366F1") // Indigo
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F59E0B") // Amber
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgDark    = lipgloss.Color("#0F172A") // Deep Navy
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim).
			Align(lipgloss.Center)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Background(BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)
)

// States
var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)

	Saved = lipgloss.NewStyle().
		Foreground(Success)

	Saving = lipgloss.NewStyle().
		Foreground(Accent)

	Failed = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)
)

// Components
var (
	ProgressFilled = lipgloss.NewStyle().
			Background(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
			Background(Border)
)

// LevelColor maps a result level label to a display color, from red
// (very low) to green (very high).
func LevelColor(level string) lipgloss.Style {
	switch level {
	case "very_low":
		return lipgloss.NewStyle().Foreground(Error).Bold(true)
	case "low":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#FB923C")).Bold(true)
	case "medium":
		return lipgloss.NewStyle().Foreground(Accent).Bold(true)
	case "high":
		return lipgloss.NewStyle().Foreground(Secondary).Bold(true)
	case "very_high":
		return lipgloss.NewStyle().Foreground(Success).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(TextDim)
}
