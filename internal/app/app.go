package app

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/router"
	"github.com/selfeval/selfeval/internal/screen"
	"github.com/selfeval/selfeval/internal/screens/evaluation"
	"github.com/selfeval/selfeval/internal/screens/home"
	"github.com/selfeval/selfeval/internal/ui/layout"
)

// Options configure the interactive application.
type Options struct {
	evaluation.Deps

	// User is shown in the header.
	User string

	// SectionID opens this section directly instead of the section list.
	SectionID string

	// ShutdownTimeout bounds how long Run waits for answers still being
	// saved after the UI exits.
	ShutdownTimeout time.Duration
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	init   tea.Cmd
	user   string
	width  int
	height int
}

// newAppModel creates a new AppModel with the section list, or with the
// given section already open on top of it. The list loads when it is
// uncovered.
func newAppModel(opts Options) AppModel {
	homeScreen := home.New(opts.Deps)
	r := router.New(homeScreen)
	m := AppModel{router: r, user: opts.User}
	if opts.SectionID != "" {
		m.init = r.Push(evaluation.New(opts.Deps, model.Section{ID: opts.SectionID}, false))
	} else {
		m.init = homeScreen.Init()
	}
	return m
}

func (m AppModel) Init() tea.Cmd {
	return m.init
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	v.SetContent(m.render())
	return v
}

// render draws the full frame for the current terminal size.
func (m AppModel) render() string {
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.user, m.width)
	footer := layout.RenderFooter(m.footerHints(), m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

func (m AppModel) footerHints() []layout.KeyHint {
	if p, ok := m.router.Active().(screen.KeyHintProvider); ok {
		if hints := p.KeyHints(); len(hints) > 0 {
			return hints
		}
	}
	if m.router.Depth() > 1 {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

// Run starts the Bubble Tea program. When it exits, open evaluations are
// closed and answers still being saved get up to ShutdownTimeout to finish.
func Run(opts Options) error {
	m := newAppModel(opts)
	p := tea.NewProgram(m)
	_, err := p.Run()

	m.router.CloseAll()
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if werr := m.router.Wait(ctx); werr != nil {
		opts.Logger.Warn().Err(werr).Msg("exited before all answers were saved")
		fmt.Fprintln(os.Stderr, "Some answers were still being saved; they are kept locally and will be sent next time.")
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
