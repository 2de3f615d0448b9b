package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"golang.org/x/sync/errgroup"

	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/router"
	"github.com/selfeval/selfeval/internal/screen"
	"github.com/selfeval/selfeval/internal/screens/evaluation"
	"github.com/selfeval/selfeval/internal/ui/components"
	"github.com/selfeval/selfeval/internal/ui/layout"
	"github.com/selfeval/selfeval/internal/ui/theme"
)

// SectionStatus is a section together with the student's latest attempt.
type SectionStatus struct {
	Section model.Section
	Latest  *model.Evaluation
}

// sectionsLoadedMsg carries the section list.
type sectionsLoadedMsg struct {
	Sections []SectionStatus
	Err      error
}

// HomeScreen lists the sections a student can evaluate themselves in.
type HomeScreen struct {
	deps     evaluation.Deps
	menu     components.Menu
	sections []SectionStatus
	loading  bool
	errMsg   string
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(deps evaluation.Deps) *HomeScreen {
	return &HomeScreen{deps: deps, loading: true}
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.load()
}

func (h *HomeScreen) Title() string {
	return "Sections"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	if h.errMsg != "" {
		return []layout.KeyHint{
			{Key: "R", Description: "Reload"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Open"},
		{Key: "R", Description: "Reload"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case sectionsLoadedMsg:
		h.loading = false
		if msg.Err != nil {
			h.errMsg = msg.Err.Error()
			return h, nil
		}
		h.errMsg = ""
		h.setSections(msg.Sections)
		return h, nil

	case screen.ResumedMsg:
		return h, h.load()

	case tea.KeyMsg:
		if msg.String() == "r" || msg.String() == "R" {
			h.loading = true
			return h, h.load()
		}
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) load() tea.Cmd {
	client := h.deps.Client
	return func() tea.Msg {
		sections, err := loadSections(context.Background(), client)
		return sectionsLoadedMsg{Sections: sections, Err: err}
	}
}

// sectionLister is the part of the backend the home screen reads.
type sectionLister interface {
	ListSections(ctx context.Context) ([]model.Section, error)
	ListEvaluations(ctx context.Context, sectionID string) ([]model.Evaluation, error)
}

// loadSections fetches sections and the student's evaluations in parallel
// and pairs each section with its most recent attempt.
func loadSections(ctx context.Context, client sectionLister) ([]SectionStatus, error) {
	var (
		sections    []model.Section
		evaluations []model.Evaluation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sections, err = client.ListSections(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		evaluations, err = client.ListEvaluations(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	latest := make(map[string]model.Evaluation)
	for _, e := range evaluations {
		id := e.Section.ID()
		if cur, ok := latest[id]; !ok || !cur.CreatedAt.After(e.CreatedAt) {
			latest[id] = e
		}
	}

	out := make([]SectionStatus, 0, len(sections))
	for _, s := range sections {
		st := SectionStatus{Section: s}
		if e, ok := latest[s.ID]; ok {
			st.Latest = &e
		}
		out = append(out, st)
	}
	return out, nil
}

func (h *HomeScreen) setSections(sections []SectionStatus) {
	h.sections = sections
	selected := h.menu.Selected

	items := make([]components.MenuItem, 0, len(sections)+1)
	for _, st := range sections {
		section := st.Section
		deps := h.deps
		items = append(items, components.MenuItem{
			Label:  section.Name,
			Detail: statusLabel(st.Latest),
			Action: func() tea.Cmd {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: evaluation.New(deps, section, false)}
				}
			},
		})
	}
	items = append(items, components.MenuItem{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }})

	h.menu = components.NewMenu(items)
	if selected < len(items) {
		h.menu.Selected = selected
	}
}

// statusLabel summarizes an attempt for the section list.
func statusLabel(e *model.Evaluation) string {
	if e == nil {
		return "not started"
	}
	switch e.Status {
	case model.StatusPending:
		return "not started"
	case model.StatusInProgress:
		return fmt.Sprintf("in progress, %d answered", len(e.Answers))
	case model.StatusCompleted:
		if pct, ok := e.Percent(); ok {
			return fmt.Sprintf("completed, %.0f%% (%s)", pct, e.Level.Label())
		}
		return "completed"
	}
	return string(e.Status)
}

func (h *HomeScreen) View(width, height int) string {
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)

	var b strings.Builder
	b.WriteString(center.Render(theme.Title.Render("Self-evaluation")))
	b.WriteString("\n")
	b.WriteString(center.Render(theme.Subtitle.Render("Pick a section to evaluate yourself in.")))
	b.WriteString("\n\n")

	switch {
	case h.loading && h.sections == nil:
		b.WriteString(center.Render(theme.Hint.Render("Loading sections...")))
	case h.errMsg != "":
		b.WriteString(center.Render(lipgloss.NewStyle().Foreground(theme.Error).Render(h.errMsg)))
		b.WriteString("\n\n")
		b.WriteString(center.Render(theme.Hint.Render("Press R to reload.")))
	case len(h.sections) == 0:
		b.WriteString(center.Render(theme.Hint.Render("No sections are available yet.")))
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Padding(0, 4).Render(h.menu.View()))
	default:
		b.WriteString(lipgloss.NewStyle().Padding(0, 4).Render(h.menu.View()))
	}

	return lipgloss.NewStyle().Height(height).Render(b.String())
}
