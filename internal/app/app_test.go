package app

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/selfeval/selfeval/internal/backend"
	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/router"
	"github.com/selfeval/selfeval/internal/screens/evaluation"
)

func testOptions() Options {
	m := backend.NewMock(model.User{ID: "student-1"})
	m.AddSection(model.Section{ID: "soft", Name: "Soft skills"},
		model.Question{ID: "q1", Ordinal: 1, Kind: model.KindScale, Points: 10, Min: 1, Max: 5})
	return Options{
		Deps: evaluation.Deps{Client: m, Logger: zerolog.Nop()},
		User: "Ada",
	}
}

func resize(t *testing.T, m AppModel, w, h int) AppModel {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return updated.(AppModel)
}

func TestAppModel_ViewShowsHeaderAndUser(t *testing.T) {
	m := resize(t, newAppModel(testOptions()), 100, 30)
	content := m.render()
	if !strings.Contains(content, "Sections") {
		t.Error("expected the section list title in the header")
	}
	if !strings.Contains(content, "Ada") {
		t.Error("expected the user in the header")
	}
}

func TestAppModel_TooSmall(t *testing.T) {
	m := resize(t, newAppModel(testOptions()), 40, 10)
	if !strings.Contains(m.render(), "too small") {
		t.Error("expected the minimum size message")
	}
}

func TestAppModel_DirectSection(t *testing.T) {
	opts := testOptions()
	opts.SectionID = "soft"
	m := newAppModel(opts)
	defer m.router.CloseAll()

	if m.router.Depth() != 2 {
		t.Fatalf("depth = %d, want 2", m.router.Depth())
	}
	if m.Init() == nil {
		t.Error("expected the section to start loading")
	}

	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("expected esc to navigate back")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Errorf("expected PopScreenMsg, got %T", cmd())
	}
}

func TestAppModel_CtrlCQuits(t *testing.T) {
	m := newAppModel(testOptions())
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected QuitMsg, got %T", cmd())
	}
}
