package home

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/selfeval/selfeval/internal/backend"
	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/router"
	"github.com/selfeval/selfeval/internal/screen"
	"github.com/selfeval/selfeval/internal/screens/evaluation"
)

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func testBackend() *backend.Mock {
	m := backend.NewMock(model.User{ID: "student-1"})
	q := model.Question{ID: "q1", Ordinal: 1, Kind: model.KindScale, Points: 10, Min: 1, Max: 5}
	m.AddSection(model.Section{ID: "soft", Name: "Soft skills"}, q)
	q.ID = "q2"
	m.AddSection(model.Section{ID: "tech", Name: "Technical skills"}, q)
	return m
}

func loaded(t *testing.T, m *backend.Mock) *HomeScreen {
	t.Helper()
	h := New(evaluation.Deps{Client: m, Logger: zerolog.Nop()})
	cmd := h.Init()
	if cmd == nil {
		t.Fatal("expected a load command")
	}
	scr, _ := h.Update(cmd())
	return scr.(*HomeScreen)
}

func TestHomeScreen_ListsSectionsWithStatus(t *testing.T) {
	m := testBackend()
	ctx := context.Background()
	e, _ := m.CreateEvaluation(ctx, "tech")
	m.StartEvaluation(ctx, e.ID)

	h := loaded(t, m)
	if len(h.sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(h.sections))
	}
	view := h.View(100, 30)
	for _, want := range []string{"Soft skills", "Technical skills", "not started", "in progress"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestHomeScreen_EnterOpensSection(t *testing.T) {
	h := loaded(t, testBackend())

	scr, _ := h.Update(specialKey(tea.KeyDown))
	_, cmd := scr.Update(specialKey(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatalf("expected PushScreenMsg, got %T", cmd())
	}
	if msg.Screen.Title() != "Technical skills" {
		t.Errorf("pushed %q", msg.Screen.Title())
	}
}

func TestHomeScreen_LoadError(t *testing.T) {
	m := testBackend()
	m.FailNext(backend.OpListSections, errors.New("boom"))

	h := loaded(t, m)
	if h.errMsg == "" {
		t.Fatal("expected an error")
	}
	if !strings.Contains(h.View(100, 30), "reload") {
		t.Error("expected reload hint")
	}

	_, cmd := h.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	if cmd == nil {
		t.Fatal("expected reload command")
	}
	scr, _ := h.Update(cmd())
	if scr.(*HomeScreen).errMsg != "" {
		t.Error("expected reload to clear the error")
	}
}

func TestHomeScreen_ReloadsWhenResumed(t *testing.T) {
	h := loaded(t, testBackend())
	if _, cmd := h.Update(screen.ResumedMsg{}); cmd == nil {
		t.Error("expected a reload after returning to the list")
	}
}

func TestLoadSections_PicksLatestAttempt(t *testing.T) {
	m := testBackend()
	ctx := context.Background()

	first, _ := m.CreateEvaluation(ctx, "soft")
	m.StartEvaluation(ctx, first.ID)
	m.SubmitAnswer(ctx, backend.SubmitAnswerRequest{EvaluationID: first.ID, QuestionID: "q1", Value: model.Int(5)})
	if _, err := m.CompleteEvaluation(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	second, _ := m.CreateEvaluation(ctx, "soft")

	got, err := loadSections(ctx, m)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Latest == nil || got[0].Latest.ID != second.ID {
		t.Errorf("latest = %+v, want %s", got[0].Latest, second.ID)
	}
	if got[1].Latest != nil {
		t.Errorf("tech should have no attempt, got %+v", got[1].Latest)
	}
}

func TestStatusLabel(t *testing.T) {
	total, max := 4.0, 5.0
	tests := []struct {
		name string
		e    *model.Evaluation
		want string
	}{
		{"none", nil, "not started"},
		{"pending", &model.Evaluation{Status: model.StatusPending}, "not started"},
		{"in progress", &model.Evaluation{Status: model.StatusInProgress, Answers: []model.Answer{{QuestionID: "q1"}}}, "in progress, 1 answered"},
		{"completed", &model.Evaluation{Status: model.StatusCompleted, TotalScore: &total, MaxScore: &max, Level: model.LevelVeryHigh}, "completed, 80% (Very high)"},
		{"completed unscored", &model.Evaluation{Status: model.StatusCompleted}, "completed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusLabel(tt.e); got != tt.want {
				t.Errorf("statusLabel = %q, want %q", got, tt.want)
			}
		})
	}
}
