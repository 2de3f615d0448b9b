package evaluation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/selfeval/selfeval/internal/backend"
	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/router"
	"github.com/selfeval/selfeval/internal/screen"
	"github.com/selfeval/selfeval/internal/screens/result"
	"github.com/selfeval/selfeval/internal/session"
	"github.com/selfeval/selfeval/internal/ui/components"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func shiftTab() tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: tea.KeyTab, Mod: tea.ModShift}
}

var softSkills = model.Section{ID: "soft", Name: "Soft skills"}

func testBackend() *backend.Mock {
	m := backend.NewMock(model.User{ID: "student-1"})
	m.AddSection(softSkills,
		model.Question{ID: "q1", Ordinal: 1, Kind: model.KindScale, Text: "I listen actively.", Points: 10, Min: 1, Max: 10},
		model.Question{ID: "q2", Ordinal: 2, Kind: model.KindMultipleChoice, Text: "I meet deadlines.", Points: 10, Options: []string{"Never", "Sometimes", "Always"}},
	)
	return m
}

func testScreen(m *backend.Mock) *EvaluationScreen {
	s := New(Deps{Client: m, Logger: zerolog.Nop()}, softSkills, false)
	return s
}

// send feeds msg to the screen and returns the updated screen.
func send(t *testing.T, s *EvaluationScreen, msg tea.Msg) (*EvaluationScreen, tea.Cmd) {
	t.Helper()
	scr, cmd := s.Update(msg)
	es, ok := scr.(*EvaluationScreen)
	if !ok {
		t.Fatalf("Update returned %T", scr)
	}
	return es, cmd
}

// exec runs a command expected to produce one of the screen's own
// messages and feeds the result back.
func exec(t *testing.T, s *EvaluationScreen, cmd tea.Cmd) (*EvaluationScreen, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return send(t, s, cmd())
}

func opened(t *testing.T, m *backend.Mock) *EvaluationScreen {
	t.Helper()
	s := testScreen(m)
	s, _ = exec(t, s, s.Init())
	if !s.loaded {
		t.Fatalf("screen not loaded: %s", s.errMsg)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func waitSaved(t *testing.T, s *EvaluationScreen) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.ctrl.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func TestEvaluationScreen_Title(t *testing.T) {
	s := testScreen(testBackend())
	if s.Title() != "Soft skills" {
		t.Errorf("Title = %q, want %q", s.Title(), "Soft skills")
	}
	if New(Deps{}, model.Section{ID: "x"}, false).Title() != "Evaluation" {
		t.Error("expected fallback title")
	}
}

func TestEvaluationScreen_View_Loading(t *testing.T) {
	s := testScreen(testBackend())
	if !strings.Contains(s.View(80, 24), "Loading") {
		t.Error("expected loading view before open completes")
	}
}

func TestEvaluationScreen_OpenShowsFirstQuestion(t *testing.T) {
	s := opened(t, testBackend())

	if s.view.Index != 0 || s.view.Total != 2 {
		t.Errorf("view = %d/%d, want 0/2", s.view.Index, s.view.Total)
	}
	view := s.View(100, 30)
	for _, want := range []string{"Question 1 of 2", "I listen actively."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestEvaluationScreen_AnswerAndFinish(t *testing.T) {
	m := testBackend()
	s := opened(t, m)

	// Rate 7 on the scale.
	s, cmd := send(t, s, keyPress('7'))
	s, _ = exec(t, s, cmd)
	if n, _ := s.view.Answer.AsInt(); n != 7 {
		t.Errorf("cached answer = %v, want 7", s.view.Answer)
	}

	// Next waits for the save and advances.
	s, cmd = send(t, s, specialKey(tea.KeyTab))
	if !s.busy {
		t.Error("expected screen to be busy while saving")
	}
	s, _ = exec(t, s, cmd)
	if s.busy || s.view.Index != 1 {
		t.Fatalf("after next: busy=%v index=%d notice=%q", s.busy, s.view.Index, s.notice)
	}

	// Choose "Always" and finish.
	s, cmd = send(t, s, keyPress('c'))
	s, _ = exec(t, s, cmd)
	s, cmd = send(t, s, specialKey(tea.KeyTab))
	_, cmd = exec(t, s, cmd)
	if cmd == nil {
		t.Fatal("expected navigation to the result")
	}
	msg, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("expected ReplaceScreenMsg, got %T", cmd())
	}
	if _, ok := msg.Screen.(*result.ResultScreen); !ok {
		t.Errorf("expected result screen, got %T", msg.Screen)
	}

	if m.CallCount(backend.OpCompleteEvaluation) != 1 {
		t.Errorf("complete calls = %d, want 1", m.CallCount(backend.OpCompleteEvaluation))
	}
}

func TestEvaluationScreen_NextRequiresAnswer(t *testing.T) {
	s := opened(t, testBackend())

	s, cmd := send(t, s, specialKey(tea.KeyTab))
	s, _ = exec(t, s, cmd)

	if s.view.Index != 0 {
		t.Errorf("index = %d, want 0", s.view.Index)
	}
	if !strings.Contains(s.notice, "answer this question") {
		t.Errorf("notice = %q", s.notice)
	}
}

func TestEvaluationScreen_FinishWithoutLastAnswer(t *testing.T) {
	m := testBackend()
	s := opened(t, m)

	s, cmd := send(t, s, keyPress('5'))
	s, _ = exec(t, s, cmd)
	s, cmd = send(t, s, specialKey(tea.KeyTab))
	s, _ = exec(t, s, cmd)

	s, cmd = send(t, s, specialKey(tea.KeyTab))
	s, _ = exec(t, s, cmd)

	if !strings.Contains(s.notice, "before finishing") {
		t.Errorf("notice = %q", s.notice)
	}
	if m.CallCount(backend.OpCompleteEvaluation) != 0 {
		t.Error("complete must not be called with an unanswered last question")
	}
}

func TestEvaluationScreen_PreviousKeepsAnswer(t *testing.T) {
	s := opened(t, testBackend())

	s, cmd := send(t, s, keyPress('8'))
	s, _ = exec(t, s, cmd)
	s, cmd = send(t, s, specialKey(tea.KeyTab))
	s, _ = exec(t, s, cmd)

	s, cmd = send(t, s, shiftTab())
	s, _ = exec(t, s, cmd)
	if s.view.Index != 0 {
		t.Fatalf("index = %d, want 0", s.view.Index)
	}
	if v, ok := s.scale.Value(); !ok || v != 8 {
		t.Errorf("scale = %d, %v; want 8, true", v, ok)
	}
}

func TestEvaluationScreen_JumpWithAltDigit(t *testing.T) {
	s := opened(t, testBackend())

	s, _ = send(t, s, tea.KeyPressMsg{Code: '2', Mod: tea.ModAlt})
	if s.view.Index != 1 {
		t.Errorf("index = %d, want 1", s.view.Index)
	}
	if s.view.Question.Kind != model.KindMultipleChoice {
		t.Errorf("kind = %s", s.view.Question.Kind)
	}
}

func TestEvaluationScreen_JumpWhileNextIsSaving(t *testing.T) {
	m := testBackend()
	release := make(chan struct{})
	m.SetHook(backend.OpSubmitAnswer, func(ctx context.Context, _ backend.Call) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	s := opened(t, m)

	s, cmd := send(t, s, keyPress('7'))
	s, _ = exec(t, s, cmd)

	s, next := send(t, s, specialKey(tea.KeyTab))
	if !s.busy || next == nil {
		t.Fatal("expected next to wait on the save")
	}
	moved := make(chan tea.Msg, 1)
	go func() { moved <- next() }()

	// A second tab is ignored, but the progress-dot jump goes through.
	s, cmd = send(t, s, specialKey(tea.KeyTab))
	if cmd != nil {
		t.Error("tab while busy should do nothing")
	}
	s, _ = send(t, s, tea.KeyPressMsg{Code: '2', Mod: tea.ModAlt})
	if s.view.Index != 1 || s.ctrl.Current().Index != 1 {
		t.Fatalf("jump while busy: view=%d controller=%d", s.view.Index, s.ctrl.Current().Index)
	}

	// Answering the question jumped to works while the save is pending.
	s, cmd = send(t, s, keyPress('c'))
	if cmd == nil {
		t.Fatal("expected the choice to be answered while busy")
	}
	s, _ = exec(t, s, cmd)

	close(release)
	select {
	case msg := <-moved:
		s, _ = send(t, s, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("next never finished")
	}
	if s.busy {
		t.Error("busy should clear once next returns")
	}
	if s.view.Index != 1 {
		t.Errorf("index = %d, want the jumped-to question 1", s.view.Index)
	}
	if v, ok := s.view.Answer.AsText(); !ok || v != "Always" {
		t.Errorf("answer = %v, want Always", s.view.Answer)
	}
}

func TestEvaluationScreen_PreviousReportsRejectedText(t *testing.T) {
	m := backend.NewMock(model.User{ID: "student-1"})
	m.AddSection(softSkills,
		model.Question{ID: "q1", Ordinal: 1, Kind: model.KindScale, Text: "I listen actively.", Points: 10, Min: 1, Max: 10},
		model.Question{ID: "q2", Ordinal: 2, Kind: model.KindFreeText, Text: "Describe a conflict you solved.", Points: 5},
	)
	s := opened(t, m)

	s, _ = send(t, s, tea.KeyPressMsg{Code: '2', Mod: tea.ModAlt})
	s, _ = exec(t, s, s.answer(model.Text("We talked it through.")))
	waitSaved(t, s)

	// Blanking a required answer and going back drops the blank text.
	s.text = components.NewTextInput("", "   ", 2000)
	s, cmd := send(t, s, shiftTab())
	if cmd == nil {
		t.Fatal("expected previous to run as a command")
	}
	s, _ = exec(t, s, cmd)

	if s.view.Index != 0 {
		t.Errorf("index = %d, want 0", s.view.Index)
	}
	if s.notice == "" {
		t.Error("expected the rejected text to be reported")
	}
	if got := s.ctrl.Answers()["q2"]; got.String() != "We talked it through." {
		t.Errorf("cached q2 = %q, want the saved answer", got.String())
	}
}

func TestEvaluationScreen_FreeTextSavedOnEnter(t *testing.T) {
	m := backend.NewMock(model.User{ID: "student-1"})
	m.AddSection(softSkills,
		model.Question{ID: "t1", Ordinal: 1, Kind: model.KindFreeText, Text: "Describe a conflict you resolved.", Points: 5},
	)
	s := opened(t, m)

	s.text.Model.SetValue("I mediated a team dispute.")
	s, cmd := send(t, s, specialKey(tea.KeyEnter))
	s, _ = exec(t, s, cmd)
	waitSaved(t, s)

	calls := m.Calls()
	var got string
	for _, c := range calls {
		if c.Op == backend.OpSubmitAnswer {
			got, _ = c.Value.AsText()
		}
	}
	if got != "I mediated a team dispute." {
		t.Errorf("submitted %q", got)
	}
}

func TestEvaluationScreen_CompletedSectionShowsResult(t *testing.T) {
	m := testBackend()
	ctx := context.Background()
	e, _ := m.CreateEvaluation(ctx, softSkills.ID)
	m.StartEvaluation(ctx, e.ID)
	m.SubmitAnswer(ctx, backend.SubmitAnswerRequest{EvaluationID: e.ID, QuestionID: "q1", Value: model.Int(10)})
	m.SubmitAnswer(ctx, backend.SubmitAnswerRequest{EvaluationID: e.ID, QuestionID: "q2", Value: model.Text("Always")})
	if _, err := m.CompleteEvaluation(ctx, e.ID); err != nil {
		t.Fatal(err)
	}

	s := testScreen(m)
	defer s.Close()
	_, cmd := exec(t, s, s.Init())
	if cmd == nil {
		t.Fatal("expected navigation to the result")
	}
	msg, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("expected ReplaceScreenMsg, got %T", cmd())
	}
	res, ok := msg.Screen.(*result.ResultScreen)
	if !ok {
		t.Fatalf("expected result screen, got %T", msg.Screen)
	}

	// Retaking from the result screen starts a new attempt.
	_, cmd = res.Update(keyPress('r'))
	replace, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("expected ReplaceScreenMsg, got %T", cmd())
	}
	retake, ok := replace.Screen.(*EvaluationScreen)
	if !ok || !retake.retake {
		t.Fatalf("expected a retake evaluation screen, got %T", replace.Screen)
	}
	defer retake.Close()
	retake, _ = exec(t, retake, retake.Init())
	if !retake.loaded {
		t.Fatalf("retake not loaded: %s", retake.errMsg)
	}
	if retake.view.Evaluation.ID == e.ID {
		t.Error("retake must create a new evaluation")
	}
}

func TestEvaluationScreen_OpenFailureThenRetry(t *testing.T) {
	m := testBackend()
	m.FailNext(backend.OpGetSection, &backend.ErrUnavailable{Op: backend.OpGetSection, Status: 503, Err: errors.New("down")})

	s := testScreen(m)
	defer s.Close()
	s, _ = exec(t, s, s.Init())
	if s.errMsg == "" {
		t.Fatal("expected an error message")
	}
	if !strings.Contains(s.View(80, 24), "try again") {
		t.Error("expected retry hint in error view")
	}

	s, cmd := send(t, s, keyPress('r'))
	s, _ = exec(t, s, cmd)
	if !s.loaded || s.errMsg != "" {
		t.Errorf("expected retry to load, err=%q", s.errMsg)
	}
}

func TestEvaluationScreen_EmptySection(t *testing.T) {
	m := backend.NewMock(model.User{ID: "student-1"})
	m.AddSection(softSkills)

	s := testScreen(m)
	defer s.Close()
	s, _ = exec(t, s, s.Init())
	if !strings.Contains(s.errMsg, "no questions") {
		t.Errorf("errMsg = %q", s.errMsg)
	}
}

func TestEvaluationScreen_CloseEndsSession(t *testing.T) {
	s := opened(t, testBackend())
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if s.ctrl.Current().Phase != session.PhaseClosed {
		t.Errorf("phase = %s, want closed", s.ctrl.Current().Phase)
	}
	if s.ctx.Err() == nil {
		t.Error("expected screen context to be cancelled")
	}
}

func TestEvaluationScreen_KeyHints(t *testing.T) {
	s := opened(t, testBackend())
	hints := s.KeyHints()

	var keys []string
	for _, h := range hints {
		keys = append(keys, h.Key)
	}
	joined := strings.Join(keys, " ")
	if !strings.Contains(joined, "Tab") || strings.Contains(joined, "Shift+Tab") {
		t.Errorf("first question hints = %v", keys)
	}
}

func TestJumpIndex(t *testing.T) {
	tests := []struct {
		key  string
		want int
		ok   bool
	}{
		{"alt+1", 0, true},
		{"alt+9", 8, true},
		{"alt+0", 0, false},
		{"1", 0, false},
		{"alt+a", 0, false},
	}
	for _, tt := range tests {
		got, ok := jumpIndex(tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("jumpIndex(%q) = %d, %v; want %d, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

var _ screen.Screen = (*result.ResultScreen)(nil)
