package evaluation

import (
	"context"
	"errors"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/selfeval/selfeval/internal/backend"
	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/router"
	"github.com/selfeval/selfeval/internal/screen"
	"github.com/selfeval/selfeval/internal/screens/result"
	"github.com/selfeval/selfeval/internal/session"
	"github.com/selfeval/selfeval/internal/store"
	"github.com/selfeval/selfeval/internal/ui/components"
	"github.com/selfeval/selfeval/internal/ui/layout"
)

const saveTickInterval = 250 * time.Millisecond

// Deps are the services an evaluation screen needs.
type Deps struct {
	Client backend.Client
	Drafts store.DraftRepo
	Logger zerolog.Logger
}

// EvaluationScreen implements screen.Screen for answering one section.
type EvaluationScreen struct {
	deps      Deps
	sectionID string
	name      string
	retake    bool

	ctx    context.Context
	cancel context.CancelFunc
	ctrl   *session.Controller

	view    session.View
	loaded  bool
	busy    bool   // next, finish or retry waiting on the backend
	errMsg  string // fatal: the screen cannot continue
	notice  string // shown under the question until the next action
	ticking bool

	inputFor string // question id the input components were built for
	scale    components.Scale
	choice   components.MultiChoice
	text     components.TextInput
}

var _ screen.Screen = (*EvaluationScreen)(nil)
var _ screen.KeyHintProvider = (*EvaluationScreen)(nil)
var _ router.Closer = (*EvaluationScreen)(nil)
var _ router.Waiter = (*EvaluationScreen)(nil)

// New creates a screen for the section. With retake set, a completed
// section starts a new attempt instead of showing the last result.
func New(deps Deps, section model.Section, retake bool) *EvaluationScreen {
	ctx, cancel := context.WithCancel(context.Background())
	return &EvaluationScreen{
		deps:      deps,
		sectionID: section.ID,
		name:      section.Name,
		retake:    retake,
		ctx:       ctx,
		cancel:    cancel,
		ctrl: session.New(session.Options{
			Client: deps.Client,
			Drafts: deps.Drafts,
			Logger: deps.Logger,
		}),
	}
}

func (s *EvaluationScreen) Init() tea.Cmd {
	return s.open()
}

func (s *EvaluationScreen) Title() string {
	if s.name != "" {
		return s.name
	}
	return "Evaluation"
}

// Close ends the session. Answers still being saved keep going.
func (s *EvaluationScreen) Close() error {
	s.cancel()
	return s.ctrl.Close()
}

// Wait blocks until answers left saving by Close have settled.
func (s *EvaluationScreen) Wait(ctx context.Context) error {
	return s.ctrl.Wait(ctx)
}

func (s *EvaluationScreen) KeyHints() []layout.KeyHint {
	if s.errMsg != "" {
		return []layout.KeyHint{
			{Key: "R", Description: "Try again"},
			{Key: "Esc", Description: "Back"},
		}
	}
	if !s.loaded {
		return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
	}

	hints := make([]layout.KeyHint, 0, 6)
	switch s.view.Question.Kind {
	case model.KindScale:
		hints = append(hints, layout.KeyHint{Key: "←→/0-9", Description: "Rate"})
	case model.KindMultipleChoice:
		hints = append(hints, layout.KeyHint{Key: "↑↓/A-Z", Description: "Choose"})
	case model.KindFreeText:
		hints = append(hints, layout.KeyHint{Key: "Enter", Description: "Save"})
	}
	next := "Next"
	if s.view.IsLast {
		next = "Finish"
	}
	hints = append(hints, layout.KeyHint{Key: "Tab", Description: next})
	if !s.view.IsFirst {
		hints = append(hints, layout.KeyHint{Key: "Shift+Tab", Description: "Back"})
	}
	if s.view.Submit == session.SubmitFailed {
		hints = append(hints, layout.KeyHint{Key: "Ctrl+R", Description: "Retry save"})
	}
	hints = append(hints, layout.KeyHint{Key: "Esc", Description: "Leave"})
	return hints
}

func (s *EvaluationScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case openedMsg:
		return s.handleOpened(msg)
	case answeredMsg:
		return s.handleAnswered(msg)
	case movedMsg:
		return s.handleMoved(msg)
	case completedMsg:
		return s.handleCompleted(msg)
	case saveTickMsg:
		return s.handleSaveTick()
	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.loaded && s.view.Question.Kind == model.KindFreeText {
		var cmd tea.Cmd
		s.text, cmd = s.text.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *EvaluationScreen) open() tea.Cmd {
	ctrl, ctx, sectionID, retake := s.ctrl, s.ctx, s.sectionID, s.retake
	return func() tea.Msg {
		var (
			v   session.View
			err error
		)
		if retake {
			v, err = ctrl.Retake(ctx, sectionID)
		} else {
			v, err = ctrl.Open(ctx, sectionID)
		}
		return openedMsg{View: v, Err: err}
	}
}

func (s *EvaluationScreen) handleOpened(msg openedMsg) (screen.Screen, tea.Cmd) {
	switch {
	case errors.Is(msg.Err, session.ErrEvaluationCompleted):
		return s, s.showResult(msg.View.Evaluation)
	case errors.Is(msg.Err, session.ErrSessionClosed):
		return s, nil
	case errors.Is(msg.Err, session.ErrEmptyQuestionnaire):
		s.errMsg = "This section has no questions yet."
		return s, nil
	case msg.Err != nil:
		s.errMsg = describe(msg.Err)
		return s, nil
	}

	s.errMsg = ""
	s.loaded = true
	if msg.View.Section.Name != "" {
		s.name = msg.View.Section.Name
	}
	return s, s.apply(msg.View)
}

func (s *EvaluationScreen) handleAnswered(msg answeredMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.notice = describe(msg.Err)
		s.refresh()
		// The rejected value was not cached; show the cached one again.
		// Typed free text stays so it can be corrected.
		if s.view.Question.Kind != model.KindFreeText {
			s.resetInput()
		}
		return s, nil
	}
	return s, s.apply(msg.View)
}

func (s *EvaluationScreen) handleMoved(msg movedMsg) (screen.Screen, tea.Cmd) {
	s.busy = false
	var required *session.AnswerRequiredError
	switch {
	case errors.As(msg.Err, &required):
		s.notice = "Please answer this question before moving on."
	case msg.Err != nil:
		s.notice = describe(msg.Err)
	}
	// The student may have jumped or answered while this was in flight.
	v := msg.View
	if s.loaded {
		v = s.ctrl.Current()
	}
	return s, s.apply(v)
}

func (s *EvaluationScreen) handleCompleted(msg completedMsg) (screen.Screen, tea.Cmd) {
	s.busy = false
	var required *session.AnswerRequiredError
	switch {
	case msg.Err == nil, errors.Is(msg.Err, session.ErrEvaluationCompleted):
		return s, s.showResult(msg.Evaluation)
	case errors.Is(msg.Err, session.ErrIncompleteAnswer):
		s.notice = "Answer this question before finishing."
	case errors.As(msg.Err, &required):
		s.notice = "Some required questions are still unanswered."
		if v, err := s.ctrl.GoTo(required.Index); err == nil {
			return s, s.apply(v)
		}
	default:
		s.notice = describe(msg.Err)
	}
	s.refresh()
	return s, nil
}

func (s *EvaluationScreen) handleSaveTick() (screen.Screen, tea.Cmd) {
	s.ticking = false
	if !s.loaded {
		return s, nil
	}
	s.refresh()
	return s, s.tickIfSaving()
}

func (s *EvaluationScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.errMsg != "" {
		if key == "r" || key == "R" {
			s.errMsg = ""
			return s, s.open()
		}
		return s, nil
	}
	if !s.loaded {
		return s, nil
	}

	// Only one waiting action at a time. Jumps and answers stay live.
	switch key {
	case "tab":
		if s.busy {
			return s, nil
		}
		s.notice = ""
		return s, s.next()
	case "shift+tab":
		if s.busy {
			return s, nil
		}
		s.notice = ""
		return s, s.previous()
	case "ctrl+r":
		if !s.busy && s.view.Submit == session.SubmitFailed {
			s.notice = ""
			return s, s.retry()
		}
		return s, nil
	}

	if idx, ok := jumpIndex(key); ok {
		if v, err := s.ctrl.GoTo(idx); err == nil {
			s.notice = ""
			return s, s.apply(v)
		}
		return s, nil
	}

	switch s.view.Question.Kind {
	case model.KindScale:
		var chose bool
		s.scale, chose = s.scale.Update(msg)
		if n, ok := s.scale.Value(); chose && ok {
			return s, s.answer(model.Int(n))
		}
	case model.KindMultipleChoice:
		var chose bool
		s.choice, chose = s.choice.Update(msg)
		if opt, ok := s.choice.Value(); chose && ok {
			return s, s.answer(model.Text(opt))
		}
	case model.KindFreeText:
		if key == "enter" {
			return s, s.answer(model.Text(s.text.Value()))
		}
		var cmd tea.Cmd
		s.text, cmd = s.text.Update(msg)
		return s, cmd
	}
	return s, nil
}

// jumpIndex maps alt+1..alt+9 to question indexes.
func jumpIndex(key string) (int, bool) {
	if len(key) == 5 && key[:4] == "alt+" && key[4] >= '1' && key[4] <= '9' {
		return int(key[4] - '1'), true
	}
	return 0, false
}

func (s *EvaluationScreen) answer(v model.Value) tea.Cmd {
	s.notice = ""
	ctrl, ctx := s.ctrl, s.ctx
	return func() tea.Msg {
		view, err := ctrl.AnswerCurrent(ctx, v)
		return answeredMsg{View: view, Err: err}
	}
}

// pendingText returns the typed free-text answer when it differs from the
// cached one.
func (s *EvaluationScreen) pendingText() (model.Value, bool) {
	if s.view.Question.Kind != model.KindFreeText {
		return model.Value{}, false
	}
	typed := model.Text(s.text.Value())
	if s.view.HasAnswer && s.view.Answer.Equal(typed) {
		return model.Value{}, false
	}
	if !s.view.HasAnswer && typed.IsEmpty() {
		return model.Value{}, false
	}
	return typed, true
}

func (s *EvaluationScreen) next() tea.Cmd {
	s.busy = true
	ctrl, ctx := s.ctrl, s.ctx
	text, dirty := s.pendingText()
	last := s.view.IsLast
	return func() tea.Msg {
		if dirty {
			if v, err := ctrl.AnswerCurrent(ctx, text); err != nil {
				return movedMsg{View: v, Err: err}
			}
		}
		if last {
			e, err := ctrl.Complete(ctx)
			return completedMsg{Evaluation: e, Err: err}
		}
		v, err := ctrl.GoNext(ctx)
		return movedMsg{View: v, Err: err}
	}
}

func (s *EvaluationScreen) previous() tea.Cmd {
	ctrl, ctx := s.ctrl, s.ctx
	text, dirty := s.pendingText()
	return func() tea.Msg {
		var saveErr error
		if dirty {
			// Rejected free text is dropped on the way back and reported.
			_, saveErr = ctrl.AnswerCurrent(ctx, text)
		}
		v, err := ctrl.GoPrevious()
		if err == nil {
			err = saveErr
		}
		return movedMsg{View: v, Err: err}
	}
}

func (s *EvaluationScreen) retry() tea.Cmd {
	s.busy = true
	ctrl, ctx := s.ctrl, s.ctx
	return func() tea.Msg {
		v, err := ctrl.Retry(ctx)
		return movedMsg{View: v, Err: err}
	}
}

func (s *EvaluationScreen) showResult(e model.Evaluation) tea.Cmd {
	deps, section := s.deps, model.Section{ID: s.sectionID, Name: s.name}
	next := result.New(e, s.name, func() screen.Screen {
		return New(deps, section, true)
	})
	return func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

// refresh re-reads the controller state without touching the inputs.
func (s *EvaluationScreen) refresh() {
	if s.loaded {
		s.view = s.ctrl.Current()
	}
}

// apply installs a new view, rebuilding the input components when the
// question changed, and keeps the save indicator ticking.
func (s *EvaluationScreen) apply(v session.View) tea.Cmd {
	if v.Phase != session.PhaseActive && v.Phase != session.PhaseCompleting {
		s.refresh()
		return nil
	}
	s.view = v

	var cmd tea.Cmd
	if v.Question.ID != s.inputFor {
		cmd = s.resetInput()
	}
	return tea.Batch(cmd, s.tickIfSaving())
}

func (s *EvaluationScreen) resetInput() tea.Cmd {
	q, v := s.view.Question, s.view
	s.inputFor = q.ID
	switch q.Kind {
	case model.KindScale:
		n, ok := v.Answer.AsInt()
		s.scale = components.NewScale(q.Min, q.Max, n, v.HasAnswer && ok)
	case model.KindMultipleChoice:
		opt, _ := v.Answer.AsText()
		s.choice = components.NewMultiChoice(q.Options, opt)
	case model.KindFreeText:
		text, _ := v.Answer.AsText()
		s.text = components.NewTextInput("Type your answer...", text, 2000)
		return s.text.Init()
	}
	return nil
}

func (s *EvaluationScreen) tickIfSaving() tea.Cmd {
	if s.ticking {
		return nil
	}
	saving := false
	for _, d := range s.view.Dots {
		if d.Submit == session.SubmitPending {
			saving = true
			break
		}
	}
	if !saving {
		return nil
	}
	s.ticking = true
	return tea.Tick(saveTickInterval, func(t time.Time) tea.Msg {
		return saveTickMsg(t)
	})
}

// describe turns controller and backend errors into short messages.
func describe(err error) string {
	var invalid *session.InvalidAnswerError
	var rejected *backend.ErrRejected
	switch {
	case errors.As(err, &invalid):
		return invalid.Error()
	case errors.As(err, &rejected):
		if rejected.Message != "" {
			return "The server rejected the answer: " + rejected.Message
		}
		return "The server rejected the answer."
	case backend.IsUnauthorized(err):
		return "Your login has expired. Run `selfeval login` and try again."
	case backend.IsUnavailable(err):
		return "The server is not reachable right now. Your answers are kept locally."
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	}
	return err.Error()
}
