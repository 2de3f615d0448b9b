package backend

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/selfeval/selfeval/internal/model"
)

// Call is one request received by the Mock.
type Call struct {
	Op           string
	SectionID    string
	EvaluationID string
	QuestionID   string
	Value        model.Value
}

// Hook runs before the Mock handles a call. It may block, and a non-nil
// error is returned to the caller without touching the Mock's state.
type Hook func(ctx context.Context, call Call) error

// Mock is a deterministic in-memory backend for tests and offline mode.
// It enforces the evaluation status machine, records every call in order
// and computes placeholder scores on completion.
type Mock struct {
	mu          sync.Mutex
	now         func() time.Time
	user        model.User
	sections    []model.Section
	questions   map[string][]model.Question // by questionnaire id
	evaluations []*model.Evaluation
	nextID      int
	calls       []Call
	failures    map[string][]error
	hooks       map[string]Hook
}

var _ Client = (*Mock)(nil)

// NewMock creates an empty Mock acting on behalf of user.
func NewMock(user model.User) *Mock {
	return &Mock{
		now:       time.Now,
		user:      user,
		questions: make(map[string][]model.Question),
		failures:  make(map[string][]error),
		hooks:     make(map[string]Hook),
	}
}

// AddSection registers a section and its questionnaire's questions. A
// section without a questionnaire reference gets one derived from its id.
func (m *Mock) AddSection(s model.Section, questions ...model.Question) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.Questionnaire.IsZero() {
		s.Questionnaire = model.RefTo[model.Questionnaire]("qn-" + s.ID)
	}
	qnID := s.Questionnaire.ID()
	for i := range questions {
		questions[i].Questionnaire = model.RefTo[model.Questionnaire](qnID)
	}
	m.sections = append(m.sections, s)
	m.questions[qnID] = append(m.questions[qnID], questions...)
}

// FailNext queues err as the result of the next call of op.
func (m *Mock) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], err)
}

// SetHook installs (or with nil, removes) the hook for op.
func (m *Mock) SetHook(op string, h Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h == nil {
		delete(m.hooks, op)
		return
	}
	m.hooks[op] = h
}

// Calls returns every call received so far, in order.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallCount returns how many calls of op were received.
func (m *Mock) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Evaluation returns a copy of the stored evaluation.
func (m *Mock) Evaluation(id string) (model.Evaluation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.find(id); e != nil {
		return copyEvaluation(e), true
	}
	return model.Evaluation{}, false
}

// begin records the call, runs the hook and pops a queued failure.
func (m *Mock) begin(ctx context.Context, c Call) error {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	hook := m.hooks[c.Op]
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, c); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return &ErrUnavailable{Op: c.Op, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if q := m.failures[c.Op]; len(q) > 0 {
		m.failures[c.Op] = q[1:]
		return q[0]
	}
	return nil
}

func (m *Mock) CreateEvaluation(ctx context.Context, sectionID string) (*model.Evaluation, error) {
	if err := m.begin(ctx, Call{Op: OpCreateEvaluation, SectionID: sectionID}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.section(sectionID) == nil {
		return nil, notFound(OpCreateEvaluation, "section", sectionID)
	}
	m.nextID++
	e := &model.Evaluation{
		ID:        fmt.Sprintf("ev-%d", m.nextID),
		User:      model.RefTo[model.User](m.user.ID),
		Section:   model.RefTo[model.Section](sectionID),
		Status:    model.StatusPending,
		CreatedAt: m.now(),
	}
	m.evaluations = append(m.evaluations, e)
	out := copyEvaluation(e)
	return &out, nil
}

func (m *Mock) ListEvaluations(ctx context.Context, sectionID string) ([]model.Evaluation, error) {
	if err := m.begin(ctx, Call{Op: OpListEvaluations, SectionID: sectionID}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Evaluation
	for _, e := range m.evaluations {
		if sectionID == "" || e.Section.ID() == sectionID {
			out = append(out, copyEvaluation(e))
		}
	}
	return out, nil
}

func (m *Mock) StartEvaluation(ctx context.Context, evaluationID string) (*model.Evaluation, error) {
	if err := m.begin(ctx, Call{Op: OpStartEvaluation, EvaluationID: evaluationID}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.find(evaluationID)
	if e == nil {
		return nil, notFound(OpStartEvaluation, "evaluation", evaluationID)
	}
	if e.Status != model.StatusPending {
		return nil, conflict(OpStartEvaluation, e.Status)
	}
	now := m.now()
	e.Status = model.StatusInProgress
	e.StartedAt = &now
	out := copyEvaluation(e)
	return &out, nil
}

func (m *Mock) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAck, error) {
	call := Call{Op: OpSubmitAnswer, EvaluationID: req.EvaluationID, QuestionID: req.QuestionID, Value: req.Value}
	if err := m.begin(ctx, call); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.find(req.EvaluationID)
	if e == nil {
		return nil, notFound(OpSubmitAnswer, "evaluation", req.EvaluationID)
	}
	if e.Status != model.StatusInProgress {
		return nil, conflict(OpSubmitAnswer, e.Status)
	}
	q, ok := m.question(e, req.QuestionID)
	if !ok {
		return nil, notFound(OpSubmitAnswer, "question", req.QuestionID)
	}
	if err := q.Validate(req.Value, false); err != nil {
		return &SubmitAck{Accepted: false, Message: err.Error()}, nil
	}

	score := placeholderScore(q, req.Value)
	answer := model.Answer{QuestionID: q.ID, Value: req.Value, Score: &score}
	if i := slices.IndexFunc(e.Answers, func(a model.Answer) bool { return a.QuestionID == q.ID }); i >= 0 {
		e.Answers[i] = answer
	} else {
		e.Answers = append(e.Answers, answer)
	}
	return &SubmitAck{Accepted: true, Score: &score}, nil
}

func (m *Mock) CompleteEvaluation(ctx context.Context, evaluationID string) (*model.Evaluation, error) {
	if err := m.begin(ctx, Call{Op: OpCompleteEvaluation, EvaluationID: evaluationID}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.find(evaluationID)
	if e == nil {
		return nil, notFound(OpCompleteEvaluation, "evaluation", evaluationID)
	}
	if e.Status != model.StatusInProgress {
		return nil, conflict(OpCompleteEvaluation, e.Status)
	}

	var total, maxScore float64
	for _, q := range m.sectionQuestions(e) {
		maxScore += q.Points
	}
	for _, a := range e.Answers {
		if a.Score != nil {
			total += *a.Score
		}
	}
	now := m.now()
	e.Status = model.StatusCompleted
	e.CompletedAt = &now
	e.TotalScore = &total
	e.MaxScore = &maxScore
	e.Level = levelFor(total, maxScore)

	out := copyEvaluation(e)
	return &out, nil
}

func (m *Mock) FetchQuestions(ctx context.Context, questionnaireID string) ([]model.Question, error) {
	if err := m.begin(ctx, Call{Op: OpFetchQuestions}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	qs, ok := m.questions[questionnaireID]
	if !ok {
		return nil, notFound(OpFetchQuestions, "questionnaire", questionnaireID)
	}
	return slices.Clone(qs), nil
}

func (m *Mock) ListSections(ctx context.Context) ([]model.Section, error) {
	if err := m.begin(ctx, Call{Op: OpListSections}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sections), nil
}

func (m *Mock) GetSection(ctx context.Context, sectionID string) (*model.Section, error) {
	if err := m.begin(ctx, Call{Op: OpGetSection, SectionID: sectionID}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.section(sectionID)
	if s == nil {
		return nil, notFound(OpGetSection, "section", sectionID)
	}
	out := *s
	return &out, nil
}

func (m *Mock) find(id string) *model.Evaluation {
	for _, e := range m.evaluations {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (m *Mock) section(id string) *model.Section {
	for i := range m.sections {
		if m.sections[i].ID == id {
			return &m.sections[i]
		}
	}
	return nil
}

func (m *Mock) sectionQuestions(e *model.Evaluation) []model.Question {
	s := m.section(e.Section.ID())
	if s == nil {
		return nil
	}
	return m.questions[s.Questionnaire.ID()]
}

func (m *Mock) question(e *model.Evaluation, id string) (model.Question, bool) {
	for _, q := range m.sectionQuestions(e) {
		if q.ID == id {
			return q, true
		}
	}
	return model.Question{}, false
}

func copyEvaluation(e *model.Evaluation) model.Evaluation {
	out := *e
	out.Answers = slices.Clone(e.Answers)
	return out
}

func notFound(op, what, id string) error {
	return &ErrRejected{Op: op, Status: http.StatusNotFound, Message: fmt.Sprintf("%s %s not found", what, id)}
}

func conflict(op string, status model.Status) error {
	return &ErrRejected{Op: op, Status: http.StatusConflict, Message: fmt.Sprintf("evaluation is %s", status)}
}

// placeholderScore stands in for the backend's scoring: the scale position,
// the option position (first option scores highest), or full points for any
// non-empty text.
func placeholderScore(q model.Question, v model.Value) float64 {
	switch q.Kind {
	case model.KindScale:
		n, _ := v.AsInt()
		if q.Max == q.Min {
			return q.Points
		}
		return q.Points * float64(n-q.Min) / float64(q.Max-q.Min)
	case model.KindMultipleChoice:
		s, _ := v.AsText()
		i := slices.Index(q.Options, s)
		if i < 0 {
			return 0
		}
		return q.Points * float64(len(q.Options)-i) / float64(len(q.Options))
	case model.KindFreeText:
		if !v.IsEmpty() {
			return q.Points
		}
	}
	return 0
}

func levelFor(total, maxScore float64) model.Level {
	if maxScore <= 0 {
		return model.LevelVeryLow
	}
	pct := total / maxScore * 100
	switch {
	case pct < 20:
		return model.LevelVeryLow
	case pct < 40:
		return model.LevelLow
	case pct < 60:
		return model.LevelMedium
	case pct < 80:
		return model.LevelHigh
	}
	return model.LevelVeryHigh
}
