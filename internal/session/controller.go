package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/selfeval/selfeval/internal/backend"
	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/store"
)

// Options configures a Controller.
type Options struct {
	Client backend.Client

	// Drafts persists answers locally until the backend acknowledges them.
	// Optional.
	Drafts store.DraftRepo

	Logger zerolog.Logger
}

// Controller drives one evaluation-taking session. It composes the answer
// cache, the question sequencer, the evaluation lifecycle and the answer
// submitter, and is the only entry point the presentation layer uses.
//
// Backend failures never touch the cursor or the cached answers, so the
// student can retry without re-entering anything.
type Controller struct {
	client backend.Client
	drafts store.DraftRepo
	log    zerolog.Logger
	id     string

	mu            sync.Mutex
	phase         Phase
	section       model.Section
	questionnaire model.Questionnaire
	lifecycle     *Lifecycle
	seq           *Sequencer
	cache         *AnswerCache
	sub           *Submitter
}

// New creates an idle Controller.
func New(opts Options) *Controller {
	id := uuid.NewString()
	return &Controller{
		client: opts.Client,
		drafts: opts.Drafts,
		log:    opts.Logger.With().Str("session", id).Logger(),
		id:     id,
		cache:  NewAnswerCache(),
	}
}

// ID returns the local session id used in logs.
func (c *Controller) ID() string { return c.id }

// Open resolves (or creates) the user's evaluation for sectionID, loads the
// questions, starts the evaluation and returns the first question. When the
// section only has a completed attempt it returns ErrEvaluationCompleted
// together with a view holding that attempt.
func (c *Controller) Open(ctx context.Context, sectionID string) (View, error) {
	return c.open(ctx, sectionID, false)
}

// Retake is Open, but creates a new attempt when the last one is completed.
func (c *Controller) Retake(ctx context.Context, sectionID string) (View, error) {
	return c.open(ctx, sectionID, true)
}

func (c *Controller) open(ctx context.Context, sectionID string, retake bool) (View, error) {
	c.mu.Lock()
	if c.phase != PhaseIdle {
		defer c.mu.Unlock()
		if c.phase == PhaseClosed {
			return c.viewLocked(), ErrSessionClosed
		}
		return c.viewLocked(), ErrAlreadyOpen
	}
	c.phase = PhaseLoading
	c.mu.Unlock()

	v, err := c.load(ctx, sectionID, retake)
	if err != nil && !errors.Is(err, ErrEvaluationCompleted) {
		c.mu.Lock()
		if c.phase == PhaseLoading {
			c.phase = PhaseIdle
		}
		c.mu.Unlock()
		c.log.Warn().Err(err).Str("section", sectionID).Msg("open failed")
	}
	return v, err
}

func (c *Controller) load(ctx context.Context, sectionID string, retake bool) (View, error) {
	section, err := c.client.GetSection(ctx, sectionID)
	if err != nil {
		return View{}, fmt.Errorf("load section: %w", err)
	}
	questionnaire, ok := section.Questionnaire.Inlined()
	if !ok {
		questionnaire = model.Questionnaire{ID: section.Questionnaire.ID()}
	}
	if questionnaire.ID == "" {
		return View{}, ErrEmptyQuestionnaire
	}

	questions, err := c.client.FetchQuestions(ctx, questionnaire.ID)
	if err != nil {
		return View{}, fmt.Errorf("load questions: %w", err)
	}
	seq, err := NewSequencer(questions)
	if err != nil {
		return View{}, err
	}

	lc := NewLifecycle(c.client, c.log)
	eval, err := lc.Resolve(ctx, sectionID, retake)
	if errors.Is(err, ErrEvaluationCompleted) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.phase != PhaseLoading {
			return c.viewLocked(), ErrSessionClosed
		}
		c.install(*section, questionnaire, lc, seq, nil)
		c.phase = PhaseCompleted
		return c.viewLocked(), err
	}
	if err != nil {
		return View{}, err
	}
	if err := lc.EnsureStarted(ctx); err != nil {
		return View{}, err
	}

	log := c.log.With().Str("evaluation", eval.ID).Logger()
	cache := NewAnswerCache()
	for _, a := range eval.Answers {
		i := seq.IndexOf(a.QuestionID)
		if i < 0 {
			continue
		}
		if err := seq.At(i).Validate(a.Value, false); err != nil {
			log.Warn().Err(err).Str("question", a.QuestionID).Msg("ignoring recorded answer that does not fit its question")
			continue
		}
		cache.Set(a.QuestionID, a.Value)
	}

	var drafts []store.Draft
	var startRev int64
	if c.drafts != nil {
		drafts, err = c.drafts.Drafts(ctx, eval.ID)
		if err != nil {
			log.Error().Err(err).Msg("failed to load drafts")
			drafts = nil
		}
		for _, d := range drafts {
			startRev = max(startRev, d.Revision)
		}
	}

	sub := NewSubmitter(c.client, c.drafts, log, eval.ID, startRev)
	for _, d := range drafts {
		i := seq.IndexOf(d.QuestionID)
		if i < 0 {
			continue
		}
		if d.Acked {
			if _, ok := cache.Get(d.QuestionID); !ok {
				cache.Set(d.QuestionID, d.Value)
			}
			continue
		}
		if err := seq.At(i).Validate(d.Value, false); err != nil {
			log.Warn().Err(err).Str("question", d.QuestionID).Msg("dropping draft that no longer fits its question")
			continue
		}
		cache.Set(d.QuestionID, d.Value)
		sub.Submit(ctx, d.QuestionID, d.Value)
		log.Info().Str("question", d.QuestionID).Msg("re-submitting unsaved draft")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseLoading {
		// Closed while loading.
		sub.Detach()
		return c.viewLocked(), ErrSessionClosed
	}
	c.install(*section, questionnaire, lc, seq, sub)
	c.cache = cache
	c.phase = PhaseActive
	log.Info().Int("questions", seq.Len()).Int("answered", cache.Len()).Msg("session opened")
	return c.viewLocked(), nil
}

func (c *Controller) install(section model.Section, qn model.Questionnaire, lc *Lifecycle, seq *Sequencer, sub *Submitter) {
	c.section = section
	c.questionnaire = qn
	c.lifecycle = lc
	c.seq = seq
	c.sub = sub
}

// Current returns the current view.
func (c *Controller) Current() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// AnswerCurrent validates v against the current question, caches it and
// queues its submission. It returns before the backend answers. An invalid
// value leaves the cache untouched.
func (c *Controller) AnswerCurrent(ctx context.Context, v model.Value) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.activeLocked(); err != nil {
		return c.viewLocked(), err
	}

	q := c.seq.Current()
	if err := q.Validate(v, c.questionnaire.IsRequired()); err != nil {
		return c.viewLocked(), &InvalidAnswerError{QuestionID: q.ID, Value: v, Err: err}
	}
	if old, ok := c.cache.Get(q.ID); ok && old.Equal(v) && c.sub.State(q.ID) != SubmitFailed {
		return c.viewLocked(), nil
	}

	c.cache.Set(q.ID, v)
	c.sub.Submit(ctx, q.ID, v)
	return c.viewLocked(), nil
}

// GoNext waits for the current answer to be saved (re-submitting it once if
// its last attempt failed) and then advances. A required, unanswered
// question fails with *AnswerRequiredError. On the last question it only
// saves.
func (c *Controller) GoNext(ctx context.Context) (View, error) {
	c.mu.Lock()
	if err := c.activeLocked(); err != nil {
		defer c.mu.Unlock()
		return c.viewLocked(), err
	}
	q, idx := c.seq.Current(), c.seq.Index()
	if c.questionnaire.IsRequired() && !c.cache.IsAnswered(q.ID) {
		defer c.mu.Unlock()
		return c.viewLocked(), &AnswerRequiredError{QuestionID: q.ID, Index: idx}
	}
	sub := c.sub
	c.mu.Unlock()

	flushErr := sub.Flush(ctx, q.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if flushErr != nil {
		return c.viewLocked(), fmt.Errorf("save answer: %w", flushErr)
	}
	if err := c.activeLocked(); err != nil {
		return c.viewLocked(), err
	}
	// The student may have jumped elsewhere while the answer was saving.
	if c.seq.Index() == idx {
		c.seq.Advance()
	}
	return c.viewLocked(), nil
}

// GoPrevious moves back one question. It never waits for the backend.
func (c *Controller) GoPrevious() (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.activeLocked(); err != nil {
		return c.viewLocked(), err
	}
	c.seq.Retreat()
	return c.viewLocked(), nil
}

// GoTo jumps to the question at index, ungated.
func (c *Controller) GoTo(index int) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.activeLocked(); err != nil {
		return c.viewLocked(), err
	}
	err := c.seq.JumpTo(index)
	return c.viewLocked(), err
}

// Retry re-submits the current question's answer if its latest submission
// failed, and waits for it.
func (c *Controller) Retry(ctx context.Context) (View, error) {
	c.mu.Lock()
	if err := c.activeLocked(); err != nil {
		defer c.mu.Unlock()
		return c.viewLocked(), err
	}
	q, sub := c.seq.Current(), c.sub
	c.mu.Unlock()

	err := sub.Flush(ctx, q.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked(), err
}

// Complete checks that the last question is answered (ErrIncompleteAnswer)
// and, for required questionnaires, that every other question is too
// (*AnswerRequiredError). It then waits until every answer is saved and
// completes the evaluation, returning the backend's scored record.
func (c *Controller) Complete(ctx context.Context) (model.Evaluation, error) {
	c.mu.Lock()
	if err := c.activeLocked(); err != nil {
		defer c.mu.Unlock()
		if errors.Is(err, ErrEvaluationCompleted) {
			return c.lifecycle.Evaluation(), err
		}
		return model.Evaluation{}, err
	}

	questions := c.seq.Questions()
	last := questions[len(questions)-1]
	lastAnswered := c.cache.IsAnswered(last.ID)

	var missing error
	if c.questionnaire.IsRequired() {
		for i, q := range questions[:len(questions)-1] {
			if !c.cache.IsAnswered(q.ID) {
				missing = &AnswerRequiredError{QuestionID: q.ID, Index: i}
				break
			}
		}
	}
	if lastAnswered {
		c.phase = PhaseCompleting
	}
	lc, sub := c.lifecycle, c.sub
	c.mu.Unlock()

	done, err := lc.Complete(ctx, lastAnswered, func(ctx context.Context) error {
		if missing != nil {
			return missing
		}
		if err := sub.FlushAll(ctx); err != nil {
			return fmt.Errorf("save answers: %w", err)
		}
		return nil
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if c.phase == PhaseCompleting {
			c.phase = PhaseActive
		}
		return model.Evaluation{}, err
	}
	if c.phase == PhaseCompleting {
		c.phase = PhaseCompleted
	}
	if c.drafts != nil {
		if err := c.drafts.ClearDrafts(context.WithoutCancel(ctx), done.ID); err != nil {
			c.log.Error().Err(err).Str("evaluation", done.ID).Msg("failed to clear drafts")
		}
	}
	return done, nil
}

// Evaluation returns the latest known evaluation record.
func (c *Controller) Evaluation() model.Evaluation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lifecycle == nil {
		return model.Evaluation{}
	}
	return c.lifecycle.Evaluation()
}

// Questions returns the ordered question list, or nil before Open.
func (c *Controller) Questions() []model.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq == nil {
		return nil
	}
	return c.seq.Questions()
}

// Answers returns a copy of the cached answers.
func (c *Controller) Answers() map[string]model.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Snapshot()
}

// Close ends the session. Submissions in flight are left to finish; their
// failures are logged. The answer cache is discarded.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseClosed {
		return nil
	}
	c.phase = PhaseClosed
	if c.sub != nil {
		if n := c.sub.Unsettled(); n > 0 {
			c.log.Info().Int("unsettled", n).Msg("closing with answers still being saved")
		}
		c.sub.Detach()
	}
	c.cache = NewAnswerCache()
	return nil
}

// Wait blocks until submissions left running by Close have finished.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	sub := c.sub
	c.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Wait(ctx)
}

func (c *Controller) activeLocked() error {
	switch c.phase {
	case PhaseActive:
		return nil
	case PhaseCompleting:
		return ErrCompleting
	case PhaseCompleted:
		return ErrEvaluationCompleted
	case PhaseClosed:
		return ErrSessionClosed
	}
	return ErrNotOpen
}

func (c *Controller) viewLocked() View {
	v := View{Phase: c.phase, Section: c.section}
	if c.lifecycle != nil {
		v.Evaluation = c.lifecycle.Evaluation()
	}
	if c.seq == nil {
		return v
	}

	q := c.seq.Current()
	v.Question = q
	v.Index = c.seq.Index()
	v.Total = c.seq.Len()
	v.Progress = c.seq.ProgressFraction()
	v.IsFirst = c.seq.IsFirst()
	v.IsLast = c.seq.IsLast()
	v.Required = c.questionnaire.IsRequired()
	v.Answer, v.HasAnswer = c.cache.Get(q.ID)
	v.Answered = c.cache.IsAnswered(q.ID)
	if c.sub != nil {
		v.Submit = c.sub.State(q.ID)
		v.SubmitErr = c.sub.Err(q.ID)
	}

	v.Dots = make([]Dot, c.seq.Len())
	for i := range v.Dots {
		id := c.seq.At(i).ID
		v.Dots[i] = Dot{Answered: c.cache.IsAnswered(id), Current: i == v.Index}
		if c.sub != nil {
			v.Dots[i].Submit = c.sub.State(id)
		}
	}
	return v
}
