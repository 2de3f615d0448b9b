package session

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/selfeval/selfeval/internal/backend"
	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/store"
)

// SubmitState is the save state of one question's answer.
type SubmitState int

const (
	SubmitNone    SubmitState = iota // nothing submitted this session
	SubmitPending                    // latest revision queued or in flight
	SubmitSaved                      // latest revision acknowledged
	SubmitFailed                     // latest revision failed
)

func (s SubmitState) String() string {
	switch s {
	case SubmitPending:
		return "saving"
	case SubmitSaved:
		return "saved"
	case SubmitFailed:
		return "not saved"
	}
	return ""
}

type submission struct {
	ctx        context.Context
	questionID string
	value      model.Value
	revision   int64
}

// answerQueue serializes the submissions of one question.
type answerQueue struct {
	latest  submission
	acked   int64
	failed  int64
	err     error
	score   *float64
	pending []submission
	running bool
	idle    chan struct{} // closed whenever running is false
}

// Submitter sends answers to the backend. Submissions for one question run
// strictly in order; each carries a session-wide increasing revision and
// acknowledgements for anything but a question's latest revision are
// discarded. Different questions proceed independently. Work in flight is
// never cancelled by the caller going away.
type Submitter struct {
	client       backend.Client
	drafts       store.DraftRepo
	log          zerolog.Logger
	evaluationID string

	wg sync.WaitGroup

	mu     sync.Mutex
	rev    int64
	queues map[string]*answerQueue
	closed bool
}

// NewSubmitter creates a Submitter for one evaluation. drafts may be nil.
// Revisions continue after startRevision.
func NewSubmitter(client backend.Client, drafts store.DraftRepo, log zerolog.Logger, evaluationID string, startRevision int64) *Submitter {
	return &Submitter{
		client:       client,
		drafts:       drafts,
		log:          log,
		evaluationID: evaluationID,
		rev:          startRevision,
		queues:       make(map[string]*answerQueue),
	}
}

// Submit persists v as a draft and queues it for questionID. It returns the
// revision assigned to the submission without waiting for the backend.
func (s *Submitter) Submit(ctx context.Context, questionID string, v model.Value) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rev++
	sub := submission{
		ctx:        context.WithoutCancel(ctx),
		questionID: questionID,
		value:      v,
		revision:   s.rev,
	}

	if s.drafts != nil {
		err := s.drafts.SaveDraft(sub.ctx, store.Draft{
			EvaluationID: s.evaluationID,
			QuestionID:   questionID,
			Value:        v,
			Revision:     sub.revision,
		})
		if err != nil {
			s.log.Error().Err(err).Str("question", questionID).Msg("failed to save draft")
		}
	}

	q := s.queue(questionID)
	q.latest = sub
	q.pending = append(q.pending, sub)
	s.startLocked(q)
	return sub.revision
}

// Flush waits until questionID's latest revision is settled. A failed
// latest revision is submitted once more; if that fails too its error is
// returned. A question never submitted flushes immediately.
func (s *Submitter) Flush(ctx context.Context, questionID string) error {
	retried := false
	for {
		s.mu.Lock()
		q, ok := s.queues[questionID]
		if !ok {
			s.mu.Unlock()
			return nil
		}
		if q.running {
			idle := q.idle
			s.mu.Unlock()
			select {
			case <-idle:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if q.acked >= q.latest.revision {
			s.mu.Unlock()
			return nil
		}
		if retried {
			err := q.err
			s.mu.Unlock()
			if err == nil {
				err = errors.New("answer not saved")
			}
			return err
		}

		retried = true
		again := q.latest
		again.ctx = context.WithoutCancel(ctx)
		q.pending = append(q.pending, again)
		s.startLocked(q)
		s.mu.Unlock()
	}
}

// FlushAll flushes every question concurrently and returns the first error.
func (s *Submitter) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.queues))
	for id := range s.queues {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	slices.Sort(ids)

	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error { return s.Flush(ctx, id) })
	}
	return g.Wait()
}

// State returns the save state of questionID.
func (s *Submitter) State(questionID string) SubmitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[questionID]
	switch {
	case !ok:
		return SubmitNone
	case q.acked >= q.latest.revision:
		return SubmitSaved
	case q.running:
		return SubmitPending
	case q.failed == q.latest.revision:
		return SubmitFailed
	}
	return SubmitPending
}

// Err returns the failure of questionID's latest revision, if any.
func (s *Submitter) Err(questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[questionID]; ok && q.failed == q.latest.revision {
		return q.err
	}
	return nil
}

// Score returns the backend's per-answer score for the latest acknowledged
// revision, when it sent one.
func (s *Submitter) Score(questionID string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[questionID]; ok && q.score != nil {
		return *q.score, true
	}
	return 0, false
}

// Unsettled counts questions whose latest revision is not acknowledged.
func (s *Submitter) Unsettled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, q := range s.queues {
		if q.acked < q.latest.revision {
			n++
		}
	}
	return n
}

// Detach marks the owning session closed. Queued work keeps running; its
// failures are logged at error level from then on.
func (s *Submitter) Detach() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Wait blocks until no submission is queued or in flight.
func (s *Submitter) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Submitter) queue(questionID string) *answerQueue {
	q, ok := s.queues[questionID]
	if !ok {
		idle := make(chan struct{})
		close(idle)
		q = &answerQueue{idle: idle}
		s.queues[questionID] = q
	}
	return q
}

func (s *Submitter) startLocked(q *answerQueue) {
	if q.running {
		return
	}
	q.running = true
	q.idle = make(chan struct{})
	s.wg.Add(1)
	go s.drain(q)
}

func (s *Submitter) drain(q *answerQueue) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			close(q.idle)
			s.mu.Unlock()
			return
		}
		sub := q.pending[0]
		q.pending = q.pending[1:]
		s.mu.Unlock()

		ack, err := s.client.SubmitAnswer(sub.ctx, backend.SubmitAnswerRequest{
			EvaluationID: s.evaluationID,
			QuestionID:   sub.questionID,
			Value:        sub.value,
		})
		if err == nil && !ack.Accepted {
			err = &backend.ErrRejected{Op: backend.OpSubmitAnswer, Message: ack.Message}
		}
		s.settle(q, sub, ack, err)
	}
}

func (s *Submitter) settle(q *answerQueue, sub submission, ack *backend.SubmitAck, err error) {
	s.mu.Lock()
	stale := sub.revision != q.latest.revision
	closed := s.closed
	switch {
	case stale:
	case err != nil:
		q.failed = sub.revision
		q.err = err
	default:
		q.acked = sub.revision
		q.failed = 0
		q.err = nil
		q.score = ack.Score
	}
	s.mu.Unlock()

	log := s.log.With().Str("question", sub.questionID).Int64("revision", sub.revision).Logger()
	switch {
	case stale:
		log.Debug().Err(err).Msg("discarding stale acknowledgement")
	case err != nil && closed:
		log.Error().Err(err).Msg("answer submission failed after session closed")
	case err != nil:
		log.Warn().Err(err).Msg("answer submission failed")
	default:
		log.Debug().Msg("answer saved")
		if s.drafts != nil {
			if err := s.drafts.AckDraft(sub.ctx, s.evaluationID, sub.questionID, sub.revision); err != nil {
				log.Error().Err(err).Msg("failed to acknowledge draft")
			}
		}
	}
}
