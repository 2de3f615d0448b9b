package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/selfeval/selfeval/internal/backend"
	"github.com/selfeval/selfeval/internal/model"
)

// Lifecycle owns one evaluation's status and the backend calls that move
// it: NOT_CREATED → PENDING → IN_PROGRESS → COMPLETED. It never retries a
// failed call and never lets the status regress.
type Lifecycle struct {
	client backend.Client
	log    zerolog.Logger

	startGroup singleflight.Group

	mu        sync.Mutex
	sectionID string
	eval      model.Evaluation
	resolved  bool
}

// NewLifecycle creates a Lifecycle with no evaluation (NOT_CREATED).
func NewLifecycle(client backend.Client, log zerolog.Logger) *Lifecycle {
	return &Lifecycle{client: client, log: log}
}

// Status returns the current status; NOT_CREATED before Resolve.
func (l *Lifecycle) Status() model.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.resolved {
		return model.StatusNotCreated
	}
	return l.eval.Status
}

// Evaluation returns the latest known evaluation record.
func (l *Lifecycle) Evaluation() model.Evaluation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.eval
}

// Resolve finds the user's evaluation for sectionID, creating one when none
// is open. An IN_PROGRESS attempt wins over a PENDING one. When only
// COMPLETED attempts exist Resolve fails with ErrEvaluationCompleted unless
// retake is set, in which case a new attempt is created.
func (l *Lifecycle) Resolve(ctx context.Context, sectionID string, retake bool) (model.Evaluation, error) {
	existing, err := l.client.ListEvaluations(ctx, sectionID)
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("list evaluations: %w", err)
	}

	var open, completed *model.Evaluation
	for i := range existing {
		e := &existing[i]
		if e.Section.ID() != "" && e.Section.ID() != sectionID {
			continue
		}
		switch e.Status {
		case model.StatusInProgress:
			if open == nil || open.Status != model.StatusInProgress || e.CreatedAt.After(open.CreatedAt) {
				open = e
			}
		case model.StatusPending:
			if open == nil || (open.Status == model.StatusPending && e.CreatedAt.After(open.CreatedAt)) {
				open = e
			}
		case model.StatusCompleted:
			if completed == nil || e.CreatedAt.After(completed.CreatedAt) {
				completed = e
			}
		}
	}

	switch {
	case open != nil:
		l.adopt(sectionID, *open)
		l.log.Debug().Str("evaluation", open.ID).Str("status", string(open.Status)).Msg("resumed evaluation")
		return *open, nil
	case completed != nil && !retake:
		l.adopt(sectionID, *completed)
		return *completed, ErrEvaluationCompleted
	}

	created, err := l.client.CreateEvaluation(ctx, sectionID)
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("create evaluation: %w", err)
	}
	l.adopt(sectionID, *created)
	l.log.Info().Str("evaluation", created.ID).Str("section", sectionID).Msg("created evaluation")
	return *created, nil
}

// EnsureStarted moves a PENDING evaluation to IN_PROGRESS. It is a no-op
// while IN_PROGRESS, and concurrent callers share a single start call.
func (l *Lifecycle) EnsureStarted(ctx context.Context) error {
	switch l.Status() {
	case model.StatusInProgress:
		return nil
	case model.StatusCompleted:
		return ErrEvaluationCompleted
	case model.StatusNotCreated:
		return ErrNotResolved
	}

	id := l.Evaluation().ID
	_, err, _ := l.startGroup.Do(id, func() (any, error) {
		if l.Status() == model.StatusInProgress {
			return nil, nil
		}
		started, err := l.client.StartEvaluation(ctx, id)
		if err != nil {
			return nil, l.recoverConflict(ctx, id, err)
		}
		l.adopt(l.sectionID, *started)
		l.log.Info().Str("evaluation", id).Msg("started evaluation")
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("start evaluation: %w", err)
	}
	return nil
}

// recoverConflict handles a 409 on start: another client may have started
// the attempt already, so re-read it and accept IN_PROGRESS.
func (l *Lifecycle) recoverConflict(ctx context.Context, id string, startErr error) error {
	var rej *backend.ErrRejected
	if !errors.As(startErr, &rej) || rej.Status != http.StatusConflict {
		return startErr
	}
	list, err := l.client.ListEvaluations(ctx, l.sectionID)
	if err != nil {
		return startErr
	}
	for _, e := range list {
		if e.ID == id && e.Status == model.StatusInProgress {
			l.adopt(l.sectionID, e)
			return nil
		}
	}
	return startErr
}

// Complete issues the complete call. lastAnswered tells whether the final
// question of the sequence holds a non-empty answer; when it does not,
// Complete fails with ErrIncompleteAnswer and calls nothing. before runs
// next (flushing pending answers) and its error aborts completion.
func (l *Lifecycle) Complete(ctx context.Context, lastAnswered bool, before func(context.Context) error) (model.Evaluation, error) {
	if l.Status() == model.StatusCompleted {
		return l.Evaluation(), ErrEvaluationCompleted
	}
	if !lastAnswered {
		return model.Evaluation{}, ErrIncompleteAnswer
	}
	if err := l.EnsureStarted(ctx); err != nil {
		return model.Evaluation{}, err
	}
	if before != nil {
		if err := before(ctx); err != nil {
			return model.Evaluation{}, err
		}
	}

	id := l.Evaluation().ID
	done, err := l.client.CompleteEvaluation(ctx, id)
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("complete evaluation: %w", err)
	}
	l.adopt(l.sectionID, *done)
	l.log.Info().Str("evaluation", id).Str("level", string(done.Level)).Msg("completed evaluation")
	return l.Evaluation(), nil
}

// adopt records e unless it would move the same evaluation backwards.
func (l *Lifecycle) adopt(sectionID string, e model.Evaluation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resolved && l.eval.ID == e.ID && model.Regresses(l.eval.Status, e.Status) {
		l.log.Warn().Str("evaluation", e.ID).
			Str("from", string(l.eval.Status)).Str("to", string(e.Status)).
			Msg("ignoring status regression")
		return
	}
	if e.Section.IsZero() {
		e.Section = model.RefTo[model.Section](sectionID)
	}
	l.sectionID = sectionID
	l.eval = e
	l.resolved = true
}
