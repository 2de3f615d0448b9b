package backend

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/selfeval/selfeval/internal/model"
)

// RetryConfig configures retry behavior for transient read failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// RetryClient is a decorator that retries read operations on transient
// errors with exponential backoff and jitter. Mutations (create, start,
// submit, complete) pass straight through: the session decides when those
// are repeated.
type RetryClient struct {
	inner  Client
	config RetryConfig
}

// WithRetry wraps a Client with read retries.
func WithRetry(c Client, cfg RetryConfig) Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryClient{inner: c, config: cfg}
}

func (r *RetryClient) CreateEvaluation(ctx context.Context, sectionID string) (*model.Evaluation, error) {
	return r.inner.CreateEvaluation(ctx, sectionID)
}

func (r *RetryClient) StartEvaluation(ctx context.Context, evaluationID string) (*model.Evaluation, error) {
	return r.inner.StartEvaluation(ctx, evaluationID)
}

func (r *RetryClient) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAck, error) {
	return r.inner.SubmitAnswer(ctx, req)
}

func (r *RetryClient) CompleteEvaluation(ctx context.Context, evaluationID string) (*model.Evaluation, error) {
	return r.inner.CompleteEvaluation(ctx, evaluationID)
}

func (r *RetryClient) ListEvaluations(ctx context.Context, sectionID string) ([]model.Evaluation, error) {
	return retry(ctx, r, func() ([]model.Evaluation, error) {
		return r.inner.ListEvaluations(ctx, sectionID)
	})
}

func (r *RetryClient) FetchQuestions(ctx context.Context, questionnaireID string) ([]model.Question, error) {
	return retry(ctx, r, func() ([]model.Question, error) {
		return r.inner.FetchQuestions(ctx, questionnaireID)
	})
}

func (r *RetryClient) ListSections(ctx context.Context) ([]model.Section, error) {
	return retry(ctx, r, func() ([]model.Section, error) {
		return r.inner.ListSections(ctx)
	})
}

func (r *RetryClient) GetSection(ctx context.Context, sectionID string) (*model.Section, error) {
	return retry(ctx, r, func() (*model.Section, error) {
		return r.inner.GetSection(ctx, sectionID)
	})
}

func retry[T any](ctx context.Context, r *RetryClient, call func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	invalidRetried := false

	for attempt := range r.config.MaxAttempts {
		v, err := call()
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !shouldRetry(err, &invalidRetried) {
			return zero, err
		}
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(r.backoff(attempt, err)):
		}
	}
	return zero, lastErr
}

// shouldRetry determines if an error is retryable.
func shouldRetry(err error, invalidRetried *bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// A malformed body gets one more chance.
	var inv *ErrInvalidResponse
	if errors.As(err, &inv) {
		if *invalidRetried {
			return false
		}
		*invalidRetried = true
		return true
	}

	var unavail *ErrUnavailable
	return errors.As(err, &unavail)
}

// backoff computes the wait duration for the given attempt.
func (r *RetryClient) backoff(attempt int, err error) time.Duration {
	var unavail *ErrUnavailable
	if errors.As(err, &unavail) && unavail.RetryAfter > 0 {
		return unavail.RetryAfter
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// ±20% jitter.
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
