package store

import (
	"context"
	"time"

	"github.com/selfeval/selfeval/internal/model"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	Op    string    // exact op match ("" = all)
	From  time.Time // timestamp >= From
}

// KVRepo is a small keyed string store.
type KVRepo interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Draft is an answer persisted locally before the backend acknowledged it.
type Draft struct {
	EvaluationID string
	QuestionID   string
	Value        model.Value
	Revision     int64
	Acked        bool
	UpdatedAt    time.Time
}

// DraftRepo persists in-progress answers across restarts.
type DraftRepo interface {
	// SaveDraft inserts or replaces the draft for its (evaluation, question)
	// and marks it unacknowledged.
	SaveDraft(ctx context.Context, d Draft) error

	// AckDraft marks the draft acknowledged if its revision still matches.
	AckDraft(ctx context.Context, evaluationID, questionID string, revision int64) error

	// Drafts returns every draft of an evaluation.
	Drafts(ctx context.Context, evaluationID string) ([]Draft, error)

	// ClearDrafts removes every draft of an evaluation.
	ClearDrafts(ctx context.Context, evaluationID string) error
}

// RequestEventData captures one backend call.
type RequestEventData struct {
	Op           string
	RequestID    string
	EvaluationID string
	QuestionID   string
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// RequestEvent is a stored RequestEventData.
type RequestEvent struct {
	ID        int
	Timestamp time.Time
	RequestEventData
}

// RequestStat aggregates the request log per operation.
type RequestStat struct {
	Op           string
	Calls        int
	Failures     int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to the request log.
type EventRepo interface {
	AppendRequest(ctx context.Context, data RequestEventData) error
	QueryRequests(ctx context.Context, opts QueryOpts) ([]RequestEvent, error)
	RequestStats(ctx context.Context) ([]RequestStat, error)
}
