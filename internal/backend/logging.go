package backend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/store"
)

// LoggingClient is a decorator that records every backend call in the
// request log and the structured log.
type LoggingClient struct {
	inner  Client
	events store.EventRepo
	log    zerolog.Logger
}

// WithLogging wraps a Client with request logging.
func WithLogging(c Client, events store.EventRepo, log zerolog.Logger) Client {
	return &LoggingClient{inner: c, events: events, log: log}
}

type callInfo struct {
	op           string
	evaluationID string
	questionID   string
}

// record runs call with a fresh request id and logs its outcome.
func record[T any](ctx context.Context, l *LoggingClient, info callInfo, call func(context.Context) (T, error)) (T, error) {
	id := RequestIDFrom(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = WithRequestID(ctx, id)
	}

	start := time.Now()
	v, err := call(ctx)
	latency := time.Since(start)

	data := store.RequestEventData{
		Op:           info.op,
		RequestID:    id,
		EvaluationID: info.evaluationID,
		QuestionID:   info.questionID,
		LatencyMs:    latency.Milliseconds(),
		Success:      err == nil,
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	ev := l.log.Debug()
	if err != nil {
		ev = l.log.Warn().Err(err)
	}
	ev.Str("op", info.op).
		Str("request_id", id).
		Str("evaluation", info.evaluationID).
		Str("question", info.questionID).
		Dur("latency", latency).
		Msg("backend call")

	// Log the event but don't fail the request if logging fails.
	if logErr := l.events.AppendRequest(context.WithoutCancel(ctx), data); logErr != nil {
		l.log.Error().Err(logErr).Str("op", info.op).Msg("failed to record request event")
	}
	return v, err
}

func (l *LoggingClient) CreateEvaluation(ctx context.Context, sectionID string) (*model.Evaluation, error) {
	return record(ctx, l, callInfo{op: OpCreateEvaluation}, func(ctx context.Context) (*model.Evaluation, error) {
		return l.inner.CreateEvaluation(ctx, sectionID)
	})
}

func (l *LoggingClient) ListEvaluations(ctx context.Context, sectionID string) ([]model.Evaluation, error) {
	return record(ctx, l, callInfo{op: OpListEvaluations}, func(ctx context.Context) ([]model.Evaluation, error) {
		return l.inner.ListEvaluations(ctx, sectionID)
	})
}

func (l *LoggingClient) StartEvaluation(ctx context.Context, evaluationID string) (*model.Evaluation, error) {
	return record(ctx, l, callInfo{op: OpStartEvaluation, evaluationID: evaluationID}, func(ctx context.Context) (*model.Evaluation, error) {
		return l.inner.StartEvaluation(ctx, evaluationID)
	})
}

func (l *LoggingClient) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAck, error) {
	info := callInfo{op: OpSubmitAnswer, evaluationID: req.EvaluationID, questionID: req.QuestionID}
	return record(ctx, l, info, func(ctx context.Context) (*SubmitAck, error) {
		return l.inner.SubmitAnswer(ctx, req)
	})
}

func (l *LoggingClient) CompleteEvaluation(ctx context.Context, evaluationID string) (*model.Evaluation, error) {
	return record(ctx, l, callInfo{op: OpCompleteEvaluation, evaluationID: evaluationID}, func(ctx context.Context) (*model.Evaluation, error) {
		return l.inner.CompleteEvaluation(ctx, evaluationID)
	})
}

func (l *LoggingClient) FetchQuestions(ctx context.Context, questionnaireID string) ([]model.Question, error) {
	return record(ctx, l, callInfo{op: OpFetchQuestions}, func(ctx context.Context) ([]model.Question, error) {
		return l.inner.FetchQuestions(ctx, questionnaireID)
	})
}

func (l *LoggingClient) ListSections(ctx context.Context) ([]model.Section, error) {
	return record(ctx, l, callInfo{op: OpListSections}, func(ctx context.Context) ([]model.Section, error) {
		return l.inner.ListSections(ctx)
	})
}

func (l *LoggingClient) GetSection(ctx context.Context, sectionID string) (*model.Section, error) {
	return record(ctx, l, callInfo{op: OpGetSection}, func(ctx context.Context) (*model.Section, error) {
		return l.inner.GetSection(ctx, sectionID)
	})
}
