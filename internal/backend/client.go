package backend

import (
	"context"

	"github.com/selfeval/selfeval/internal/model"
)

// Operation names, used in errors and the request log.
const (
	OpCreateEvaluation   = "create_evaluation"
	OpListEvaluations    = "list_evaluations"
	OpStartEvaluation    = "start_evaluation"
	OpSubmitAnswer       = "submit_answer"
	OpCompleteEvaluation = "complete_evaluation"
	OpFetchQuestions     = "fetch_questions"
	OpListSections       = "list_sections"
	OpGetSection         = "get_section"
	OpLogin              = "login"
	OpRefresh            = "refresh"
)

// Client is the REST backend as seen by the evaluation session.
// Implementations never retry mutations on their own.
type Client interface {
	// CreateEvaluation creates a PENDING evaluation for the current user.
	CreateEvaluation(ctx context.Context, sectionID string) (*model.Evaluation, error)

	// ListEvaluations returns the current user's evaluations, optionally
	// filtered by section. An empty sectionID lists everything.
	ListEvaluations(ctx context.Context, sectionID string) ([]model.Evaluation, error)

	// StartEvaluation moves a PENDING evaluation to IN_PROGRESS.
	StartEvaluation(ctx context.Context, evaluationID string) (*model.Evaluation, error)

	// SubmitAnswer records (or overwrites) one answer.
	SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAck, error)

	// CompleteEvaluation moves an IN_PROGRESS evaluation to COMPLETED and
	// returns it with the computed score fields.
	CompleteEvaluation(ctx context.Context, evaluationID string) (*model.Evaluation, error)

	// FetchQuestions returns a questionnaire's questions.
	FetchQuestions(ctx context.Context, questionnaireID string) ([]model.Question, error)

	ListSections(ctx context.Context) ([]model.Section, error)
	GetSection(ctx context.Context, sectionID string) (*model.Section, error)
}

// SubmitAnswerRequest is the payload of a single answer submission.
type SubmitAnswerRequest struct {
	EvaluationID string      `json:"-"`
	QuestionID   string      `json:"questionId"`
	Value        model.Value `json:"value"`
}

// SubmitAck is the backend's acknowledgement of a submitted answer.
type SubmitAck struct {
	Accepted bool     `json:"accepted"`
	Score    *float64 `json:"score,omitempty"`
	Message  string   `json:"message,omitempty"`
}
