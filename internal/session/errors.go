package session

import (
	"errors"
	"fmt"

	"github.com/selfeval/selfeval/internal/model"
)

var (
	// ErrEmptyQuestionnaire means the section has no questions to show.
	ErrEmptyQuestionnaire = errors.New("no questions available")

	// ErrAnswerRequired is matched by every *AnswerRequiredError.
	ErrAnswerRequired = errors.New("answer required")

	// ErrIncompleteAnswer means completion was requested while the last
	// question is unanswered.
	ErrIncompleteAnswer = errors.New("answer the last question before completing")

	// ErrEvaluationCompleted means the evaluation is already COMPLETED.
	ErrEvaluationCompleted = errors.New("evaluation already completed")

	// ErrNotResolved means no evaluation has been resolved yet.
	ErrNotResolved = errors.New("no evaluation resolved")

	ErrSessionClosed = errors.New("session closed")
	ErrNotOpen       = errors.New("session not open")
	ErrAlreadyOpen   = errors.New("session already open")
	ErrCompleting    = errors.New("completion in progress")
)

// IndexOutOfRangeError is returned by JumpTo for an index outside the
// question list.
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("question index %d out of range [0,%d)", e.Index, e.Len)
}

// AnswerRequiredError names the mandatory question that is unanswered.
type AnswerRequiredError struct {
	QuestionID string
	Index      int
}

func (e *AnswerRequiredError) Error() string {
	return fmt.Sprintf("question %d requires an answer", e.Index+1)
}

func (e *AnswerRequiredError) Is(target error) bool { return target == ErrAnswerRequired }

// InvalidAnswerError is a value rejected by the current question's
// constraints. Its message is the constraint failure itself.
type InvalidAnswerError struct {
	QuestionID string
	Value      model.Value
	Err        error
}

func (e *InvalidAnswerError) Error() string { return e.Err.Error() }

func (e *InvalidAnswerError) Unwrap() error { return e.Err }
