package model

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Kind is the closed set of question types.
type Kind string

const (
	KindMultipleChoice Kind = "multiple-choice"
	KindScale          Kind = "scale"
	KindFreeText       Kind = "free-text"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindMultipleChoice, KindScale, KindFreeText:
		return true
	}
	return false
}

// Answer validation failures.
var (
	ErrNotInOptionSet = errors.New("value not in option set")
	ErrOutOfRange     = errors.New("value out of range")
	ErrWrongType      = errors.New("value has the wrong type for this question")
	ErrEmptyAnswer    = errors.New("answer is empty")
)

// Question is one item of a questionnaire. Options applies to
// multiple-choice questions, Min and Max (inclusive) to scale questions.
type Question struct {
	ID            string             `json:"id" validate:"required"`
	Questionnaire Ref[Questionnaire] `json:"questionnaire"`
	Ordinal       int                `json:"order"`
	Kind          Kind               `json:"type" validate:"required,oneof=multiple-choice scale free-text"`
	Text          string             `json:"text"`
	Points        float64            `json:"points" validate:"gte=0"`
	Options       []string           `json:"options,omitempty"`
	Min           int                `json:"min,omitempty"`
	Max           int                `json:"max,omitempty"`
}

func (q Question) RefID() string { return q.ID }

// Check verifies the question's own constraint payload.
func (q Question) Check() error {
	if q.Points < 0 {
		return fmt.Errorf("question %s: negative point value %v", q.ID, q.Points)
	}
	switch q.Kind {
	case KindMultipleChoice:
		if len(q.Options) == 0 {
			return fmt.Errorf("question %s: multiple-choice question has no options", q.ID)
		}
	case KindScale:
		if q.Min > q.Max {
			return fmt.Errorf("question %s: scale range [%d,%d] is empty", q.ID, q.Min, q.Max)
		}
	case KindFreeText:
	default:
		return fmt.Errorf("question %s: unknown type %q", q.ID, q.Kind)
	}
	return nil
}

// Validate checks v against the question's constraints. required controls
// whether an empty free-text answer is acceptable.
func (q Question) Validate(v Value, required bool) error {
	switch q.Kind {
	case KindMultipleChoice:
		s, ok := v.AsText()
		if !ok {
			return ErrWrongType
		}
		if !slices.Contains(q.Options, s) {
			return ErrNotInOptionSet
		}
	case KindScale:
		n, ok := v.AsInt()
		if !ok {
			return ErrWrongType
		}
		if n < q.Min || n > q.Max {
			return fmt.Errorf("%w: %d not in [%d,%d]", ErrOutOfRange, n, q.Min, q.Max)
		}
	case KindFreeText:
		if _, ok := v.AsText(); !ok {
			return ErrWrongType
		}
		if required && v.IsEmpty() {
			return ErrEmptyAnswer
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Kind)
	}
	return nil
}

// DefaultValue is the value an input control starts from: the first option,
// the scale midpoint, or empty text.
func (q Question) DefaultValue() Value {
	switch q.Kind {
	case KindMultipleChoice:
		if len(q.Options) > 0 {
			return Text(q.Options[0])
		}
	case KindScale:
		return Int(q.Min + (q.Max-q.Min)/2)
	case KindFreeText:
		return Text("")
	}
	return Value{}
}

// SortQuestions returns a copy of qs ordered by ordinal, ties broken by ID.
func SortQuestions(qs []Question) []Question {
	sorted := slices.Clone(qs)
	slices.SortStableFunc(sorted, func(a, b Question) int {
		if c := cmp.Compare(a.Ordinal, b.Ordinal); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return sorted
}
