package session

import (
	"slices"

	"github.com/selfeval/selfeval/internal/model"
)

// Sequencer is a cursor over a non-empty, ordered question list.
type Sequencer struct {
	questions []model.Question
	cursor    int
}

// NewSequencer orders questions by ordinal (ties by id) and places the
// cursor on the first one.
func NewSequencer(questions []model.Question) (*Sequencer, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyQuestionnaire
	}
	return &Sequencer{questions: model.SortQuestions(questions)}, nil
}

// Current returns the question under the cursor.
func (s *Sequencer) Current() model.Question { return s.questions[s.cursor] }

// Advance moves forward unless already on the last question.
func (s *Sequencer) Advance() bool {
	if s.IsLast() {
		return false
	}
	s.cursor++
	return true
}

// Retreat moves backward unless already on the first question.
func (s *Sequencer) Retreat() bool {
	if s.IsFirst() {
		return false
	}
	s.cursor--
	return true
}

// JumpTo moves the cursor to index. Out of range indexes leave it in place.
func (s *Sequencer) JumpTo(index int) error {
	if index < 0 || index >= len(s.questions) {
		return &IndexOutOfRangeError{Index: index, Len: len(s.questions)}
	}
	s.cursor = index
	return nil
}

// ProgressFraction is (cursor+1)/len, reaching 1 on the last question.
func (s *Sequencer) ProgressFraction() float64 {
	return float64(s.cursor+1) / float64(len(s.questions))
}

func (s *Sequencer) IsFirst() bool { return s.cursor == 0 }
func (s *Sequencer) IsLast() bool  { return s.cursor == len(s.questions)-1 }
func (s *Sequencer) Index() int    { return s.cursor }
func (s *Sequencer) Len() int      { return len(s.questions) }

// Questions returns the ordered list.
func (s *Sequencer) Questions() []model.Question { return slices.Clone(s.questions) }

// At returns the question at index i.
func (s *Sequencer) At(i int) model.Question { return s.questions[i] }

// IndexOf returns the position of questionID, or -1.
func (s *Sequencer) IndexOf(questionID string) int {
	return slices.IndexFunc(s.questions, func(q model.Question) bool { return q.ID == questionID })
}
