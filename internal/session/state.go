package session

import "github.com/selfeval/selfeval/internal/model"

// Phase is the controller's lifecycle phase.
type Phase int

const (
	PhaseIdle       Phase = iota // before Open
	PhaseLoading                 // Open in progress
	PhaseActive                  // questions are being answered
	PhaseCompleting              // complete call in flight
	PhaseCompleted               // evaluation completed, result available
	PhaseClosed                  // Close called
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseActive:
		return "active"
	case PhaseCompleting:
		return "completing"
	case PhaseCompleted:
		return "completed"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

// Dot is one entry of the progress-dot navigator.
type Dot struct {
	Answered bool
	Current  bool
	Submit   SubmitState
}

// View is a consistent snapshot of the session for rendering: the question
// under the cursor together with that question's own cached answer.
type View struct {
	Phase      Phase
	Section    model.Section
	Evaluation model.Evaluation

	Question model.Question
	Index    int
	Total    int
	Progress float64
	IsFirst  bool
	IsLast   bool
	Required bool

	// Answer is the cached value for Question; HasAnswer is false when the
	// student has not entered anything for it yet.
	Answer    model.Value
	HasAnswer bool
	Answered  bool
	Submit    SubmitState
	SubmitErr error

	Dots []Dot
}

// AnsweredCount returns how many dots are answered.
func (v View) AnsweredCount() int {
	n := 0
	for _, d := range v.Dots {
		if d.Answered {
			n++
		}
	}
	return n
}
