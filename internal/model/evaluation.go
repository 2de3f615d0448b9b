package model

import "time"

// Status is an evaluation's lifecycle state.
type Status string

const (
	// StatusNotCreated is local only: no evaluation exists on the backend yet.
	StatusNotCreated Status = "not_created"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func (s Status) rank() int {
	switch s {
	case StatusNotCreated:
		return 0
	case StatusPending:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted:
		return 3
	}
	return -1
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s.rank() >= 0 }

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool { return s == StatusCompleted }

// CanTransition reports whether from → to is a legal single step.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return false
	}
	return to.rank() == from.rank()+1
}

// Regresses reports whether moving from → to would go backwards.
func Regresses(from, to Status) bool {
	return to.rank() < from.rank()
}

// Level is the backend's qualitative bucket for a score percentage.
type Level string

const (
	LevelVeryLow  Level = "very_low"
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very_high"
)

// Label returns a human readable label.
func (l Level) Label() string {
	switch l {
	case LevelVeryLow:
		return "Very low"
	case LevelLow:
		return "Low"
	case LevelMedium:
		return "Medium"
	case LevelHigh:
		return "High"
	case LevelVeryHigh:
		return "Very high"
	case "":
		return "-"
	}
	return string(l)
}

// User is the owner of an evaluation.
type User struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

func (u User) RefID() string { return u.ID }

// Section is a competency category grouping questionnaires.
type Section struct {
	ID            string             `json:"id" validate:"required"`
	Name          string             `json:"name"`
	Description   string             `json:"description,omitempty"`
	Questionnaire Ref[Questionnaire] `json:"questionnaire"`
}

func (s Section) RefID() string { return s.ID }

// Questionnaire is the ordered question set of a section.
type Questionnaire struct {
	ID       string       `json:"id" validate:"required"`
	Title    string       `json:"title,omitempty"`
	Section  Ref[Section] `json:"section"`
	Required *bool        `json:"required,omitempty"`
}

func (q Questionnaire) RefID() string { return q.ID }

// IsRequired reports whether every question must be answered. Questionnaires
// that do not say are required.
func (q Questionnaire) IsRequired() bool {
	return q.Required == nil || *q.Required
}

// Answer is the backend's record of one answered question.
type Answer struct {
	QuestionID string   `json:"questionId" validate:"required"`
	Value      Value    `json:"value"`
	Score      *float64 `json:"score,omitempty"`
}

// Evaluation is one attempt by one user at one section's questionnaire.
// Score fields are filled by the backend on completion.
type Evaluation struct {
	ID          string       `json:"id" validate:"required"`
	User        Ref[User]    `json:"user"`
	Section     Ref[Section] `json:"section"`
	Status      Status       `json:"status" validate:"required,oneof=pending in_progress completed"`
	CreatedAt   time.Time    `json:"createdAt"`
	StartedAt   *time.Time   `json:"startedAt,omitempty"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	TotalScore  *float64     `json:"totalScore,omitempty"`
	MaxScore    *float64     `json:"maxScore,omitempty"`
	Level       Level        `json:"level,omitempty"`
	Answers     []Answer     `json:"answers,omitempty" validate:"dive"`
}

// Percent returns the score percentage, or false before completion.
func (e Evaluation) Percent() (float64, bool) {
	if e.TotalScore == nil || e.MaxScore == nil || *e.MaxScore <= 0 {
		return 0, false
	}
	return *e.TotalScore / *e.MaxScore * 100, true
}
