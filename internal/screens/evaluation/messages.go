package evaluation

import (
	"time"

	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/session"
)

// openedMsg is sent when the controller finished opening the section.
type openedMsg struct {
	View session.View
	Err  error
}

// answeredMsg is sent after an answer was cached and queued.
type answeredMsg struct {
	View session.View
	Err  error
}

// movedMsg is sent after a navigation that may have waited on the backend.
type movedMsg struct {
	View session.View
	Err  error
}

// completedMsg is sent when the complete call returned.
type completedMsg struct {
	Evaluation model.Evaluation
	Err        error
}

// saveTickMsg refreshes the save indicators while answers are in flight.
type saveTickMsg time.Time
