package session

import (
	"maps"

	"github.com/selfeval/selfeval/internal/model"
)

// AnswerCache holds the in-progress answers of one session, keyed by
// question id. It never validates values. It is not safe for concurrent
// use; the Controller guards it.
type AnswerCache struct {
	answers map[string]model.Value
}

// NewAnswerCache returns an empty cache.
func NewAnswerCache() *AnswerCache {
	return &AnswerCache{answers: make(map[string]model.Value)}
}

// Set stores v for questionID, replacing any previous value.
func (c *AnswerCache) Set(questionID string, v model.Value) {
	c.answers[questionID] = v
}

// Get returns the value stored for questionID.
func (c *AnswerCache) Get(questionID string) (model.Value, bool) {
	v, ok := c.answers[questionID]
	return v, ok
}

// IsAnswered reports whether questionID holds a non-empty value.
func (c *AnswerCache) IsAnswered(questionID string) bool {
	v, ok := c.answers[questionID]
	return ok && !v.IsEmpty()
}

// Len returns the number of stored entries, empty ones included.
func (c *AnswerCache) Len() int { return len(c.answers) }

// Snapshot returns a copy of every stored entry.
func (c *AnswerCache) Snapshot() map[string]model.Value {
	return maps.Clone(c.answers)
}
