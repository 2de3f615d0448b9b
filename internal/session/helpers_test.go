package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/selfeval/selfeval/internal/backend"
	"github.com/selfeval/selfeval/internal/model"
	"github.com/selfeval/selfeval/internal/store"
)

const testSection = "s1"

// newScaleBackend returns a mock with one section of n scale questions
// ranging over [1,10].
func newScaleBackend(n int) *backend.Mock {
	m := backend.NewMock(model.User{ID: "student-1"})
	m.AddSection(model.Section{ID: testSection, Name: "Soft skills"}, scaleQuestions(n)...)
	return m
}

func newController(m *backend.Mock, drafts store.DraftRepo) *Controller {
	return New(Options{Client: m, Drafts: drafts, Logger: zerolog.Nop()})
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// startedEvaluation creates and starts an evaluation directly on the mock.
func startedEvaluation(t *testing.T, m *backend.Mock) model.Evaluation {
	t.Helper()
	ctx := context.Background()
	e, err := m.CreateEvaluation(ctx, testSection)
	require.NoError(t, err)
	started, err := m.StartEvaluation(ctx, e.ID)
	require.NoError(t, err)
	return *started
}

// submitCalls returns the submit calls received by the mock, in order.
func submitCalls(m *backend.Mock) []backend.Call {
	var out []backend.Call
	for _, c := range m.Calls() {
		if c.Op == backend.OpSubmitAnswer {
			out = append(out, c)
		}
	}
	return out
}

// gate blocks a mock operation until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gate) hook(ctx context.Context, _ backend.Call) error {
	g.entered <- struct{}{}
	<-g.release
	return nil
}

func (g *gate) open() { close(g.release) }
