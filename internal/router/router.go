package router

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/selfeval/selfeval/internal/screen"
)

// PushScreenMsg requests the router to push a new screen onto the stack.
type PushScreenMsg struct {
	Screen screen.Screen
}

// PopScreenMsg requests the router to pop the current screen off the stack.
type PopScreenMsg struct{}

// ReplaceScreenMsg swaps the active screen without changing stack depth.
type ReplaceScreenMsg struct {
	Screen screen.Screen
}

// Closer is implemented by screens that hold resources which must be
// released when they leave the stack.
type Closer interface {
	Close() error
}

// Waiter is implemented by screens whose background work may outlive
// them once closed.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Router manages a stack of screens.
type Router struct {
	stack   []screen.Screen
	waiting []Waiter // closed screens with background work
}

// New creates a new Router with the given initial screen.
func New(initial screen.Screen) *Router {
	return &Router{
		stack: []screen.Screen{initial},
	}
}

// Push adds a screen on top of the stack and calls its Init().
func (r *Router) Push(s screen.Screen) tea.Cmd {
	r.stack = append(r.stack, s)
	return s.Init()
}

// Pop removes the top screen. No-op if stack depth would become 0.
// The popped screen is closed, and the screen underneath is told it
// became active again.
func (r *Router) Pop() tea.Cmd {
	if len(r.stack) <= 1 {
		return nil
	}
	top := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	r.closeScreen(top)
	return func() tea.Msg { return screen.ResumedMsg{} }
}

// Replace swaps the top screen for s and calls its Init().
func (r *Router) Replace(s screen.Screen) tea.Cmd {
	if len(r.stack) == 0 {
		r.stack = append(r.stack, s)
		return s.Init()
	}
	r.closeScreen(r.stack[len(r.stack)-1])
	r.stack[len(r.stack)-1] = s
	return s.Init()
}

// CloseAll closes every screen on the stack, top first.
func (r *Router) CloseAll() {
	for i := len(r.stack) - 1; i >= 0; i-- {
		r.closeScreen(r.stack[i])
	}
	r.stack = r.stack[:0]
}

// Wait blocks until the background work of every closed screen finished
// or ctx is done.
func (r *Router) Wait(ctx context.Context) error {
	for _, w := range r.waiting {
		if err := w.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Active returns the top screen on the stack.
func (r *Router) Active() screen.Screen {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

// Depth returns the number of screens on the stack.
func (r *Router) Depth() int {
	return len(r.stack)
}

// Update forwards a message to the active screen and handles navigation messages.
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case PushScreenMsg:
		return r.Push(msg.Screen)
	case PopScreenMsg:
		return r.Pop()
	case ReplaceScreenMsg:
		return r.Replace(msg.Screen)
	}

	active := r.Active()
	if active == nil {
		return nil
	}

	updated, cmd := active.Update(msg)
	r.stack[len(r.stack)-1] = updated
	return cmd
}

// View renders the active screen.
func (r *Router) View(width, height int) string {
	active := r.Active()
	if active == nil {
		return ""
	}
	return active.View(width, height)
}

func (r *Router) closeScreen(s screen.Screen) {
	if c, ok := s.(Closer); ok {
		_ = c.Close()
	}
	if w, ok := s.(Waiter); ok {
		r.waiting = append(r.waiting, w)
	}
}
