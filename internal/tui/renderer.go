package tui

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/stackbox/internal/notify"
)

// eventMsg carries one manager event into the program.
type eventMsg struct {
	event notify.Event
}

// resultMsg carries a widget callback result into the program.
type resultMsg struct {
	result notify.Result
}

// Renderer draws widgets in the terminal by forwarding manager events to a
// running bubbletea program. The manager may call it from any goroutine.
type Renderer struct {
	mu      sync.RWMutex
	program *tea.Program
}

// NewRenderer creates a detached Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Attach starts forwarding to p.
func (r *Renderer) Attach(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

// Detach stops forwarding. Later events are dropped.
func (r *Renderer) Detach() {
	r.mu.Lock()
	r.program = nil
	r.mu.Unlock()
}

// Mount accepts the widget while a program is attached.
func (r *Renderer) Mount(v notify.View) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.program == nil {
		return fmt.Errorf("%s: terminal not attached: %w", v.Ref, notify.ErrRenderTargetMissing)
	}
	return nil
}

// Render implements notify.Renderer.
func (r *Renderer) Render(e notify.Event) {
	r.Send(eventMsg{event: e})
}

// Callback returns a widget callback that reports its result to the program.
func (r *Renderer) Callback() notify.Callback {
	return func(res notify.Result) {
		r.Send(resultMsg{result: res})
	}
}

// Send posts msg to the attached program, if any.
func (r *Renderer) Send(msg tea.Msg) {
	r.mu.RLock()
	p := r.program
	r.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}
