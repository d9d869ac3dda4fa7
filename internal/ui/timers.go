package ui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"autumn/internal/task"
)

type timerFiredMsg struct {
	run func()
}

// Timers delivers timer callbacks through the bubbletea event loop so they
// run on the same goroutine as key handling. Before a program is attached
// callbacks run directly.
type Timers struct {
	mu      sync.Mutex
	program *tea.Program
}

func NewTimers() *Timers {
	return &Timers{}
}

func (t *Timers) AfterFunc(d time.Duration, f func()) task.Timer {
	return time.AfterFunc(d, func() { t.dispatch(f) })
}

func (t *Timers) attach(p *tea.Program) {
	t.mu.Lock()
	t.program = p
	t.mu.Unlock()
}

func (t *Timers) dispatch(f func()) {
	t.mu.Lock()
	p := t.program
	t.mu.Unlock()
	if p == nil {
		f()
		return
	}
	p.Send(timerFiredMsg{run: f})
}
