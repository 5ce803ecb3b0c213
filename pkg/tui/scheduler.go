package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// frameDelay is how long the program waits for a resize to reach the
// screen before running deferred work
const frameDelay = 16 * time.Millisecond

type layoutSettledMsg struct{}

// Scheduler queues work until the next frame has been drawn. It
// implements mapview.Scheduler.
type Scheduler struct {
	pending []func()
}

func (s *Scheduler) AfterLayout(fn func()) {
	s.pending = append(s.pending, fn)
}

// Pending returns the number of queued callbacks
func (s *Scheduler) Pending() int {
	return len(s.pending)
}

// Flush runs the queued callbacks, including any they queue
func (s *Scheduler) Flush() {
	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		for _, fn := range batch {
			fn()
		}
	}
}

func waitForLayout() tea.Cmd {
	return tea.Tick(frameDelay, func(time.Time) tea.Msg {
		return layoutSettledMsg{}
	})
}
