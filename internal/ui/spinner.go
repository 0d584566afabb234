// Package ui renders CLI progress on a terminal.
package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/lukman83/pricepulse/internal/platform"
)

var frames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

// Spinner displays an animated progress indicator on w (usually stderr).
type Spinner struct {
	w        io.Writer
	interval time.Duration

	mu     sync.Mutex
	msg    string
	failed int
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{w: w, interval: 80 * time.Millisecond}
}

// Start begins the animation with msg.
func (s *Spinner) Start(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		s.msg = msg
		return
	}
	s.msg = msg
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.done)
}

// Update changes the message while the spinner runs.
func (s *Spinner) Update(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// Progress is a platform.ProgressFunc showing "[done/total] url".
func (s *Spinner) Progress(p platform.Progress) {
	s.mu.Lock()
	if p.Err != nil {
		s.failed++
	}
	failed := s.failed
	s.mu.Unlock()

	msg := fmt.Sprintf("[%d/%d] %s", p.Done, p.Total, p.URL)
	if failed > 0 {
		msg += fmt.Sprintf(" (%d failed)", failed)
	}
	s.Update(msg)
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done == nil {
		return
	}
	close(done)
	s.wg.Wait()

	fmt.Fprint(s.w, "\r\033[K")
}

func (s *Spinner) run(done <-chan struct{}) {
	defer s.wg.Done()
	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	i := 0
	for {
		select {
		case <-done:
			return
		case <-tick.C:
			s.mu.Lock()
			msg := s.msg
			s.mu.Unlock()
			fmt.Fprintf(s.w, "\r\033[K%c %s", frames[i%len(frames)], msg)
			i++
		}
	}
}
