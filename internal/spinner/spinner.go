// Package spinner draws a one-line progress indicator on a terminal.
package spinner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Interval is the time between frames.
const Interval = 80 * time.Millisecond

// Spinner animates a message until stopped. The message can change while
// it spins.
type Spinner struct {
	w io.Writer

	mu      sync.Mutex
	message string
	widest  int

	done     chan struct{}
	cleared  chan struct{}
	stopOnce sync.Once
}

// IsTerminal reports whether w is a terminal. Spinners only make sense there.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start displays an animated spinner with the given message on w.
// Call Stop to stop the spinner and clear the line.
func Start(w io.Writer, message string) *Spinner {
	s := &Spinner{
		w:       w,
		message: message,
		widest:  runewidth.StringWidth(message),
		done:    make(chan struct{}),
		cleared: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Spinner) loop() {
	i := 0
	for {
		select {
		case <-s.done:
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.widest+2)) //nolint:errcheck
			s.mu.Unlock()
			close(s.cleared)
			return
		case <-time.After(Interval):
			s.mu.Lock()
			line := fmt.Sprintf("%s %s", frames[i%len(frames)], s.message)
			pad := s.widest - runewidth.StringWidth(s.message)
			fmt.Fprintf(s.w, "\r%s%s", line, strings.Repeat(" ", max(pad, 0))) //nolint:errcheck
			s.mu.Unlock()
			i++
		}
	}
}

// Update replaces the message shown on the next frame.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	s.widest = max(s.widest, runewidth.StringWidth(message))
}

// Stop stops the spinner and clears the line. It is safe to call more than
// once.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	<-s.cleared
}
