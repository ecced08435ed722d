package tui

import (
	"strings"
	"sync"
)

// LogWriter is an io.Writer that buffers log lines for the dashboard's log
// pane. The serve command hands it to the logger while the TUI holds the
// altscreen; the model drains it on every refresh tick.
type LogWriter struct {
	mu    sync.Mutex
	lines []string
}

// NewLogWriter returns an empty buffer.
func NewLogWriter() *LogWriter {
	return &LogWriter{}
}

// Write splits p into lines and queues them. It never fails.
func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.lines = append(w.lines, line)
		}
	}
	return len(p), nil
}

// Drain returns the queued lines and clears the buffer.
func (w *LogWriter) Drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	lines := w.lines
	w.lines = nil
	return lines
}
