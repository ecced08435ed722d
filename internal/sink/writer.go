// History sinks for received robot status rows
package sink

import (
	"robodash/internal/telemetry"
)

// StatusWriter persists or displays one status row per accepted datagram.
type StatusWriter interface {
	Write(telemetry.StatusRow) error
}

// MultiWriter fans a row out to several writers. The first error is
// returned, after every writer has been tried.
type MultiWriter struct {
	writers []StatusWriter
}

// NewMultiWriter creates a fan-out over the given writers.
func NewMultiWriter(ws ...StatusWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Write sends a row to all writers.
func (mw *MultiWriter) Write(row telemetry.StatusRow) error {
	var first error
	for _, w := range mw.writers {
		if err := w.Write(row); err != nil && first == nil {
			first = err
		}
	}
	return first
}
