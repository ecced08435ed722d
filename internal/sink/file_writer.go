package sink

import (
	"encoding/json"
	"os"
	"sync"

	"robodash/internal/telemetry"
)

// FileWriter appends status rows to a JSONL file.
type FileWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates (or truncates) the log file at path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// Write logs a single status row.
func (w *FileWriter) Write(row telemetry.StatusRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(row)
}

// Close closes the underlying file.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
