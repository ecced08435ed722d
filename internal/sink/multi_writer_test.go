package sink

import (
	"errors"
	"testing"

	"robodash/internal/telemetry"
)

type collectWriter struct {
	rows []telemetry.StatusRow
	err  error
}

func (w *collectWriter) Write(row telemetry.StatusRow) error {
	if w.err != nil {
		return w.err
	}
	w.rows = append(w.rows, row)
	return nil
}

func TestMultiWriter_FansOut(t *testing.T) {
	a := &collectWriter{}
	b := &collectWriter{}
	mw := NewMultiWriter(a, b)

	if err := mw.Write(sampleRow(1)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if len(a.rows) != 1 || len(b.rows) != 1 {
		t.Errorf("rows = %d/%d, want 1/1", len(a.rows), len(b.rows))
	}
}

func TestMultiWriter_FailureDoesNotSkipSiblings(t *testing.T) {
	bad := &collectWriter{err: errors.New("disk full")}
	good := &collectWriter{}
	mw := NewMultiWriter(bad, good)

	err := mw.Write(sampleRow(1))
	if err == nil {
		t.Error("Write swallowed the sink error")
	}
	if len(good.rows) != 1 {
		t.Error("healthy sink skipped after sibling failure")
	}
}
