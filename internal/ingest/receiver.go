// Receive loop decoding datagrams into the state table
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"robodash/internal/state"
	"robodash/internal/telemetry"
)

// StatusWriter receives a flattened row for every accepted datagram.
// Implementations live in internal/sink; several sinks are composed into one
// writer with sink.NewMultiWriter. Writer errors are logged and never fail
// ingestion.
type StatusWriter interface {
	Write(telemetry.StatusRow) error
}

// ErrAlreadyRunning is returned when Run is called on a receiver whose loop
// is still active.
var ErrAlreadyRunning = errors.New("receiver already running")

const (
	// MaxDatagramSize bounds one status payload.
	MaxDatagramSize = 4096

	maxReadRetries   = 5
	baseRetryBackoff = 100 * time.Millisecond
)

// Receiver owns a PacketSource and pumps decoded statuses into the table.
// Malformed datagrams are counted and dropped; the loop only terminates on
// cancellation or a persistent transport failure.
type Receiver struct {
	src    PacketSource
	table  *state.Table
	writer StatusWriter
	log    *slog.Logger

	decodeErrs atomic.Uint64
	running    atomic.Bool
}

// NewReceiver wires a source to the table. A non-nil writer receives a row
// per accepted datagram (history sinks, log files).
func NewReceiver(src PacketSource, table *state.Table, log *slog.Logger, writer StatusWriter) *Receiver {
	if log == nil {
		log = slog.Default()
	}
	return &Receiver{src: src, table: table, writer: writer, log: log}
}

// DecodeErrors returns how many datagrams were dropped as malformed.
func (r *Receiver) DecodeErrors() uint64 {
	return r.decodeErrs.Load()
}

// Run blocks until ctx is cancelled or the transport fails for good. The
// source is closed exactly once on the way out. Cancellation is observed
// within one poll interval. A second concurrent Run returns
// ErrAlreadyRunning.
func (r *Receiver) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)
	defer r.src.Close()

	r.log.Info("receiver started")
	buf := make([]byte, MaxDatagramSize)
	retries := 0

	for {
		select {
		case <-ctx.Done():
			r.log.Info("receiver stopping", "decode_errors", r.decodeErrs.Load())
			return nil
		default:
		}

		n, addr, err := r.src.ReadPacket(buf)
		if err != nil {
			if errors.Is(err, ErrNoPacket) {
				// An idle interval ends any failure episode.
				retries = 0
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			retries++
			if retries > maxReadRetries {
				return fmt.Errorf("transport read failed: %w", err)
			}
			r.log.Warn("transient read error, backing off", "err", err, "attempt", retries)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(baseRetryBackoff * time.Duration(retries)):
			}
			continue
		}
		retries = 0

		status, err := telemetry.Decode(buf[:n])
		if err != nil {
			r.decodeErrs.Add(1)
			r.log.Warn("dropping malformed datagram", "from", addr, "err", err)
			continue
		}

		now := time.Now()
		r.table.Upsert(status.RobotID, status, addr, now)

		if r.writer != nil {
			if err := r.writer.Write(status.Row(addr.String(), now)); err != nil {
				r.log.Warn("status sink write failed", "robot", status.RobotID, "err", err)
			}
		}
	}
}
