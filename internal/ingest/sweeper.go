package ingest

import (
	"context"
	"log/slog"
	"time"

	"robodash/internal/state"
)

// MinSweepInterval is the floor for the sweep period.
const MinSweepInterval = 500 * time.Millisecond

// Sweeper periodically marks robots stale once their last datagram is older
// than the timeout. It runs independently of the receive loop's cadence.
type Sweeper struct {
	table    *state.Table
	timeout  time.Duration
	interval time.Duration
	log      *slog.Logger
}

// NewSweeper creates a sweeper running at half the timeout, clamped to
// MinSweepInterval.
func NewSweeper(table *state.Table, timeout time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	interval := timeout / 2
	if interval < MinSweepInterval {
		interval = MinSweepInterval
	}
	return &Sweeper{table: table, timeout: timeout, interval: interval, log: log}
}

// Interval returns the effective sweep period.
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// Run sweeps until ctx is cancelled. Cancellation is only observed between
// sweeps; a sweep that has started always completes.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("sweeper started", "timeout", s.timeout, "interval", s.interval)
	for {
		select {
		case <-ticker.C:
			s.Sweep(time.Now())
		case <-ctx.Done():
			s.log.Info("sweeper stopping")
			return
		}
	}
}

// Sweep applies the staleness check to every known robot at the given clock.
func (s *Sweeper) Sweep(now time.Time) {
	for _, id := range s.table.IDs() {
		if s.table.MarkStaleIfExpired(id, now, s.timeout) {
			s.log.Info("robot timed out", "robot", id)
		}
	}
}
