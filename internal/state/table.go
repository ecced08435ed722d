// Shared robot state table with liveness tracking
package state

import (
	"net"
	"sort"
	"sync"
	"time"

	"robodash/internal/telemetry"
)

// Record is the table entry for one robot: its latest status, where it sent
// from, when the datagram arrived (local clock), and the derived liveness
// flag. Connected is maintained by the sweeper, not by the receive path,
// except that a fresh datagram always sets it true.
type Record struct {
	Status     telemetry.RobotStatus
	LastUpdate time.Time // local receipt clock, never the robot's own timestamp
	Addr       net.Addr  // most recent source endpoint
	Connected  bool
}

// UpdateFunc observes record changes (new datagram, or disconnect edge from
// the sweeper). Callbacks receive a copy and run outside the table lock.
type UpdateFunc func(id int, rec Record)

// Table maps robot IDs to their last-known records. All access goes through
// its methods; every read hands out copies, never the live storage. Entries
// are never removed: a silent robot stays visible as disconnected.
type Table struct {
	mu        sync.Mutex
	robots    map[int]*Record
	listeners []UpdateFunc
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{robots: make(map[int]*Record)}
}

// OnUpdate registers a listener. Not safe to call concurrently with updates;
// register listeners before starting the receiver and sweeper.
func (t *Table) OnUpdate(fn UpdateFunc) {
	t.listeners = append(t.listeners, fn)
}

// Upsert records a fresh datagram for a robot. It overwrites any previous
// status, updates the source endpoint (robots may change IP across
// reconnects), and sets Connected unconditionally: a datagram is proof of
// liveness at receipt time.
func (t *Table) Upsert(id int, status telemetry.RobotStatus, addr net.Addr, receivedAt time.Time) {
	t.mu.Lock()
	rec, ok := t.robots[id]
	if !ok {
		rec = &Record{}
		t.robots[id] = rec
	}
	rec.Status = status
	rec.LastUpdate = receivedAt
	rec.Addr = addr
	rec.Connected = true
	cp := *rec
	t.mu.Unlock()

	t.notify(id, cp)
}

// MarkStaleIfExpired flags the robot as disconnected if its last datagram is
// at least timeout old at the given clock. No-op (and idempotent) otherwise,
// and for unknown IDs. Returns true when the record transitioned from
// connected to disconnected on this call.
func (t *Table) MarkStaleIfExpired(id int, now time.Time, timeout time.Duration) bool {
	t.mu.Lock()
	rec, ok := t.robots[id]
	if !ok || now.Sub(rec.LastUpdate) < timeout {
		t.mu.Unlock()
		return false
	}
	edge := rec.Connected
	rec.Connected = false
	cp := *rec
	t.mu.Unlock()

	if edge {
		t.notify(id, cp)
	}
	return edge
}

// Get returns a copy of one robot's record.
func (t *Table) Get(id int) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.robots[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// IDs returns all known robot IDs in ascending order.
func (t *Table) IDs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idsLocked()
}

// Snapshot returns copies of all records ordered by robot ID. The result
// shares no storage with the table and is safe to hold across updates.
func (t *Table) Snapshot() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := t.idsLocked()
	recs := make([]Record, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, *t.robots[id])
	}
	return recs
}

// All returns a copy of the full table keyed by robot ID.
func (t *Table) All() map[int]Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[int]Record, len(t.robots))
	for id, rec := range t.robots {
		out[id] = *rec
	}
	return out
}

// ConnectedCount returns how many robots are currently considered live.
func (t *Table) ConnectedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, rec := range t.robots {
		if rec.Connected {
			n++
		}
	}
	return n
}

// DisconnectedIDs returns the IDs of robots that have timed out, ascending.
func (t *Table) DisconnectedIDs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []int
	for id, rec := range t.robots {
		if !rec.Connected {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

func (t *Table) idsLocked() []int {
	ids := make([]int, 0, len(t.robots))
	for id := range t.robots {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (t *Table) notify(id int, rec Record) {
	for _, fn := range t.listeners {
		fn(id, rec)
	}
}
