package state

import (
	"net"
	"sync"
	"testing"
	"time"

	"robodash/internal/telemetry"
)

var (
	addr1 = &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 4000}
	addr2 = &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 4001}
)

func status(id int, game string) telemetry.RobotStatus {
	return telemetry.RobotStatus{RobotID: id, Game: telemetry.GameInfo{State: game}}
}

func TestUpsert_NewRobotIsConnected(t *testing.T) {
	tbl := NewTable()
	now := time.Unix(100, 0)
	tbl.Upsert(1, status(1, telemetry.GameStatePlay), addr1, now)

	rec, ok := tbl.Get(1)
	if !ok {
		t.Fatal("Get(1) returned no record after Upsert")
	}
	if !rec.Connected {
		t.Error("fresh datagram must set Connected")
	}
	if rec.LastUpdate != now {
		t.Errorf("LastUpdate = %v, want %v", rec.LastUpdate, now)
	}
	if rec.Status.Game.State != telemetry.GameStatePlay {
		t.Errorf("Status not stored: %+v", rec.Status)
	}
}

func TestUpsert_OverwriteIsLastWriteWins(t *testing.T) {
	tbl := NewTable()
	t1 := time.Unix(100, 0)
	t2 := t1.Add(2 * time.Second)

	// Self-reported timestamps deliberately reversed: receipt order wins.
	s1 := status(1, telemetry.GameStateReady)
	s1.Timestamp = 999
	s2 := status(1, telemetry.GameStatePlay)
	s2.Timestamp = 1

	tbl.Upsert(1, s1, addr1, t1)
	tbl.Upsert(1, s2, addr2, t2)

	rec, _ := tbl.Get(1)
	if rec.Status.Game.State != telemetry.GameStatePlay {
		t.Errorf("Status = %+v, want second datagram's", rec.Status)
	}
	if rec.LastUpdate != t2 {
		t.Errorf("LastUpdate = %v, want %v", rec.LastUpdate, t2)
	}
	if rec.Addr.String() != addr2.String() {
		t.Errorf("Addr = %v, want updated endpoint %v", rec.Addr, addr2)
	}
	if got := len(tbl.Snapshot()); got != 1 {
		t.Errorf("Snapshot has %d records, want 1", got)
	}
}

func TestMarkStaleIfExpired_LivenessLaw(t *testing.T) {
	tbl := NewTable()
	seen := time.Unix(10, 0)
	timeout := 5 * time.Second
	tbl.Upsert(1, status(1, telemetry.GameStatePlay), addr1, seen)

	// t < T+D: still connected.
	tbl.MarkStaleIfExpired(1, seen.Add(2*time.Second), timeout)
	if rec, _ := tbl.Get(1); !rec.Connected {
		t.Error("robot marked stale before timeout elapsed")
	}

	// t == T+D: boundary is inclusive.
	tbl.MarkStaleIfExpired(1, seen.Add(timeout), timeout)
	if rec, _ := tbl.Get(1); rec.Connected {
		t.Error("robot still connected at exactly T+D")
	}
}

func TestMarkStaleIfExpired_Idempotent(t *testing.T) {
	tbl := NewTable()
	seen := time.Unix(10, 0)
	tbl.Upsert(1, status(1, telemetry.GameStatePlay), addr1, seen)

	now := seen.Add(6 * time.Second)
	first := tbl.MarkStaleIfExpired(1, now, 5*time.Second)
	second := tbl.MarkStaleIfExpired(1, now, 5*time.Second)

	if !first {
		t.Error("first call should report the disconnect edge")
	}
	if second {
		t.Error("second call with same clock must be a no-op")
	}
	if rec, _ := tbl.Get(1); rec.Connected {
		t.Error("Connected = true after expiry")
	}
}

func TestMarkStaleIfExpired_UnknownIDIsNoop(t *testing.T) {
	tbl := NewTable()
	if tbl.MarkStaleIfExpired(42, time.Now(), time.Second) {
		t.Error("unknown ID reported a transition")
	}
	if got := len(tbl.Snapshot()); got != 0 {
		t.Errorf("sweep created %d records", got)
	}
}

func TestReconnectAfterStale(t *testing.T) {
	tbl := NewTable()
	seen := time.Unix(10, 0)
	tbl.Upsert(1, status(1, telemetry.GameStatePlay), addr1, seen)
	tbl.MarkStaleIfExpired(1, seen.Add(10*time.Second), 5*time.Second)

	tbl.Upsert(1, status(1, telemetry.GameStatePlay), addr2, seen.Add(11*time.Second))
	rec, _ := tbl.Get(1)
	if !rec.Connected {
		t.Error("datagram after expiry must reconnect the robot")
	}
}

func TestSnapshot_OrderedAndIndependent(t *testing.T) {
	tbl := NewTable()
	now := time.Now()
	tbl.Upsert(3, status(3, telemetry.GameStateSet), addr1, now)
	tbl.Upsert(1, status(1, telemetry.GameStatePlay), addr1, now)
	tbl.Upsert(2, status(2, telemetry.GameStateReady), addr1, now)

	snap := tbl.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot has %d records, want 3", len(snap))
	}
	for i, want := range []int{1, 2, 3} {
		if snap[i].Status.RobotID != want {
			t.Errorf("snap[%d].RobotID = %d, want %d", i, snap[i].Status.RobotID, want)
		}
	}

	// Mutating the copy must not leak into the table.
	snap[0].Connected = false
	snap[0].Status.Game.State = "MUTATED"
	if rec, _ := tbl.Get(1); !rec.Connected || rec.Status.Game.State != telemetry.GameStatePlay {
		t.Error("Snapshot aliases live storage")
	}
}

func TestNoRemoval(t *testing.T) {
	tbl := NewTable()
	seen := time.Unix(10, 0)
	tbl.Upsert(1, status(1, telemetry.GameStatePlay), addr1, seen)

	// Far beyond any timeout: robot must remain visible as disconnected.
	tbl.MarkStaleIfExpired(1, seen.Add(time.Hour), 5*time.Second)
	all := tbl.All()
	rec, ok := all[1]
	if !ok {
		t.Fatal("robot vanished from All() after going stale")
	}
	if rec.Connected {
		t.Error("stale robot still connected")
	}
}

func TestConnectedCountAndDisconnectedIDs(t *testing.T) {
	tbl := NewTable()
	seen := time.Unix(10, 0)
	timeout := 5 * time.Second
	tbl.Upsert(1, status(1, telemetry.GameStatePlay), addr1, seen)
	tbl.Upsert(2, status(2, telemetry.GameStatePlay), addr1, seen.Add(4*time.Second))
	tbl.Upsert(3, status(3, telemetry.GameStatePlay), addr1, seen)

	now := seen.Add(6 * time.Second)
	for _, id := range tbl.IDs() {
		tbl.MarkStaleIfExpired(id, now, timeout)
	}

	if got := tbl.ConnectedCount(); got != 1 {
		t.Errorf("ConnectedCount = %d, want 1", got)
	}
	ids := tbl.DisconnectedIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("DisconnectedIDs = %v, want [1 3]", ids)
	}
}

// Concurrent writers (receive path and sweeper) against concurrent readers:
// reads must always see whole records, in order, with plausible liveness.
// Run with -race.
func TestTable_ConcurrentWritersAndReaders(t *testing.T) {
	tbl := NewTable()
	ids := []int{1, 2, 3, 4}
	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			id := ids[i%len(ids)]
			tbl.Upsert(id, status(id, telemetry.GameStatePlay), addr1, time.Now())
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			// Sweep with an advanced clock so records flip both ways.
			for _, id := range tbl.IDs() {
				tbl.MarkStaleIfExpired(id, time.Now().Add(time.Hour), 5*time.Second)
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := tbl.Snapshot()
			for i, rec := range snap {
				if rec.Status.RobotID == 0 && rec.LastUpdate.IsZero() {
					t.Error("snapshot contains a torn record")
					return
				}
				if i > 0 && snap[i-1].Status.RobotID >= rec.Status.RobotID {
					t.Errorf("snapshot out of order: %d before %d", snap[i-1].Status.RobotID, rec.Status.RobotID)
					return
				}
			}
			if n := tbl.ConnectedCount(); n < 0 || n > len(ids) {
				t.Errorf("ConnectedCount = %d with %d robots", n, len(ids))
				return
			}
			if d := tbl.DisconnectedIDs(); len(d) > len(ids) {
				t.Errorf("DisconnectedIDs = %v with %d robots", d, len(ids))
				return
			}
		}
	}()

	time.Sleep(300 * time.Millisecond)
	close(stop)
	wg.Wait()

	if got := len(tbl.Snapshot()); got != len(ids) {
		t.Errorf("table holds %d records, want %d", got, len(ids))
	}
}

func TestOnUpdate_NotifiesUpsertAndDisconnectEdge(t *testing.T) {
	tbl := NewTable()
	type event struct {
		id        int
		connected bool
	}
	var events []event
	tbl.OnUpdate(func(id int, rec Record) {
		events = append(events, event{id, rec.Connected})
	})

	seen := time.Unix(10, 0)
	tbl.Upsert(1, status(1, telemetry.GameStatePlay), addr1, seen)
	tbl.MarkStaleIfExpired(1, seen.Add(10*time.Second), 5*time.Second)
	// Second sweep is not an edge, no extra event.
	tbl.MarkStaleIfExpired(1, seen.Add(11*time.Second), 5*time.Second)

	want := []event{{1, true}, {1, false}}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(events), len(want), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event[%d] = %+v, want %+v", i, events[i], want[i])
		}
	}
}
