package sim

import (
	"context"
	"testing"
	"time"

	"robodash/internal/ingest"
	"robodash/internal/state"
	"robodash/internal/telemetry"
)

// mockSender collects payloads for validation.
type mockSender struct {
	payloads [][]byte
}

func (s *mockSender) SendPayload(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.payloads = append(s.payloads, cp)
	return nil
}

func TestSimulator_StepSendsOnePayloadPerRobot(t *testing.T) {
	sender := &mockSender{}
	sim := NewSimulator(3, 1, sender, DefaultTick, nil)

	sim.step(100*time.Millisecond, time.Unix(500, 0))

	if len(sender.payloads) != 3 {
		t.Fatalf("got %d payloads, want 3", len(sender.payloads))
	}
	seen := map[int]bool{}
	for _, p := range sender.payloads {
		status, err := telemetry.Decode(p)
		if err != nil {
			t.Fatalf("simulator produced undecodable payload: %v", err)
		}
		seen[status.RobotID] = true
		if status.TeamID != 1 {
			t.Errorf("TeamID = %d, want 1", status.TeamID)
		}
		if status.RobotName == "" {
			t.Error("payload missing robot name")
		}
	}
	for id := 0; id < 3; id++ {
		if !seen[id] {
			t.Errorf("no payload for robot %d", id)
		}
	}
}

func TestSimulator_RobotsStayOnField(t *testing.T) {
	sender := &mockSender{}
	sim := NewSimulator(2, 1, sender, DefaultTick, nil)

	now := time.Unix(500, 0)
	for i := 0; i < 200; i++ {
		now = now.Add(100 * time.Millisecond)
		sim.step(100*time.Millisecond, now)
	}

	for _, r := range sim.robots {
		if r.poseX < -fieldHalfLength || r.poseX > fieldHalfLength ||
			r.poseY < -fieldHalfWidth || r.poseY > fieldHalfWidth {
			t.Errorf("robot %d left the field: (%.2f, %.2f)", r.ID, r.poseX, r.poseY)
		}
	}
}

func TestSimulator_KickoffSideOnlyRobotZero(t *testing.T) {
	sender := &mockSender{}
	sim := NewSimulator(2, 1, sender, DefaultTick, nil)
	sim.step(100*time.Millisecond, time.Unix(500, 0))

	for _, p := range sender.payloads {
		status, err := telemetry.Decode(p)
		if err != nil {
			t.Fatal(err)
		}
		want := status.RobotID == 0
		if status.Game.KickoffSide != want {
			t.Errorf("robot %d KickoffSide = %v, want %v", status.RobotID, status.Game.KickoffSide, want)
		}
	}
}

// Feed as drop-in transport: the simulator's payloads reach the state table
// through the stock receive loop without a socket.
func TestFeed_DropInSourceForReceiver(t *testing.T) {
	feed := NewFeed()
	tbl := state.NewTable()
	recv := ingest.NewReceiver(feed, tbl, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- recv.Run(ctx) }()

	sim := NewSimulator(2, 1, feed, DefaultTick, nil)
	sim.step(100*time.Millisecond, time.Unix(500, 0))

	deadline := time.Now().Add(2 * time.Second)
	for tbl.ConnectedCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d robots reached the table", tbl.ConnectedCount())
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("receiver returned %v", err)
	}
}
