package tui

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"robodash/internal/command"
	"robodash/internal/state"
	"robodash/internal/telemetry"
)

type stubSender struct {
	lastKind command.Kind
	outcomes []command.Outcome
}

func (s *stubSender) Send(req command.Request) ([]command.Outcome, error) {
	s.lastKind = req.Kind
	return s.outcomes, nil
}

type stubCounter uint64

func (c stubCounter) DecodeErrors() uint64 { return uint64(c) }

func demoTable() *state.Table {
	tbl := state.NewTable()
	addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 3838}
	status := telemetry.RobotStatus{
		RobotID:       1,
		RobotName:     "robot1",
		Game:          telemetry.GameInfo{State: telemetry.GameStatePlay},
		Collaboration: telemetry.Collaboration{Role: "striker"},
		Behavior:      telemetry.Behavior{Decision: "kick_ball"},
	}
	tbl.Upsert(1, status, addr, time.Unix(100, 0))
	return tbl
}

func TestModel_RowsReflectSnapshot(t *testing.T) {
	m := NewModel(demoTable(), &stubSender{}, stubCounter(0), nil)
	rows := m.rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0][0] != "1" || rows[0][1] != "robot1" {
		t.Errorf("row = %v", rows[0])
	}
	if rows[0][3] != telemetry.GameStatePlay {
		t.Errorf("game column = %q, want PLAY", rows[0][3])
	}
}

func TestModel_KeyDispatchesBroadcast(t *testing.T) {
	sender := &stubSender{}
	m := NewModel(demoTable(), sender, stubCounter(0), nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	if cmd == nil {
		t.Fatal("key 'e' produced no command")
	}
	msg := cmd()
	dm, ok := msg.(dispatchMsg)
	if !ok {
		t.Fatalf("command produced %T, want dispatchMsg", msg)
	}
	if dm.kind != command.KindEmergencyStop || sender.lastKind != command.KindEmergencyStop {
		t.Errorf("dispatched kind = %v", dm.kind)
	}
}

func TestDescribeDispatch_PartialFailure(t *testing.T) {
	msg := dispatchMsg{
		kind: command.KindStop,
		outcomes: []command.Outcome{
			{RobotID: 1},
			{RobotID: 2, Err: errors.New("unreachable")},
		},
	}
	got := describeDispatch(msg)
	if !strings.Contains(got, "1 ok") || !strings.Contains(got, "1 failed") {
		t.Errorf("describeDispatch = %q", got)
	}
	if !strings.Contains(got, "2") {
		t.Errorf("failed robot id missing from %q", got)
	}
}

func TestView_ShowsConnectionCounts(t *testing.T) {
	m := NewModel(demoTable(), &stubSender{}, stubCounter(3), nil)
	m.grid.SetRows(m.rows())
	view := m.View()
	if !strings.Contains(view, "connected: 1") {
		t.Errorf("view missing connected count:\n%s", view)
	}
	if !strings.Contains(view, "decode errors: 3") {
		t.Errorf("view missing decode error count:\n%s", view)
	}
}

func TestLogWriter_DrainedIntoLogPane(t *testing.T) {
	lw := NewLogWriter()
	if _, err := lw.Write([]byte("level=INFO msg=\"receiver started\"\nlevel=WARN msg=\"robot timed out\" robot=2\n")); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	m := NewModel(demoTable(), &stubSender{}, stubCounter(0), lw)
	updated, _ := m.Update(refreshMsg{})
	m = updated.(Model)

	view := m.View()
	if !strings.Contains(view, "receiver started") || !strings.Contains(view, "robot timed out") {
		t.Errorf("log pane missing drained lines:\n%s", view)
	}
	if got := lw.Drain(); len(got) != 0 {
		t.Errorf("buffer not cleared after drain: %v", got)
	}
}
