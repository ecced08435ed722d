// Outbound command dispatch to robot endpoints
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"time"

	"github.com/google/uuid"

	"robodash/internal/state"
)

// Kind enumerates the commands robots understand.
type Kind string

const (
	KindBuild         Kind = "build"
	KindStart         Kind = "start"
	KindStop          Kind = "stop"
	KindEmergencyStop Kind = "emergency_stop"
)

// Valid reports whether k is a known command kind.
func (k Kind) Valid() bool {
	switch k {
	case KindBuild, KindStart, KindStop, KindEmergencyStop:
		return true
	}
	return false
}

// Request is one command to a single robot or to every known robot.
type Request struct {
	ID        string         // assigned at creation, for correlating logs
	Target    int            // ignored when Broadcast
	Broadcast bool
	Kind      Kind
	Params    map[string]any // free-form, passed through to the robot
	Timestamp time.Time
}

// NewRequest builds a single-target request.
func NewRequest(kind Kind, target int) Request {
	return Request{ID: uuid.New().String(), Target: target, Kind: kind, Timestamp: time.Now()}
}

// NewBroadcast builds a request addressed to all known robots.
func NewBroadcast(kind Kind) Request {
	return Request{ID: uuid.New().String(), Broadcast: true, Kind: kind, Timestamp: time.Now()}
}

// ErrUnknownRobot is returned when a single-target request names a robot the
// table has never seen.
var ErrUnknownRobot = errors.New("unknown robot")

// Outcome is the per-target send result. A broadcast returns one outcome per
// resolved endpoint; failures never mask sibling successes.
type Outcome struct {
	RobotID int
	Addr    net.Addr
	Err     error
}

// OK reports whether the send reached the transport without error.
func (o Outcome) OK() bool { return o.Err == nil }

// packetConn is the slice of net.PacketConn the dispatcher uses. Narrowed
// for tests.
type packetConn interface {
	WriteTo(p []byte, addr net.Addr) (int, error)
	SetWriteDeadline(t time.Time) error
	Close() error
}

// DefaultSendTimeout bounds each per-target send so one unreachable robot
// cannot stall the rest.
const DefaultSendTimeout = 500 * time.Millisecond

// Dispatcher serializes commands and sends them to robot endpoints resolved
// from the state table.
type Dispatcher struct {
	table       *state.Table
	conn        packetConn
	sendTimeout time.Duration
	log         *slog.Logger
}

// NewDispatcher wraps an existing connection. Most callers want NewUDP.
func NewDispatcher(table *state.Table, conn net.PacketConn, log *slog.Logger) *Dispatcher {
	return newDispatcher(table, conn, log)
}

// NewUDP creates a dispatcher with its own outbound UDP socket.
func NewUDP(table *state.Table, log *slog.Logger) (*Dispatcher, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("open dispatch socket: %w", err)
	}
	return newDispatcher(table, conn, log), nil
}

func newDispatcher(table *state.Table, conn packetConn, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{table: table, conn: conn, sendTimeout: DefaultSendTimeout, log: log}
}

// Close releases the outbound socket.
func (d *Dispatcher) Close() error {
	return d.conn.Close()
}

type target struct {
	robotID int
	addr    net.Addr
}

// Send serializes the request and delivers it to every resolved endpoint.
// Broadcast resolves all known robots, disconnected ones included, since a
// reconnect command may be aimed at a robot that is currently offline. A
// failed send is recorded in its outcome and the remaining targets still get
// the command.
func (d *Dispatcher) Send(req Request) ([]Outcome, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("invalid command kind %q", req.Kind)
	}

	targets, err := d.resolve(req)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(struct {
		ID        string         `json:"id"`
		Command   string         `json:"command"`
		Params    map[string]any `json:"params,omitempty"`
		Timestamp float64        `json:"timestamp"`
	}{
		ID:        req.ID,
		Command:   string(req.Kind),
		Params:    req.Params,
		Timestamp: float64(req.Timestamp.UnixNano()) / 1e9,
	})
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}

	outcomes := make([]Outcome, 0, len(targets))
	for _, tgt := range targets {
		out := Outcome{RobotID: tgt.robotID, Addr: tgt.addr}
		if err := d.conn.SetWriteDeadline(time.Now().Add(d.sendTimeout)); err != nil {
			out.Err = err
		} else if _, err := d.conn.WriteTo(payload, tgt.addr); err != nil {
			out.Err = err
		}
		if out.Err != nil {
			d.log.Warn("command send failed", "request", req.ID, "robot", tgt.robotID, "err", out.Err)
		} else {
			d.log.Debug("command sent", "request", req.ID, "robot", tgt.robotID, "kind", req.Kind)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (d *Dispatcher) resolve(req Request) ([]target, error) {
	if req.Broadcast {
		all := d.table.All()
		targets := make([]target, 0, len(all))
		for id, rec := range all {
			targets = append(targets, target{robotID: id, addr: rec.Addr})
		}
		sort.Slice(targets, func(i, j int) bool { return targets[i].robotID < targets[j].robotID })
		return targets, nil
	}
	rec, ok := d.table.Get(req.Target)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRobot, req.Target)
	}
	return []target{{robotID: req.Target, addr: rec.Addr}}, nil
}
