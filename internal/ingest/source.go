// Datagram sources feeding the receive loop
package ingest

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// ErrNoPacket reports that no datagram arrived within the poll window. The
// receive loop treats it as a normal idle iteration; it is what keeps the
// loop cancellable without an unbounded blocking read.
var ErrNoPacket = errors.New("no packet within poll interval")

// PacketSource abstracts where datagrams come from, so the robot simulator
// can stand in for the real UDP socket. ReadPacket waits at most one poll
// interval, fills buf, and returns the payload length and sender endpoint.
// A source that has been closed returns a non-ErrNoPacket error.
type PacketSource interface {
	ReadPacket(buf []byte) (int, net.Addr, error)
	Close() error
}

// ConfigError reports a socket that could not be bound, typically because a
// second receiver was started on the same port. Surfaced at startup, never
// swallowed.
type ConfigError struct {
	Port int
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cannot bind udp port %d: %v", e.Port, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// UDPSource reads datagrams from a bound UDP socket with a per-read
// deadline.
type UDPSource struct {
	conn      *net.UDPConn
	poll      time.Duration
	closeOnce sync.Once
	closeErr  error
}

// ListenUDP binds the given port on all interfaces. A bind failure (port
// already taken) is returned as a *ConfigError.
func ListenUDP(port int, poll time.Duration) (*UDPSource, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, &ConfigError{Port: port, Err: err}
	}
	if poll <= 0 {
		poll = time.Second
	}
	return &UDPSource{conn: conn, poll: poll}, nil
}

// ReadPacket reads the next datagram, waiting at most the poll interval.
func (s *UDPSource) ReadPacket(buf []byte) (int, net.Addr, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.poll)); err != nil {
		return 0, nil, err
	}
	n, addr, err := s.conn.ReadFrom(buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return 0, nil, ErrNoPacket
		}
		return 0, nil, err
	}
	return n, addr, nil
}

// Close releases the socket. Safe to call more than once.
func (s *UDPSource) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.conn.Close() })
	return s.closeErr
}

// LocalAddr returns the bound address, useful when port 0 was requested.
func (s *UDPSource) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}
