package sim

import (
	"net"
	"sync"
	"time"

	"robodash/internal/ingest"
)

// Feed connects the simulator directly to the receive loop without a real
// socket. It satisfies both PayloadSender (simulator side) and
// ingest.PacketSource (dashboard side), making the simulator a drop-in
// replacement for the UDP transport.
type Feed struct {
	ch        chan []byte
	addr      net.Addr
	poll      time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

// NewFeed creates an in-process datagram channel.
func NewFeed() *Feed {
	return &Feed{
		ch:   make(chan []byte, 64),
		addr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0},
		poll: 100 * time.Millisecond,
		done: make(chan struct{}),
	}
}

// SendPayload queues one payload for the receiver. Payloads are dropped once
// the feed is closed or the buffer is full, mirroring UDP semantics.
func (f *Feed) SendPayload(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	select {
	case <-f.done:
		return net.ErrClosed
	case f.ch <- cp:
		return nil
	default:
		return nil // full buffer: drop, like a lossy datagram transport
	}
}

// ReadPacket implements ingest.PacketSource.
func (f *Feed) ReadPacket(buf []byte) (int, net.Addr, error) {
	select {
	case <-f.done:
		return 0, nil, net.ErrClosed
	case data := <-f.ch:
		return copy(buf, data), f.addr, nil
	case <-time.After(f.poll):
		return 0, nil, ingest.ErrNoPacket
	}
}

// Close stops the feed. Safe to call more than once.
func (f *Feed) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}
