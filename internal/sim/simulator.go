// Simulator feeding fake robot status to the dashboard
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"time"

	"robodash/internal/telemetry"
)

// PayloadSender delivers one encoded status datagram. Implemented by
// UDPSender for the real transport and by Feed for in-process drop-in mode.
type PayloadSender interface {
	SendPayload(data []byte) error
}

// DefaultTick is the ~10 Hz cadence real robots report at.
const DefaultTick = 100 * time.Millisecond

// Simulator drives a handful of robots plus a shared bouncing ball and sends
// their status payloads on every tick.
type Simulator struct {
	robots []*Robot
	sender PayloadSender
	tick   time.Duration
	log    *slog.Logger

	ballX, ballY   float64
	ballVX, ballVY float64
}

// NewSimulator creates count robots on the given team.
func NewSimulator(count, teamID int, sender PayloadSender, tick time.Duration, log *slog.Logger) *Simulator {
	if tick <= 0 {
		tick = DefaultTick
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Simulator{
		sender: sender,
		tick:   tick,
		log:    log,
		ballVX: rand.Float64()*2 - 1,
		ballVY: rand.Float64()*2 - 1,
	}
	for i := 0; i < count; i++ {
		s.robots = append(s.robots, newRobot(i, teamID))
	}
	return s
}

func newRobotName(id int) string {
	return fmt.Sprintf("robot%d", id+1)
}

// Run sends status at the tick cadence until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) {
	s.log.Info("robot simulator started", "robots", len(s.robots), "tick", s.tick)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("robot simulator stopping")
			return
		case now := <-ticker.C:
			s.step(now.Sub(last), now)
			last = now
		}
	}
}

// step advances ball and robots by dt and sends one payload per robot.
func (s *Simulator) step(dt time.Duration, now time.Time) {
	s.stepBall(dt.Seconds())
	for _, r := range s.robots {
		r.step(dt, s.ballX, s.ballY)
		data, err := telemetry.Encode(r.Status(now))
		if err != nil {
			s.log.Warn("encode failed", "robot", r.ID, "err", err)
			continue
		}
		if err := s.sender.SendPayload(data); err != nil {
			s.log.Warn("send failed", "robot", r.ID, "err", err)
		}
	}
}

func (s *Simulator) stepBall(dt float64) {
	s.ballX += s.ballVX * dt
	s.ballY += s.ballVY * dt

	// Bounce off field boundaries with some energy loss.
	if s.ballX > 4.0 || s.ballX < -4.0 {
		s.ballVX *= -0.8
		s.ballX = clamp(s.ballX, -4.0, 4.0)
	}
	if s.ballY > 2.5 || s.ballY < -2.5 {
		s.ballVY *= -0.8
		s.ballY = clamp(s.ballY, -2.5, 2.5)
	}

	s.ballVX *= 0.99
	s.ballVY *= 0.99

	// Occasional random kick keeps the ball moving.
	if rand.Float64() < 0.01 {
		s.ballVX = rand.Float64()*4 - 2
		s.ballVY = rand.Float64()*4 - 2
	}
}

// UDPSender sends payloads to a dashboard over UDP.
type UDPSender struct {
	conn *net.UDPConn
}

// NewUDPSender dials the dashboard's listen endpoint, e.g. "127.0.0.1:8080".
func NewUDPSender(target string) (*UDPSender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &UDPSender{conn: conn}, nil
}

// SendPayload sends one datagram.
func (s *UDPSender) SendPayload(data []byte) error {
	_, err := s.conn.Write(data)
	return err
}

// Close releases the socket.
func (s *UDPSender) Close() error {
	return s.conn.Close()
}
