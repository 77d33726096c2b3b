package synth

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"firestige.xyz/seqgap/internal/payload"
)

// tick is the pacing granularity. Each tick sends whatever the rate allows
// for the time elapsed since the first packet.
const tick = time.Millisecond

// Sender transmits encoded payloads as UDP datagrams.
type Sender struct {
	conn net.Conn
	rate int
}

// Dial opens a UDP socket to addr. rate is packets per second; zero sends as
// fast as the socket allows.
func Dial(addr string, rate int) (*Sender, error) {
	if rate < 0 {
		return nil, fmt.Errorf("rate must not be negative, got %d", rate)
	}
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &Sender{conn: conn, rate: rate}, nil
}

// Send transmits one datagram per counter in order and returns how many were
// written. It stops early when ctx is cancelled.
func (s *Sender) Send(ctx context.Context, counters []uint64) (int, error) {
	rec := Tone(0)
	body := make([]byte, payload.PayloadSize)

	var ticker *time.Ticker
	if s.rate > 0 {
		ticker = time.NewTicker(tick)
		defer ticker.Stop()
	}

	start := time.Now()
	sent := 0
	for sent < len(counters) {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		due := len(counters)
		if ticker != nil {
			due = min(dueAt(s.rate, time.Since(start)), len(counters))
			if due <= sent {
				select {
				case <-ctx.Done():
					return sent, ctx.Err()
				case <-ticker.C:
				}
				continue
			}
		}

		for ; sent < due; sent++ {
			rec.SequenceCounter = counters[sent]
			payload.EncodeInto(body, rec)
			if _, err := s.conn.Write(body); err != nil {
				return sent, fmt.Errorf("failed to send counter %d: %w", counters[sent], err)
			}
		}
	}
	slog.Debug("synthetic stream sent", "remote", s.conn.RemoteAddr().String(), "packets", sent)
	return sent, nil
}

// dueAt is the number of packets a stream at rate packets per second should
// have sent after elapsed. The first packet is due immediately.
func dueAt(rate int, elapsed time.Duration) int {
	return int(float64(rate)*elapsed.Seconds()) + 1
}

// Close releases the socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}
