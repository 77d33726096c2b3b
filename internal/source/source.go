// Package source provides the capture sources the capture loop polls:
// live libpcap, AF_PACKET and offline pcap files.
package source

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"firestige.xyz/seqgap/internal/core"
)

var (
	// ErrNoPacket means nothing is available yet; the caller polls again.
	ErrNoPacket = errors.New("source: no packet available")
	// ErrExhausted means an offline source has no more packets.
	ErrExhausted = errors.New("source: exhausted")
)

// Backend names accepted by Open.
const (
	BackendPcap     = "pcap"
	BackendAFPacket = "afpacket"
)

// Source is a non-blocking packet source.
type Source interface {
	// Next returns the next frame, ErrNoPacket when none is ready,
	// or ErrExhausted when an offline source has been fully read.
	Next() (core.RawPacket, error)
	// Stats returns cumulative, monotonic drop counters.
	Stats() (Stats, error)
	Close() error
}

// Stats are cumulative capture counters.
type Stats struct {
	Received  uint64 // packets seen by the capture subsystem
	Dropped   uint64 // dropped for lack of buffer space
	IfDropped uint64 // dropped by the interface or driver
}

// TotalDropped sums buffer and interface drops.
func (s Stats) TotalDropped() uint64 {
	return s.Dropped + s.IfDropped
}

// Options configures a live capture.
type Options struct {
	Device      string
	Port        int
	Filter      string // overrides the port filter when set
	SnapLen     int
	BufferSize  int // kernel buffer in bytes
	Promisc     bool
	PollTimeout time.Duration
}

// FilterExpr returns the BPF expression to install.
func (o Options) FilterExpr() string {
	if f := strings.TrimSpace(o.Filter); f != "" {
		return f
	}
	return Filter(o.Port)
}

// Filter builds the destination-port filter for the spectrometer stream.
func Filter(port int) string {
	return fmt.Sprintf("udp dst port %d", port)
}

// Open opens a live source on the named backend.
func Open(backend string, opts Options) (Source, error) {
	switch backend {
	case BackendPcap, "":
		return OpenLive(opts)
	case BackendAFPacket:
		return OpenAFPacket(opts)
	default:
		return nil, fmt.Errorf("%w: unknown capture backend %q", core.ErrConfigInvalid, backend)
	}
}
