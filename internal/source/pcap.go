package source

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/gopacket/pcap"

	"firestige.xyz/seqgap/internal/core"
)

const (
	defaultSnapLen     = 65535
	defaultPollTimeout = time.Millisecond
)

// pcapSource reads from a libpcap handle, live or offline.
type pcapSource struct {
	handle  *pcap.Handle
	offline bool
}

// OpenLive opens a live libpcap capture with the destination-port filter installed.
// The handle uses immediate mode and the shortest read timeout so every
// Next call returns promptly whether or not a packet arrived.
func OpenLive(opts Options) (Source, error) {
	if _, err := FindDevice(opts.Device); err != nil {
		return nil, err
	}

	inactive, err := pcap.NewInactiveHandle(opts.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrCaptureOpen, opts.Device, err)
	}
	defer inactive.CleanUp()

	snapLen := opts.SnapLen
	if snapLen <= 0 {
		snapLen = defaultSnapLen
	}
	timeout := opts.PollTimeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}

	if err := inactive.SetSnapLen(snapLen); err != nil {
		return nil, fmt.Errorf("%w: set snaplen: %v", core.ErrCaptureOpen, err)
	}
	if err := inactive.SetPromisc(opts.Promisc); err != nil {
		return nil, fmt.Errorf("%w: set promisc: %v", core.ErrCaptureOpen, err)
	}
	if err := inactive.SetTimeout(timeout); err != nil {
		return nil, fmt.Errorf("%w: set timeout: %v", core.ErrCaptureOpen, err)
	}
	if err := inactive.SetImmediateMode(true); err != nil {
		return nil, fmt.Errorf("%w: set immediate mode: %v", core.ErrCaptureOpen, err)
	}
	if opts.BufferSize > 0 {
		if err := inactive.SetBufferSize(opts.BufferSize); err != nil {
			return nil, fmt.Errorf("%w: set buffer size: %v", core.ErrCaptureOpen, err)
		}
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("%w: activate %s: %v", core.ErrCaptureOpen, opts.Device, err)
	}

	expr := opts.FilterExpr()
	if err := handle.SetBPFFilter(expr); err != nil {
		handle.Close()
		return nil, fmt.Errorf("%w: %q: %v", core.ErrFilterInstall, expr, err)
	}

	slog.Info("live capture opened",
		"backend", BackendPcap,
		"device", opts.Device,
		"filter", expr,
		"buffer_size", opts.BufferSize,
		"snap_len", snapLen)

	return &pcapSource{handle: handle}, nil
}

// OpenFile opens an offline pcap file for replay. The port filter is applied
// so the file may hold unrelated traffic.
func OpenFile(path string, opts Options) (Source, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("%w: pcap file %s: %v", core.ErrCaptureOpen, path, err)
	}

	expr := opts.FilterExpr()
	if err := handle.SetBPFFilter(expr); err != nil {
		handle.Close()
		return nil, fmt.Errorf("%w: %q: %v", core.ErrFilterInstall, expr, err)
	}

	slog.Info("pcap file opened", "path", path, "filter", expr, "link_type", handle.LinkType().String())

	return &pcapSource{handle: handle, offline: true}, nil
}

func (s *pcapSource) Next() (core.RawPacket, error) {
	data, ci, err := s.handle.ReadPacketData()
	switch {
	case err == nil:
		return core.RawPacket{Data: data, Timestamp: ci.Timestamp}, nil
	case errors.Is(err, pcap.NextErrorTimeoutExpired):
		return core.RawPacket{}, ErrNoPacket
	case errors.Is(err, io.EOF), errors.Is(err, pcap.NextErrorNoMorePackets):
		if s.offline {
			return core.RawPacket{}, ErrExhausted
		}
		return core.RawPacket{}, err
	default:
		return core.RawPacket{}, err
	}
}

func (s *pcapSource) Stats() (Stats, error) {
	if s.offline {
		return Stats{}, nil
	}
	st, err := s.handle.Stats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Received:  uint64(st.PacketsReceived),
		Dropped:   uint64(st.PacketsDropped),
		IfDropped: uint64(st.PacketsIfDropped),
	}, nil
}

func (s *pcapSource) Close() error {
	s.handle.Close()
	return nil
}
