//go:build linux

package source

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/seqgap/internal/core"
)

const defaultRingSizeMB = 32

// afpacketSource reads from a TPACKET_V3 memory-mapped ring.
type afpacketSource struct {
	handle *afpacket.TPacket
}

// OpenAFPacket opens an AF_PACKET ring on the device with the port filter attached.
func OpenAFPacket(opts Options) (Source, error) {
	if _, err := FindDevice(opts.Device); err != nil {
		return nil, err
	}

	snapLen := opts.SnapLen
	if snapLen <= 0 {
		snapLen = defaultSnapLen
	}
	ringMB := opts.BufferSize / (1024 * 1024)
	if ringMB <= 0 {
		ringMB = defaultRingSizeMB
	}
	timeout := opts.PollTimeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}

	frameSize, blockSize, numBlocks, err := recomputeSize(ringMB, snapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCaptureOpen, err)
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(opts.Device),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(timeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrCaptureOpen, opts.Device, err)
	}

	expr := opts.FilterExpr()
	prog, err := CompileBPF(layers.LinkTypeEthernet, expr, frameSize)
	if err != nil {
		tp.Close()
		return nil, err
	}
	if err := tp.SetBPF(prog); err != nil {
		tp.Close()
		return nil, fmt.Errorf("%w: %q: %v", core.ErrFilterInstall, expr, err)
	}

	slog.Info("live capture opened",
		"backend", BackendAFPacket,
		"device", opts.Device,
		"filter", expr,
		"frame_size", frameSize,
		"block_size", blockSize,
		"num_blocks", numBlocks)

	return &afpacketSource{handle: tp}, nil
}

func (s *afpacketSource) Next() (core.RawPacket, error) {
	data, ci, err := s.handle.ReadPacketData()
	if err != nil {
		if errors.Is(err, afpacket.ErrTimeout) {
			return core.RawPacket{}, ErrNoPacket
		}
		return core.RawPacket{}, err
	}
	return core.RawPacket{Data: data, Timestamp: ci.Timestamp}, nil
}

// Stats reports ring drops. TPacket accumulates the kernel counters,
// which reset on every read, so the values are cumulative.
func (s *afpacketSource) Stats() (Stats, error) {
	_, v3, err := s.handle.SocketStats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Received: uint64(v3.Packets()),
		Dropped:  uint64(v3.Drops()),
	}, nil
}

func (s *afpacketSource) Close() error {
	s.handle.Close()
	return nil
}
