package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/seqgap/internal/core"
	"firestige.xyz/seqgap/internal/gap"
	"firestige.xyz/seqgap/internal/payload"
	"firestige.xyz/seqgap/internal/source"
)

// step is one scripted poll: a frame, or an error such as source.ErrNoPacket.
type step struct {
	data    []byte
	err     error
	dropped uint64
}

type scriptedSource struct {
	steps   []step
	pos     int
	dropped uint64
	polls   int
	closed  bool
}

func (s *scriptedSource) Next() (core.RawPacket, error) {
	s.polls++
	if s.pos >= len(s.steps) {
		return core.RawPacket{}, source.ErrExhausted
	}
	st := s.steps[s.pos]
	s.pos++
	if st.dropped > s.dropped {
		s.dropped = st.dropped
	}
	if st.err != nil {
		return core.RawPacket{}, st.err
	}
	return core.RawPacket{Data: st.data}, nil
}

func (s *scriptedSource) Stats() (source.Stats, error) {
	return source.Stats{Dropped: s.dropped / 2, IfDropped: s.dropped - s.dropped/2}, nil
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

func frame(seq uint64) []byte {
	b := make([]byte, payload.PacketSize)
	binary.BigEndian.PutUint64(b[payload.HeaderSize:], seq)
	// Junk in the header must not leak into the counter.
	for i := 0; i < payload.HeaderSize; i++ {
		b[i] = 0xEE
	}
	return b
}

func packets(seqs ...uint64) []step {
	out := make([]step, len(seqs))
	for i, s := range seqs {
		out[i] = step{data: frame(s)}
	}
	return out
}

func newTestLoop(t *testing.T, src source.Source, target int, logBuf *bytes.Buffer) *Loop {
	t.Helper()
	var logger *slog.Logger
	if logBuf != nil {
		logger = slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	l, err := New(src, Config{
		Interface:  "test0",
		Target:     target,
		HeaderSize: payload.HeaderSize,
		Logger:     logger,
	})
	require.NoError(t, err)
	return l
}

func TestRunCollectsInArrivalOrder(t *testing.T) {
	src := &scriptedSource{steps: packets(5, 3, 3, 10)}
	res := newTestLoop(t, src, 4, nil).Run(context.Background())

	assert.False(t, res.Partial)
	assert.Equal(t, 4, res.Accepted)
	assert.Equal(t, []uint64{5, 3, 3, 10}, res.Counters)
}

func TestRunEndToEndHistogram(t *testing.T) {
	src := &scriptedSource{steps: packets(5, 3, 3, 10)}
	res := newTestLoop(t, src, 4, nil).Run(context.Background())

	h, err := gap.Analyze(res.Counters)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 3, 5, 10}, res.Counters)
	assert.Equal(t, gap.Histogram{{Value: 0, Count: 1}, {Value: 2, Count: 1}, {Value: 5, Count: 1}}, h)
}

func TestRunRejectsWrongSize(t *testing.T) {
	steps := []step{
		{data: make([]byte, payload.PacketSize-1)},
		{data: frame(7)},
		{data: make([]byte, payload.PacketSize+14)},
		{data: nil},
		{data: frame(8)},
	}
	var logs bytes.Buffer
	src := &scriptedSource{steps: steps}
	res := newTestLoop(t, src, 2, &logs).Run(context.Background())

	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 3, res.Rejected)
	assert.Equal(t, []uint64{7, 8}, res.Counters)
	assert.Equal(t, 3, strings.Count(logs.String(), "rejected packet with unexpected size"))
}

func TestRunWrongSizeDoesNotAdvance(t *testing.T) {
	src := &scriptedSource{steps: []step{{data: make([]byte, 100)}}}
	res := newTestLoop(t, src, 1, nil).Run(context.Background())

	assert.True(t, res.Partial)
	assert.Equal(t, 0, res.Accepted)
	assert.Empty(t, res.Counters)
}

func TestRunPollsThroughEmptyReads(t *testing.T) {
	steps := []step{
		{err: source.ErrNoPacket},
		{err: source.ErrNoPacket},
		{err: errors.New("transient read error")},
		{data: frame(1)},
		{err: source.ErrNoPacket},
		{data: frame(2)},
	}
	src := &scriptedSource{steps: steps}
	res := newTestLoop(t, src, 2, nil).Run(context.Background())

	assert.False(t, res.Partial)
	assert.Equal(t, []uint64{1, 2}, res.Counters)
	assert.Equal(t, 6, src.polls)
}

func TestRunStopsExactlyAtTarget(t *testing.T) {
	src := &scriptedSource{steps: packets(1, 2, 3, 4, 5)}
	res := newTestLoop(t, src, 3, nil).Run(context.Background())

	assert.Equal(t, 3, res.Accepted)
	assert.Equal(t, 3, src.polls)
	assert.Equal(t, []uint64{1, 2, 3}, res.Counters)
}

func TestRunDropReportingIsEdgeTriggered(t *testing.T) {
	steps := []step{
		{err: source.ErrNoPacket},
		{err: source.ErrNoPacket, dropped: 2},
		{err: source.ErrNoPacket, dropped: 2},
		{data: frame(1), dropped: 2},
		{err: source.ErrNoPacket, dropped: 5},
		{data: frame(2), dropped: 5},
	}
	var logs bytes.Buffer
	src := &scriptedSource{steps: steps}
	res := newTestLoop(t, src, 2, &logs).Run(context.Background())

	assert.Equal(t, 2, res.DropEvents)
	assert.Equal(t, uint64(5), res.Drops)
	assert.Equal(t, 2, strings.Count(logs.String(), "capture is dropping packets"))
}

func TestRunExhaustedSourceIsPartial(t *testing.T) {
	src := &scriptedSource{steps: packets(9, 10)}
	res := newTestLoop(t, src, 5, nil).Run(context.Background())

	assert.True(t, res.Partial)
	assert.Equal(t, []uint64{9, 10}, res.Counters)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &scriptedSource{steps: packets(1, 2)}
	res := newTestLoop(t, src, 2, nil).Run(ctx)

	assert.True(t, res.Partial)
	assert.Equal(t, 0, res.Accepted)
	assert.Equal(t, 0, src.polls)
}

func TestRunDecodeSamples(t *testing.T) {
	var rec payload.Record
	rec.SequenceCounter = 77
	rec.PolA[12] = payload.Sample{Re: 100, Im: -100}
	b := make([]byte, payload.HeaderSize, payload.PacketSize)
	b = append(b, payload.Encode(&rec)...)

	var logs bytes.Buffer
	l, err := New(&scriptedSource{steps: []step{{data: b}}}, Config{
		Interface:     "test0",
		Target:        1,
		HeaderSize:    payload.HeaderSize,
		DecodeSamples: true,
		SpectrumEvery: 1,
		Logger:        slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	require.NoError(t, err)

	res := l.Run(context.Background())
	assert.Equal(t, []uint64{77}, res.Counters)
	assert.Contains(t, logs.String(), "pol_a_channel=12")
	assert.Contains(t, logs.String(), "pol_a_power=20000")
	assert.Contains(t, logs.String(), "pol_b_channel=0")
	assert.Contains(t, logs.String(), "pol_b_power=0")
}

func TestNewValidation(t *testing.T) {
	src := &scriptedSource{}
	tests := []struct {
		name string
		src  source.Source
		cfg  Config
	}{
		{name: "nil source", src: nil, cfg: Config{Target: 1}},
		{name: "zero target", src: src, cfg: Config{Target: 0}},
		{name: "negative header", src: src, cfg: Config{Target: 1, HeaderSize: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.src, tt.cfg)
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
		})
	}
}

func TestPacketSize(t *testing.T) {
	l, err := New(&scriptedSource{}, Config{Target: 1, HeaderSize: 46})
	require.NoError(t, err)
	assert.Equal(t, 46+payload.PayloadSize, l.PacketSize())
}
