// Package capture implements the capture loop: it polls a source until a fixed
// number of correctly sized spectrometer packets has been accepted, recording
// each packet's sequence counter in arrival order.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"firestige.xyz/seqgap/internal/core"
	"firestige.xyz/seqgap/internal/metrics"
	"firestige.xyz/seqgap/internal/payload"
	"firestige.xyz/seqgap/internal/source"
)

// Config controls one capture run.
type Config struct {
	Interface     string // label for logs and metrics
	Target        int    // packets to accept before stopping
	HeaderSize    int    // link/IP/UDP prefix stripped before decode
	DecodeSamples bool   // decode the sample block, not just the counter
	SpectrumEvery int    // with DecodeSamples, log the peak channel every N packets
	ProgressEvery int    // log progress every N accepted packets; 0 disables
	Logger        *slog.Logger
}

// Result is the outcome of a run.
type Result struct {
	Counters   []uint64 // sequence counters in arrival order
	Accepted   int
	Rejected   int
	Drops      uint64 // last observed cumulative drop total
	DropEvents int    // number of observed drop increases
	Partial    bool   // stopped before reaching Target
	Elapsed    time.Duration
}

// Loop drives a source. It is single-use and not safe for concurrent use.
type Loop struct {
	src source.Source
	cfg Config
	log *slog.Logger
}

// New validates cfg and returns a loop over src.
func New(src source.Source, cfg Config) (*Loop, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil capture source", core.ErrConfigInvalid)
	}
	if cfg.Target <= 0 {
		return nil, fmt.Errorf("%w: target packet count must be positive, got %d", core.ErrConfigInvalid, cfg.Target)
	}
	if cfg.HeaderSize < 0 {
		return nil, fmt.Errorf("%w: header size must not be negative, got %d", core.ErrConfigInvalid, cfg.HeaderSize)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		src: src,
		cfg: cfg,
		log: logger.With("interface", cfg.Interface),
	}, nil
}

// PacketSize is the only frame length the loop accepts.
func (l *Loop) PacketSize() int {
	return l.cfg.HeaderSize + payload.PayloadSize
}

// Run polls until Target packets are accepted. It returns early with
// Result.Partial set when ctx is cancelled or an offline source runs out.
// Poll failures are not errors; the loop keeps polling.
func (l *Loop) Run(ctx context.Context) Result {
	var (
		target      = l.cfg.Target
		want        = l.PacketSize()
		counts      = make([]uint64, target)
		res         Result
		lastDropped uint64
		rec         payload.Record
		done        = ctx.Done()
		start       = time.Now()
	)

	acceptedCtr := metrics.CapturePacketsTotal.WithLabelValues(l.cfg.Interface, metrics.ResultAccepted)
	rejectedCtr := metrics.CapturePacketsTotal.WithLabelValues(l.cfg.Interface, metrics.ResultRejected)
	dropsCtr := metrics.CaptureDropsTotal.WithLabelValues(l.cfg.Interface)
	progress := metrics.CaptureProgress.WithLabelValues(l.cfg.Interface)

	l.log.Info("capture started", "target", target, "packet_size", want)

loop:
	for res.Accepted < target {
		select {
		case <-done:
			l.log.Warn("capture interrupted", "accepted", res.Accepted, "target", target)
			res.Partial = true
			break loop
		default:
		}

		pkt, err := l.src.Next()
		switch {
		case err == nil:
			if len(pkt.Data) != want {
				res.Rejected++
				rejectedCtr.Inc()
				l.log.Warn("rejected packet with unexpected size", "size", len(pkt.Data), "want", want)
				break
			}
			seq, err := l.sequence(pkt.Data[l.cfg.HeaderSize:], &rec, res.Accepted)
			if err != nil {
				res.Rejected++
				rejectedCtr.Inc()
				l.log.Warn("rejected undecodable packet", "error", err)
				break
			}
			counts[res.Accepted] = seq
			res.Accepted++
			acceptedCtr.Inc()
			if l.cfg.ProgressEvery > 0 && res.Accepted%l.cfg.ProgressEvery == 0 {
				progress.Set(float64(res.Accepted) / float64(target))
				l.log.Info("capture progress", "accepted", res.Accepted, "target", target, "rejected", res.Rejected)
			}
		case errors.Is(err, source.ErrNoPacket):
		case errors.Is(err, source.ErrExhausted):
			l.log.Warn("capture source exhausted", "accepted", res.Accepted, "target", target)
			res.Partial = true
			break loop
		default:
			l.log.Debug("poll failed", "error", err)
		}

		// Runs on every iteration so drop reporting is not starved by idle polls.
		st, err := l.src.Stats()
		if err != nil {
			l.log.Debug("stats unavailable", "error", err)
			continue
		}
		if total := st.TotalDropped(); total > lastDropped {
			delta := total - lastDropped
			dropsCtr.Add(float64(delta))
			res.DropEvents++
			l.log.Warn("capture is dropping packets",
				"new_drops", delta,
				"dropped", st.Dropped,
				"if_dropped", st.IfDropped)
			lastDropped = total
		}
	}

	progress.Set(float64(res.Accepted) / float64(target))
	res.Counters = counts[:res.Accepted]
	res.Drops = lastDropped
	res.Elapsed = time.Since(start)

	l.log.Info("capture finished",
		"accepted", res.Accepted,
		"rejected", res.Rejected,
		"drops", res.Drops,
		"partial", res.Partial,
		"elapsed", res.Elapsed)
	return res
}

// sequence extracts the counter, decoding the whole record when configured to.
func (l *Loop) sequence(body []byte, rec *payload.Record, n int) (uint64, error) {
	if !l.cfg.DecodeSamples {
		return payload.SequenceCounter(body)
	}
	if err := payload.DecodeInto(body, rec); err != nil {
		return 0, err
	}
	if l.cfg.SpectrumEvery > 0 && n%l.cfg.SpectrumEvery == 0 {
		attrs := []any{"sequence", rec.SequenceCounter}
		for _, pol := range []payload.Polarization{payload.PolA, payload.PolB} {
			ch, pw := rec.PeakChannel(pol)
			key := "pol_" + strings.ToLower(pol.String())
			attrs = append(attrs, key+"_channel", ch, key+"_power", pw)
		}
		l.log.Debug("spectrum peak", attrs...)
	}
	return rec.SequenceCounter, nil
}
