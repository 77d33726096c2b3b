// Package synth produces synthetic spectrometer streams for validating a
// capture host without the FPGA: counter plans with injected faults, Ethernet
// frames, offline pcap files and live UDP transmission.
package synth

import (
	"fmt"

	"firestige.xyz/seqgap/internal/core"
)

// Plan describes the counters to emit. Positions are 1-based within the
// nominal stream Start, Start+1, ...; an Every value of zero disables that
// fault.
type Plan struct {
	Start          uint64
	Count          int // counters emitted, duplicates included
	SkipEvery      int // omit every Nth nominal counter
	DuplicateEvery int // emit every Nth nominal counter twice
	ReorderEvery   int // swap every Nth emitted counter with its successor
}

// Validate rejects plans that cannot produce Count counters.
func (p Plan) Validate() error {
	switch {
	case p.Count < 0:
		return fmt.Errorf("%w: count must not be negative, got %d", core.ErrConfigInvalid, p.Count)
	case p.SkipEvery < 0, p.DuplicateEvery < 0, p.ReorderEvery < 0:
		return fmt.Errorf("%w: fault intervals must not be negative", core.ErrConfigInvalid)
	case p.SkipEvery == 1:
		return fmt.Errorf("%w: skip-every 1 would skip every counter", core.ErrConfigInvalid)
	}
	return nil
}

// Sequence expands p into the emitted counter order. A position that is both
// skipped and duplicated is skipped.
func Sequence(p Plan) ([]uint64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Count == 0 {
		return nil, nil
	}
	out := make([]uint64, 0, p.Count)
	for c := p.Start; len(out) < p.Count; c++ {
		pos := int(c-p.Start) + 1
		if p.SkipEvery > 0 && pos%p.SkipEvery == 0 {
			continue
		}
		out = append(out, c)
		if p.DuplicateEvery > 0 && pos%p.DuplicateEvery == 0 && len(out) < p.Count {
			out = append(out, c)
		}
	}
	if p.ReorderEvery > 0 {
		for i := p.ReorderEvery - 1; i+1 < len(out); i += p.ReorderEvery {
			out[i], out[i+1] = out[i+1], out[i]
		}
	}
	return out, nil
}
