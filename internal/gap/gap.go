// Package gap summarises a run of sequence counters as a histogram of the
// differences between neighbours after sorting.
package gap

import (
	"fmt"
	"math"
	"math/bits"
	"slices"

	"gonum.org/v1/gonum/stat"

	"firestige.xyz/seqgap/internal/core"
)

// Bin is one distinct gap value and how often it occurred.
type Bin struct {
	Value uint64 `json:"gap" yaml:"gap"`
	Count int    `json:"count" yaml:"count"`
}

// Histogram holds bins in strictly ascending Value order.
type Histogram []Bin

// Pairs returns the number of adjacent pairs the histogram covers.
func (h Histogram) Pairs() int {
	n := 0
	for _, b := range h {
		n += b.Count
	}
	return n
}

// Analyze sorts counts in place and returns the histogram of consecutive
// differences. The caller hands over ownership of counts.
func Analyze(counts []uint64) (Histogram, error) {
	slices.Sort(counts)
	deltas, err := Deltas(counts)
	if err != nil {
		return nil, err
	}
	slices.Sort(deltas)
	return Encode(deltas), nil
}

// Deltas returns counts[i+1]-counts[i] for each adjacent pair. counts must be
// sorted ascending; a descending pair fails with core.ErrUnsorted instead of
// wrapping around.
func Deltas(sorted []uint64) ([]uint64, error) {
	if len(sorted) < 2 {
		return nil, nil
	}
	out := make([]uint64, len(sorted)-1)
	for i := range out {
		a, b := sorted[i], sorted[i+1]
		if b < a {
			return nil, fmt.Errorf("%w: index %d holds %d after %d", core.ErrUnsorted, i+1, b, a)
		}
		out[i] = b - a
	}
	return out, nil
}

// Encode run-length encodes an ascending slice of deltas.
func Encode(sorted []uint64) Histogram {
	var h Histogram
	for _, v := range sorted {
		if n := len(h); n > 0 && h[n-1].Value == v {
			h[n-1].Count++
			continue
		}
		h = append(h, Bin{Value: v, Count: 1})
	}
	return h
}

// Summary is a reading of the histogram assuming a stride of one between
// consecutive packets. The histogram itself makes no such assumption.
type Summary struct {
	Pairs          int     `json:"pairs" yaml:"pairs"`
	Duplicates     int     `json:"duplicates" yaml:"duplicates"`         // gap 0
	Contiguous     int     `json:"contiguous" yaml:"contiguous"`         // gap 1
	Gaps           int     `json:"gaps" yaml:"gaps"`                     // gap > 1
	EstimatedLost  uint64  `json:"estimated_lost" yaml:"estimated_lost"` // sum of (gap-1) over gaps
	LargestGap     uint64  `json:"largest_gap" yaml:"largest_gap"`
	MeanDelta      float64 `json:"mean_delta" yaml:"mean_delta"`
	StdDevDelta    float64 `json:"stddev_delta" yaml:"stddev_delta"`
	LossPercentage float64 `json:"loss_percentage" yaml:"loss_percentage"` // lost / (lost + received)
}

// Summarize derives loss figures from h.
func Summarize(h Histogram) Summary {
	var s Summary
	if len(h) == 0 {
		return s
	}

	var lostF float64
	values := make([]float64, len(h))
	weights := make([]float64, len(h))
	for i, b := range h {
		values[i] = float64(b.Value)
		weights[i] = float64(b.Count)
		s.Pairs += b.Count

		switch {
		case b.Value == 0:
			s.Duplicates += b.Count
		case b.Value == 1:
			s.Contiguous += b.Count
		default:
			s.Gaps += b.Count
			s.EstimatedLost = addMulSat(s.EstimatedLost, b.Value-1, uint64(b.Count))
			lostF += (float64(b.Value) - 1) * float64(b.Count)
		}
	}
	s.LargestGap = h[len(h)-1].Value

	s.MeanDelta, s.StdDevDelta = stat.MeanStdDev(values, weights)
	if s.Pairs < 2 {
		s.StdDevDelta = 0
	}

	// Computed in float64 so an extreme counter cannot wrap the denominator.
	received := float64(s.Pairs + 1)
	s.LossPercentage = lostF / (lostF + received) * 100
	return s
}

// addMulSat returns acc + a*b, clamped to math.MaxUint64.
func addMulSat(acc, a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	sum, carry := bits.Add64(acc, lo, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}
