// Package report renders the outcome of a capture run: console, JSON and
// YAML dumps, an HTML chart, and publication to Kafka.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"firestige.xyz/seqgap/internal/capture"
	"firestige.xyz/seqgap/internal/core"
	"firestige.xyz/seqgap/internal/gap"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Meta describes where a run came from.
type Meta struct {
	Interface string
	Source    string // e.g. "pcap", "afpacket", "file:/tmp/x.pcap"
	Filter    string
	Target    int
	StartedAt time.Time
}

// Report is the serialisable result of one run.
type Report struct {
	RunID          string        `json:"run_id" yaml:"run_id"`
	Interface      string        `json:"interface,omitempty" yaml:"interface,omitempty"`
	Source         string        `json:"source" yaml:"source"`
	Filter         string        `json:"filter" yaml:"filter"`
	StartedAt      time.Time     `json:"started_at" yaml:"started_at"`
	ElapsedSeconds float64       `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	Target         int           `json:"target" yaml:"target"`
	Accepted       int           `json:"accepted" yaml:"accepted"`
	Rejected       int           `json:"rejected" yaml:"rejected"`
	Drops          uint64        `json:"capture_drops" yaml:"capture_drops"`
	DropEvents     int           `json:"drop_events" yaml:"drop_events"`
	Partial        bool          `json:"partial" yaml:"partial"`
	Summary        gap.Summary   `json:"summary" yaml:"summary"`
	Histogram      gap.Histogram `json:"histogram" yaml:"histogram"`
}

// New assembles a report with a fresh run ID.
func New(meta Meta, res capture.Result, h gap.Histogram) *Report {
	if h == nil {
		h = gap.Histogram{}
	}
	return &Report{
		RunID:          uuid.NewString(),
		Interface:      meta.Interface,
		Source:         meta.Source,
		Filter:         meta.Filter,
		StartedAt:      meta.StartedAt.UTC(),
		ElapsedSeconds: res.Elapsed.Seconds(),
		Target:         meta.Target,
		Accepted:       res.Accepted,
		Rejected:       res.Rejected,
		Drops:          res.Drops,
		DropEvents:     res.DropEvents,
		Partial:        res.Partial,
		Summary:        gap.Summarize(h),
		Histogram:      h,
	}
}

// Write renders r to w in the given format.
func Write(w io.Writer, r *Report, format string) error {
	switch strings.ToLower(format) {
	case FormatText, "":
		return writeText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: unsupported report format %q (must be text/json/yaml)", core.ErrConfigInvalid, format)
	}
}

func writeText(w io.Writer, r *Report) error {
	var b strings.Builder

	b.WriteString("==================================================\n")
	b.WriteString("              seqgap sequence gap report          \n")
	b.WriteString("==================================================\n")

	b.WriteString("\n[RUN]\n")
	fmt.Fprintf(&b, "  Run ID:            %s\n", r.RunID)
	if r.Interface != "" {
		fmt.Fprintf(&b, "  Interface:         %s\n", r.Interface)
	}
	fmt.Fprintf(&b, "  Source:            %s\n", r.Source)
	fmt.Fprintf(&b, "  Filter:            %s\n", r.Filter)
	fmt.Fprintf(&b, "  Started:           %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "  Elapsed:           %.3fs\n", r.ElapsedSeconds)

	b.WriteString("\n[CAPTURE]\n")
	fmt.Fprintf(&b, "  Accepted:          %d / %d\n", r.Accepted, r.Target)
	fmt.Fprintf(&b, "  Rejected:          %d\n", r.Rejected)
	fmt.Fprintf(&b, "  Capture Drops:     %d (%d increases)\n", r.Drops, r.DropEvents)
	if r.Partial {
		b.WriteString("  Status:            PARTIAL (stopped before target)\n")
	}

	s := r.Summary
	b.WriteString("\n[SEQUENCE]\n")
	fmt.Fprintf(&b, "  Adjacent Pairs:    %d\n", s.Pairs)
	fmt.Fprintf(&b, "  Duplicates (0):    %d\n", s.Duplicates)
	fmt.Fprintf(&b, "  Contiguous (1):    %d\n", s.Contiguous)
	fmt.Fprintf(&b, "  Gaps (>1):         %d\n", s.Gaps)
	fmt.Fprintf(&b, "  Estimated Lost:    %d (%.4f%%)\n", s.EstimatedLost, s.LossPercentage)
	fmt.Fprintf(&b, "  Largest Gap:       %d\n", s.LargestGap)
	fmt.Fprintf(&b, "  Mean Delta:        %.4f (stddev %.4f)\n", s.MeanDelta, s.StdDevDelta)

	b.WriteString("\n[GAP HISTOGRAM]\n")
	fmt.Fprintf(&b, "  %-20s %s\n", "GAP", "COUNT")
	for _, bin := range r.Histogram {
		fmt.Fprintf(&b, "  %-20d %d\n", bin.Value, bin.Count)
	}
	b.WriteString("\n==================================================\n")

	_, err := io.WriteString(w, b.String())
	return err
}
