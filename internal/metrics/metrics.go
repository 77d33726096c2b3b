// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CapturePacketsTotal counts frames pulled from the source by outcome.
	CapturePacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seqgap_capture_packets_total",
			Help: "Total number of frames pulled from the capture source",
		},
		[]string{"interface", "result"}, // result: accepted | rejected
	)

	// CaptureDropsTotal counts packets the capture subsystem reported dropped.
	CaptureDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seqgap_capture_drops_total",
			Help: "Total number of packets dropped by the capture subsystem",
		},
		[]string{"interface"},
	)

	// CaptureProgress tracks accepted packets as a fraction of the target.
	CaptureProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seqgap_capture_progress_ratio",
			Help: "Accepted packets divided by the target count",
		},
		[]string{"interface"},
	)

	// GapEstimatedLost is the loss estimate from the last analysis.
	GapEstimatedLost = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seqgap_gap_estimated_lost_packets",
			Help: "Packets missing from the sequence in the last analysed run",
		},
		[]string{"interface"},
	)
)

// Result label values for CapturePacketsTotal.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)
