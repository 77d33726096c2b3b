package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"firestige.xyz/seqgap/internal/capture"
	"firestige.xyz/seqgap/internal/config"
	"firestige.xyz/seqgap/internal/gap"
	"firestige.xyz/seqgap/internal/metrics"
	"firestige.xyz/seqgap/internal/report"
	"firestige.xyz/seqgap/internal/source"
)

// publisher is the part of report.KafkaPublisher the run needs.
type publisher interface {
	Publish(ctx context.Context, r *report.Report) error
	Close() error
}

// newPublisher is replaced in tests.
var newPublisher = func(kc config.ReportKafkaConfig) (publisher, error) {
	return report.NewKafkaPublisher(report.KafkaConfig{
		Brokers:     kc.Brokers,
		Topic:       kc.Topic,
		Compression: kc.Compression,
		Timeout:     kc.TimeoutDuration(),
	})
}

func sourceOptions(cc config.CaptureConfig) source.Options {
	return source.Options{
		Device:      cc.Device,
		Port:        cc.Port,
		Filter:      cc.Filter,
		SnapLen:     cc.SnapLen,
		BufferSize:  cc.BufferSize,
		Promisc:     cc.Promisc,
		PollTimeout: cc.PollTimeoutDuration(),
	}
}

func loopConfig(cc config.CaptureConfig, label string) capture.Config {
	return capture.Config{
		Interface:     label,
		Target:        cc.TargetPackets,
		HeaderSize:    cc.HeaderSize,
		DecodeSamples: cc.DecodeSamples,
		SpectrumEvery: cc.SpectrumEvery,
		ProgressEvery: cc.ProgressEvery,
	}
}

// runAnalysis drives src until the target is reached, analyses the counters
// and emits the report to w, the chart file and Kafka as configured.
func runAnalysis(ctx context.Context, src source.Source, lc capture.Config, meta report.Meta, rc config.ReportConfig, w io.Writer) (*report.Report, error) {
	loop, err := capture.New(src, lc)
	if err != nil {
		return nil, err
	}

	meta.Target = lc.Target
	meta.StartedAt = time.Now()
	slog.Info("analysis run starting", "source", meta.Source, "filter", meta.Filter)

	res := loop.Run(ctx)

	h, err := gap.Analyze(res.Counters)
	if err != nil {
		return nil, fmt.Errorf("gap analysis failed: %w", err)
	}

	r := report.New(meta, res, h)
	metrics.GapEstimatedLost.WithLabelValues(lc.Interface).Set(float64(r.Summary.EstimatedLost))

	if err := report.Write(w, r, rc.Format); err != nil {
		return r, fmt.Errorf("failed to write report: %w", err)
	}

	if rc.Chart != "" {
		if err := report.WriteChart(rc.Chart, r); err != nil {
			return r, err
		}
		slog.Info("histogram chart written", "path", rc.Chart)
	}

	if rc.Kafka.Enabled {
		pub, err := newPublisher(rc.Kafka)
		if err != nil {
			return r, err
		}
		defer pub.Close()
		// An interrupted capture still publishes its partial report.
		if err := pub.Publish(context.WithoutCancel(ctx), r); err != nil {
			return r, err
		}
	}
	return r, nil
}

// startMetrics starts the Prometheus endpoint when enabled and returns its
// shutdown function.
func startMetrics(mc config.MetricsConfig) (func(), error) {
	if !mc.Enabled {
		return func() {}, nil
	}
	srv := metrics.NewServer(mc.Listen, mc.Path)
	if err := srv.Start(); err != nil {
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			slog.Warn("metrics server shutdown failed", "error", err)
		}
	}, nil
}
