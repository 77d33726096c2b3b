package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"firestige.xyz/seqgap/internal/core"
)

const (
	defaultKafkaTimeout     = 10 * time.Second
	defaultKafkaCompression = "snappy"
)

// KafkaConfig configures report publication.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	Compression string        // none|gzip|snappy|lz4|zstd
	Timeout     time.Duration // per publish
}

// KafkaPublisher sends each report as one JSON message keyed by run ID.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

// NewKafkaPublisher validates cfg and creates the writer. No connection is made
// until the first Publish.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: kafka brokers are required", core.ErrConfigInvalid)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: kafka topic is required", core.ErrConfigInvalid)
	}
	codec, err := parseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultKafkaTimeout
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			Compression:  codec,
			RequiredAcks: kafka.RequireAll,
			BatchSize:    1,
		},
		timeout: timeout,
	}, nil
}

func parseCompression(name string) (kafka.Compression, error) {
	if name == "" {
		name = defaultKafkaCompression
	}
	switch name {
	case "none":
		return 0, nil
	case "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	default:
		return 0, fmt.Errorf("%w: invalid kafka compression %q", core.ErrConfigInvalid, name)
	}
}

// Publish writes r synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, r *Report) error {
	msg, err := message(r)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish report to kafka: %w", err)
	}
	slog.Info("report published", "topic", p.writer.Topic, "run_id", r.RunID)
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func message(r *Report) (kafka.Message, error) {
	value, err := json.Marshal(r)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode report: %w", err)
	}
	return kafka.Message{
		Key:   []byte(r.RunID),
		Value: value,
		Time:  r.StartedAt,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "source", Value: []byte(r.Source)},
		},
	}, nil
}
