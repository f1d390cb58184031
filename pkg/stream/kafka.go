// Package stream provides Kafka readers and writers for the plant telemetry topics.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Topic names used by the pipeline.
const (
	SensorTopic = "plant-sensors"
	AlertTopic  = "plant-alerts"
)

// writeBatchTimeout bounds how long a synchronous WriteMessages call waits for
// more messages before flushing. kafka-go defaults to one second.
const writeBatchTimeout = 10 * time.Millisecond

// ReaderConfig holds the configuration for a consumer-group reader.
type ReaderConfig struct {
	Logger  *slog.Logger
	Topic   string
	GroupID string
	Brokers []string
}

// WriterConfig holds the configuration for a topic writer.
type WriterConfig struct {
	Logger  *slog.Logger
	Topic   string
	Brokers []string
}

// NewReader creates a consumer-group reader with manual commits.
func NewReader(cfg *ReaderConfig) (*kafka.Reader, error) {
	if cfg == nil {
		return nil, errors.New("reader config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers cannot be empty")
	}
	if cfg.Topic == "" {
		return nil, errors.New("topic cannot be empty")
	}
	if cfg.GroupID == "" {
		return nil, errors.New("group id cannot be empty")
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.LastOffset,
		CommitInterval: 0, // commit synchronously in CommitMessages
		ErrorLogger:    kafka.LoggerFunc(errorLogFunc(cfg.Logger)),
	}), nil
}

// NewWriter creates a writer that partitions messages by key.
// Writes are flushed after a short batch timeout, so a single WriteMessages
// call returns as soon as the broker acknowledges it.
func NewWriter(cfg *WriterConfig) (*kafka.Writer, error) {
	if cfg == nil {
		return nil, errors.New("writer config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers cannot be empty")
	}
	if cfg.Topic == "" {
		return nil, errors.New("topic cannot be empty")
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           writeBatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		ErrorLogger:            kafka.LoggerFunc(errorLogFunc(cfg.Logger)),
	}, nil
}

// Ping dials each broker once and fails if none is reachable.
func Ping(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return errors.New("kafka brokers cannot be empty")
	}

	var errs []error
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, fmt.Errorf("dial %s: %w", broker, err))
			continue
		}
		_ = conn.Close()
		return nil
	}
	return fmt.Errorf("no kafka broker reachable: %w", errors.Join(errs...))
}

func errorLogFunc(logger *slog.Logger) func(string, ...interface{}) {
	return func(msg string, args ...interface{}) {
		logger.Error("kafka client error", "detail", fmt.Sprintf(msg, args...))
	}
}
