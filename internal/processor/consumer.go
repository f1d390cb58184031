package processor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"procodus.dev/plant-processor/pkg/metrics"
	"procodus.dev/plant-processor/pkg/plant"
	"procodus.dev/plant-processor/pkg/stream"
)

const defaultFetchBackoff = time.Second

// Handler processes one decoded reading. The consumer commits the message
// whatever Handle returns; failures are expected to be logged and counted
// by the handler itself.
type Handler interface {
	Handle(ctx context.Context, reading *plant.SensorReading) error
}

// ConsumerConfig holds the configuration for the Consumer.
type ConsumerConfig struct {
	Logger  *slog.Logger
	Reader  stream.Reader
	Handler Handler
	Metrics *metrics.PipelineMetrics
	// FetchBackoff is the pause after a failed fetch. Defaults to one second.
	FetchBackoff time.Duration
}

// Consumer runs the single fetch, handle, commit loop over the sensor topic.
type Consumer struct {
	logger   *slog.Logger
	reader   stream.Reader
	handler  Handler
	metrics  *metrics.PipelineMetrics
	backoff  time.Duration
	done     chan struct{}
	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once
}

// NewConsumer creates a new Consumer instance.
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg == nil {
		return nil, errors.New("consumer config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Reader == nil {
		return nil, errors.New("stream reader cannot be nil")
	}

	if cfg.Handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	if cfg.Metrics == nil {
		return nil, errors.New("metrics cannot be nil")
	}

	backoff := cfg.FetchBackoff
	if backoff <= 0 {
		backoff = defaultFetchBackoff
	}

	return &Consumer{
		logger:  cfg.Logger,
		reader:  cfg.Reader,
		handler: cfg.Handler,
		metrics: cfg.Metrics,
		backoff: backoff,
		done:    make(chan struct{}),
	}, nil
}

// Start begins consuming in a goroutine. Canceling ctx stops fetching; the
// message being handled at that point still runs to completion and is committed.
func (c *Consumer) Start(ctx context.Context) {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	if c.started {
		return
	}
	c.started = true

	c.logger.Info("consumer started, waiting for messages")
	go c.run(ctx)
}

// Done is closed once the consume loop has exited.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("context canceled, stopping message processing")
				return
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				c.logger.Warn("stream reader closed")
				return
			}

			c.logger.Error("failed to fetch message", "error", err)
			c.metrics.ConnectionErrors.WithLabelValues("kafka", "fetch").Inc()

			select {
			case <-ctx.Done():
				c.logger.Info("context canceled, stopping message processing")
				return
			case <-time.After(c.backoff):
			}
			continue
		}

		c.handleMessage(ctx, msg)
	}
}

// handleMessage decodes, handles and commits a single message.
func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) {
	// In-flight work is not interrupted by shutdown.
	ctx = context.WithoutCancel(ctx)

	reading, err := plant.DecodeReading(msg.Value)
	if err != nil {
		plantID := string(msg.Key)
		if plantID == "" {
			plantID = "unknown"
		}

		c.logger.Warn("discarding malformed sensor reading",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", plantID,
			"error", err,
		)
		c.metrics.StageFailures.WithLabelValues("decode", "validation").Inc()
		c.metrics.MessagesProcessed.WithLabelValues(plantID, "unknown", metrics.StatusError).Inc()
	} else {
		// The handler logs and counts its own failures.
		_ = c.handler.Handle(ctx, reading)
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("failed to commit message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		c.metrics.ConnectionErrors.WithLabelValues("kafka", "commit").Inc()
	}
}

// Stop waits for the consume loop to exit and then closes the reader.
// The context passed to Start must be canceled first.
func (c *Consumer) Stop() error {
	c.logger.Info("stopping consumer")

	var err error
	c.stopOnce.Do(func() {
		c.startMu.Lock()
		started := c.started
		c.startMu.Unlock()

		if started {
			<-c.done
		}

		if closeErr := c.reader.Close(); closeErr != nil {
			err = closeErr
		}
	})
	if err != nil {
		return err
	}

	c.logger.Info("consumer stopped")
	return nil
}
