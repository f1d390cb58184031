package producer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"procodus.dev/plant-processor/pkg/metrics"
	"procodus.dev/plant-processor/pkg/stream"
)

// ServerConfig holds the configuration for the producer server.
type ServerConfig struct {
	// Logger is the structured logger
	Logger *slog.Logger
	// Writer publishes to the sensor topic; the server closes it on shutdown
	Writer stream.Writer
	// Interval is the time between readings from each sensor
	Interval time.Duration
	// SensorCount is the number of simulated sensors
	SensorCount int
	// Metrics is the optional Prometheus metrics collector
	Metrics *metrics.ProducerMetrics
	// MetricsPort, if positive, serves /metrics and /health on that port
	MetricsPort int
}

// Server drives a Producer on a fixed interval.
type Server struct {
	logger     *slog.Logger
	config     *ServerConfig
	producer   *Producer
	metrics    *metrics.ProducerMetrics
	httpServer *http.Server
}

var (
	errInvalidSensorCount = errors.New("sensor count must be greater than 0")
	errInvalidInterval    = errors.New("interval must be greater than 0")
	errLoggerRequired     = errors.New("logger is required")
	errWriterRequired     = errors.New("stream writer is required")
)

// NewServer creates a new producer server with the given configuration.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.SensorCount <= 0 {
		return nil, errInvalidSensorCount
	}

	if cfg.Interval <= 0 {
		return nil, errInvalidInterval
	}

	if cfg.Logger == nil {
		return nil, errLoggerRequired
	}

	if cfg.Writer == nil {
		return nil, errWriterRequired
	}

	producer := NewProducer(cfg.Writer, cfg.SensorCount)
	if cfg.Metrics != nil {
		producer.SetMetrics(cfg.Metrics)
	}

	for _, g := range producer.Generators {
		sensor := g.Sensor()
		cfg.Logger.Info("created plant sensor",
			"plant_id", sensor.PlantID,
			"plant_type", sensor.PlantType,
			"location", sensor.Location,
		)
	}

	return &Server{
		logger:   cfg.Logger,
		config:   cfg,
		producer: producer,
		metrics:  cfg.Metrics,
	}, nil
}

// Producer returns the underlying producer.
func (s *Server) Producer() *Producer {
	return s.producer
}

// Run publishes one round immediately and then every interval until shutdown.
func (s *Server) Run(ctx context.Context) error {
	// Create context that can be canceled
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	if s.config.MetricsPort > 0 {
		s.httpServer = metrics.NewServer(s.config.MetricsPort, s.logger)
		s.logger.Info("starting metrics server", "address", s.httpServer.Addr)
		metrics.Serve(s.httpServer)
	}

	if s.metrics != nil {
		s.metrics.ActiveSensors.Set(float64(len(s.producer.Generators)))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.loop(ctx)
	}()

	s.logger.Info("producer server started",
		"sensor_count", len(s.producer.Generators),
		"interval", s.config.Interval,
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled, shutting down")
	}

	s.logger.Info("waiting for producer to shut down...")
	<-done

	if err := s.Shutdown(); err != nil {
		return err
	}

	s.logger.Info("producer server stopped")
	return nil
}

func (s *Server) loop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.publish(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.publish(ctx, t)
		}
	}
}

func (s *Server) publish(ctx context.Context, t time.Time) {
	if err := s.producer.PublishAll(ctx, t); err != nil {
		if ctx.Err() != nil {
			return
		}
		// Continue on error - don't stop the producer
		s.logger.Error("failed to publish sensor readings", "error", err)
		return
	}
	s.logger.Debug("sensor readings published", "count", len(s.producer.Generators))
}

// Shutdown closes the writer and the metrics server.
func (s *Server) Shutdown() error {
	s.logger.Info("closing stream writer...")

	var errs []error
	if err := s.config.Writer.Close(); err != nil {
		s.logger.Error("failed to close stream writer", "error", err)
		errs = append(errs, err)
	}

	if s.httpServer != nil {
		if err := metrics.Shutdown(s.httpServer); err != nil {
			s.logger.Error("failed to shutdown metrics server", "error", err)
			errs = append(errs, err)
		}
	}

	if s.metrics != nil {
		s.metrics.ActiveSensors.Set(0)
	}

	return errors.Join(errs...)
}
