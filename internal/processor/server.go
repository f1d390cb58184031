// Package processor wires the telemetry pipeline to its infrastructure:
// Postgres, the Kafka sensor and alert topics, the MQTT automation bus and the
// metrics endpoint.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"procodus.dev/plant-processor/internal/alerts"
	"procodus.dev/plant-processor/internal/automation"
	"procodus.dev/plant-processor/internal/pipeline"
	"procodus.dev/plant-processor/internal/registry"
	"procodus.dev/plant-processor/internal/storage"
	"procodus.dev/plant-processor/pkg/logger"
	"procodus.dev/plant-processor/pkg/metrics"
	"procodus.dev/plant-processor/pkg/mq"
	"procodus.dev/plant-processor/pkg/stream"
)

// Alert transports.
const (
	TransportKafka    = "kafka"
	TransportRabbitMQ = "rabbitmq"
)

const startupTimeout = 10 * time.Second

// busCloser disconnects from the automation bus.
type busCloser interface {
	Close()
}

// database closes the gorm connection pool.
type database struct {
	db     *gorm.DB
	logger *slog.Logger
}

func (d database) Close() error {
	return storage.CloseDB(d.db, d.logger)
}

// Server owns every long-lived resource of the processor.
type Server struct {
	logger     *slog.Logger
	config     *ServerConfig
	db         io.Closer
	consumer   *Consumer
	sink       io.Closer
	mqtt       busCloser
	httpServer *http.Server
}

// ServerConfig holds the configuration for the Server.
type ServerConfig struct {
	Logger *slog.Logger

	// Database configuration
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPort     int

	// Kafka configuration
	KafkaBrokers []string
	SensorTopic  string
	GroupID      string
	AlertTopic   string

	// AlertTransport selects the republish channel: kafka or rabbitmq.
	AlertTransport string
	RabbitMQURL    string
	QueueName      string

	// MQTT configuration
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// DiscoveryPlants are announced to Home Assistant whenever the bus connects.
	DiscoveryPlants []string

	MetricsPort  int
	RateInterval time.Duration
}

// NewServer creates a new Server instance.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.DBHost == "" {
		return nil, errors.New("database host cannot be empty")
	}

	if cfg.DBPort <= 0 {
		return nil, errors.New("database port must be positive")
	}

	if cfg.DBUser == "" {
		return nil, errors.New("database user cannot be empty")
	}

	if cfg.DBName == "" {
		return nil, errors.New("database name cannot be empty")
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("kafka brokers cannot be empty")
	}

	if cfg.SensorTopic == "" {
		return nil, errors.New("sensor topic cannot be empty")
	}

	if cfg.GroupID == "" {
		return nil, errors.New("consumer group id cannot be empty")
	}

	switch cfg.AlertTransport {
	case TransportKafka:
		if cfg.AlertTopic == "" {
			return nil, errors.New("alert topic cannot be empty")
		}
	case TransportRabbitMQ:
		if cfg.RabbitMQURL == "" {
			return nil, errors.New("rabbitmq URL cannot be empty")
		}
		if cfg.QueueName == "" {
			return nil, errors.New("queue name cannot be empty")
		}
	default:
		return nil, fmt.Errorf("unknown alert transport %q", cfg.AlertTransport)
	}

	if cfg.MQTTBroker == "" {
		return nil, errors.New("mqtt broker cannot be empty")
	}

	if cfg.MetricsPort <= 0 {
		return nil, errors.New("metrics port must be positive")
	}

	return &Server{
		logger: cfg.Logger,
		config: cfg,
	}, nil
}

// Run connects to every dependency, starts the pipeline and blocks until shutdown.
// Failing to reach Postgres or Kafka at startup is fatal; the MQTT bus is not.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting plant processor")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	db, err := storage.NewDB(&storage.DBConfig{
		Host:     s.config.DBHost,
		Port:     s.config.DBPort,
		User:     s.config.DBUser,
		Password: s.config.DBPassword,
		DBName:   s.config.DBName,
		SSLMode:  s.config.DBSSLMode,
		Logger:   s.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = database{db: db, logger: s.logger}

	pingCtx, pingCancel := context.WithTimeout(ctx, startupTimeout)
	err = stream.Ping(pingCtx, s.config.KafkaBrokers)
	pingCancel()
	if err != nil {
		_ = s.closeDB()
		return fmt.Errorf("failed to connect to kafka: %w", err)
	}
	s.logger.Info("connected to kafka", "brokers", s.config.KafkaBrokers)

	pipelineMetrics := metrics.NewPipelineMetrics(metrics.Namespace)

	coordinator, err := s.buildPipeline(ctx, db, pipelineMetrics)
	if err != nil {
		_ = s.Shutdown()
		return err
	}

	reader, err := stream.NewReader(&stream.ReaderConfig{
		Logger:  logger.WithComponent(s.logger, "kafka-reader"),
		Topic:   s.config.SensorTopic,
		GroupID: s.config.GroupID,
		Brokers: s.config.KafkaBrokers,
	})
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to create stream reader: %w", err)
	}

	consumer, err := NewConsumer(&ConsumerConfig{
		Logger:  logger.WithComponent(s.logger, "consumer"),
		Reader:  reader,
		Handler: coordinator,
		Metrics: pipelineMetrics,
	})
	if err != nil {
		_ = reader.Close()
		_ = s.Shutdown()
		return fmt.Errorf("failed to initialize consumer: %w", err)
	}
	s.consumer = consumer

	s.httpServer = metrics.NewServer(s.config.MetricsPort, s.logger)
	s.logger.Info("starting metrics server", "address", s.httpServer.Addr)
	httpErr := metrics.Serve(s.httpServer)

	s.consumer.Start(ctx)

	s.logger.Info("plant processor started successfully",
		"sensor_topic", s.config.SensorTopic,
		"group_id", s.config.GroupID,
		"alert_transport", s.config.AlertTransport,
	)

	// Wait for shutdown signal, consumer exit or HTTP error
	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context canceled")
	case <-s.consumer.Done():
		s.logger.Warn("consumer exited unexpectedly")
	case err := <-httpErr:
		if err != nil {
			s.logger.Error("metrics server error", "error", err)
			cancel()
			_ = s.Shutdown()
			return err
		}
	}
	cancel()

	return s.Shutdown()
}

// buildPipeline assembles the registry, sinks and coordinator on top of the open database.
func (s *Server) buildPipeline(ctx context.Context, db *gorm.DB, m *metrics.PipelineMetrics) (*pipeline.Coordinator, error) {
	store, err := storage.NewStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	reg, err := registry.New(&registry.Config{
		Logger: logger.WithComponent(s.logger, "registry"),
		Store:  store,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	notifier, err := s.newNotifier()
	if err != nil {
		return nil, err
	}

	sink, err := alerts.NewSink(&alerts.SinkConfig{
		Logger:   logger.WithComponent(s.logger, "alerts"),
		Store:    store,
		Notifier: notifier,
	})
	if err != nil {
		_ = notifier.Close()
		return nil, fmt.Errorf("failed to create alert sink: %w", err)
	}
	s.sink = sink

	mqttLogger := logger.WithComponent(s.logger, "mqtt")
	plants := s.config.DiscoveryPlants
	publisher, err := automation.NewMQTTPublisher(&automation.MQTTConfig{
		Logger:   mqttLogger,
		Broker:   s.config.MQTTBroker,
		ClientID: s.config.MQTTClientID,
		Username: s.config.MQTTUsername,
		Password: s.config.MQTTPassword,
		OnConnect: func(pub automation.RetainedPublisher) {
			if len(plants) == 0 {
				return
			}
			actx, acancel := context.WithTimeout(ctx, startupTimeout)
			defer acancel()
			automation.Announce(actx, pub, plants, mqttLogger)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mqtt publisher: %w", err)
	}
	s.mqtt = publisher

	updater, err := automation.NewStateUpdater(publisher, mqttLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create state updater: %w", err)
	}

	rate := pipeline.NewRateTracker(m.InsertsPerSecond, s.config.RateInterval)
	go rate.Run(ctx)

	coordinator, err := pipeline.New(&pipeline.Config{
		Logger:     logger.WithComponent(s.logger, "pipeline"),
		Readings:   store,
		Registry:   reg,
		Alerts:     sink,
		Automation: updater,
		Metrics:    m,
		Rate:       rate,

		AlertTransport: s.config.AlertTransport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	return coordinator, nil
}

func (s *Server) newNotifier() (alerts.Notifier, error) {
	switch s.config.AlertTransport {
	case TransportRabbitMQ:
		client := mq.New(s.config.QueueName, s.config.RabbitMQURL, logger.WithComponent(s.logger, "mq-client"))
		client.SetMetrics(metrics.NewMQMetrics(metrics.Namespace))
		return alerts.NewQueueNotifier(client), nil

	default:
		writer, err := stream.NewWriter(&stream.WriterConfig{
			Logger:  logger.WithComponent(s.logger, "kafka-writer"),
			Topic:   s.config.AlertTopic,
			Brokers: s.config.KafkaBrokers,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create alert writer: %w", err)
		}
		return alerts.NewKafkaNotifier(writer), nil
	}
}

// Shutdown stops fetching, lets the in-flight message finish, and then closes
// the stream, the store and the automation bus, in that order.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down plant processor")

	var errs []error

	if s.httpServer != nil {
		s.logger.Info("stopping metrics server")
		if err := metrics.Shutdown(s.httpServer); err != nil {
			s.logger.Error("failed to shutdown metrics server", "error", err)
			errs = append(errs, fmt.Errorf("metrics server shutdown error: %w", err))
		}
	}

	if s.consumer != nil {
		if err := s.consumer.Stop(); err != nil {
			s.logger.Error("failed to stop consumer", "error", err)
			errs = append(errs, fmt.Errorf("consumer shutdown error: %w", err))
		}
	}

	if s.sink != nil {
		s.logger.Info("closing alert channel")
		if err := s.sink.Close(); err != nil {
			s.logger.Error("failed to close alert channel", "error", err)
			errs = append(errs, fmt.Errorf("alert channel close error: %w", err))
		}
	}

	if err := s.closeDB(); err != nil {
		errs = append(errs, fmt.Errorf("database close error: %w", err))
	}

	if s.mqtt != nil {
		s.mqtt.Close()
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Error("plant processor shutdown completed with errors", "error", err)
		return err
	}

	s.logger.Info("plant processor shutdown completed successfully")
	return nil
}

func (s *Server) closeDB() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	if err != nil {
		s.logger.Error("failed to close database", "error", err)
	}
	s.db = nil
	return err
}
