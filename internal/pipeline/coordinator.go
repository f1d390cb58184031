// Package pipeline sequences the processing of a single sensor reading:
// store, resolve the care profile, assess health, fan out alerts and
// automation state, and record metrics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"procodus.dev/plant-processor/internal/health"
	"procodus.dev/plant-processor/internal/registry"
	"procodus.dev/plant-processor/pkg/metrics"
	"procodus.dev/plant-processor/pkg/plant"
)

// Stage names used for the operation and stage metric labels.
const (
	StageStoreReading   = "store_reading"
	StageRegistryLookup = "registry_lookup"
	StageAutoProvision  = "auto_provision"
	StageEvaluate       = "evaluate"
	StageAlertSink      = "alert_sink"
	StageAutomation     = "automation"
	StageTotal          = "total_processing"
)

// ReadingStore persists raw readings.
type ReadingStore interface {
	StoreReading(ctx context.Context, reading *plant.SensorReading) error
}

// AlertSink persists and republishes a single alert.
type AlertSink interface {
	Emit(ctx context.Context, alert *plant.Alert) error
}

// StateUpdater pushes display state to the automation bus.
// Its error is informational; the coordinator never fails a reading on it.
type StateUpdater interface {
	Update(ctx context.Context, reading *plant.SensorReading, assessment *plant.Assessment) error
}

// Config holds the configuration for a Coordinator.
type Config struct {
	Logger     *slog.Logger
	Readings   ReadingStore
	Registry   registry.Registry
	Alerts     AlertSink
	Automation StateUpdater
	Metrics    *metrics.PipelineMetrics
	// AlertTransport names the alert channel in connection error metrics.
	// Defaults to kafka.
	AlertTransport string
	// Rate, if set, counts stored readings for the insert-rate gauge.
	Rate *RateTracker
	// Now defaults to time.Now.
	Now func() time.Time
}

// Coordinator handles readings one at a time. It holds no per-message state,
// so one Coordinator may serve several partitions.
type Coordinator struct {
	logger     *slog.Logger
	readings   ReadingStore
	registry   registry.Registry
	alerts     AlertSink
	automation StateUpdater
	metrics    *metrics.PipelineMetrics
	rate       *RateTracker
	now        func() time.Time

	alertTransport string
}

// New creates a Coordinator.
func New(cfg *Config) (*Coordinator, error) {
	if cfg == nil {
		return nil, errors.New("pipeline config cannot be nil")
	}

	switch {
	case cfg.Logger == nil:
		return nil, errors.New("logger cannot be nil")
	case cfg.Readings == nil:
		return nil, errors.New("reading store cannot be nil")
	case cfg.Registry == nil:
		return nil, errors.New("registry cannot be nil")
	case cfg.Alerts == nil:
		return nil, errors.New("alert sink cannot be nil")
	case cfg.Automation == nil:
		return nil, errors.New("automation updater cannot be nil")
	case cfg.Metrics == nil:
		return nil, errors.New("metrics cannot be nil")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	alertTransport := cfg.AlertTransport
	if alertTransport == "" {
		alertTransport = "kafka"
	}

	return &Coordinator{
		logger:     cfg.Logger,
		readings:   cfg.Readings,
		registry:   cfg.Registry,
		alerts:     cfg.Alerts,
		automation: cfg.Automation,
		metrics:    cfg.Metrics,
		rate:       cfg.Rate,
		now:        now,

		alertTransport: alertTransport,
	}, nil
}

// Handle processes one reading to completion.
//
// Only a failure to store the raw reading, or a panic, makes Handle return an
// error; both are logged and counted here. Registry, alert and automation
// failures are logged and counted but do not stop the remaining steps.
// Whatever Handle returns, the caller should treat the message as handled.
func (c *Coordinator) Handle(ctx context.Context, reading *plant.SensorReading) (err error) {
	start := c.now()
	log := c.logger.With("plant_id", reading.PlantID, "plant_type", reading.PlantType)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: recovered panic: %v", ErrInternal, r)
			log.Error("recovered panic while processing reading",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			c.metrics.StageFailures.WithLabelValues("handle", ErrInternal.Error()).Inc()
			c.countProcessed(reading, metrics.StatusError)
		}
	}()

	log.Debug("processing sensor reading",
		"timestamp", reading.Timestamp,
		"location", reading.Location,
		"soil_moisture", reading.Sensors.SoilMoisture,
		"light_level", reading.Sensors.LightLevel,
	)

	if err := c.storeReading(ctx, reading); err != nil {
		class := Classify(err)
		log.Error("failed to store sensor reading", "error", err, "error_class", class.Error())
		c.metrics.StageFailures.WithLabelValues(StageStoreReading, class.Error()).Inc()
		if class == ErrTransport {
			c.metrics.ConnectionErrors.WithLabelValues("postgres", "unavailable").Inc()
		}
		c.countProcessed(reading, metrics.StatusError)
		return fmt.Errorf("%w: %w", class, err)
	}

	if profile := c.resolveProfile(ctx, reading, log); profile != nil {
		c.assess(ctx, reading, profile, log)
	}

	c.countProcessed(reading, metrics.StatusSuccess)

	done := c.now()
	latency := done.Sub(reading.Timestamp).Seconds()
	if latency < 0 {
		log.Warn("negative pipeline latency, sensor clock is ahead of processor",
			"latency_seconds", latency,
		)
	}
	c.metrics.PipelineLatency.WithLabelValues(reading.PlantID).Observe(latency)
	c.observe(reading.PlantID, StageTotal, start, done)

	return nil
}

func (c *Coordinator) storeReading(ctx context.Context, reading *plant.SensorReading) error {
	start := c.now()
	err := c.readings.StoreReading(ctx, reading)
	c.observe(reading.PlantID, StageStoreReading, start, c.now())
	if err != nil {
		return err
	}

	if c.rate != nil {
		c.rate.Add(1)
	}
	return nil
}

// resolveProfile returns the plant's profile, provisioning one if the plant is new.
// It returns nil when no profile could be obtained; the reading then skips assessment.
func (c *Coordinator) resolveProfile(ctx context.Context, reading *plant.SensorReading, log *slog.Logger) *plant.CareProfile {
	start := c.now()
	profile, err := c.registry.Find(ctx, reading.PlantID)
	c.observe(reading.PlantID, StageRegistryLookup, start, c.now())

	switch {
	case err == nil:
		return profile

	case errors.Is(err, registry.ErrNotFound):
		log.Info("plant not registered, auto-creating care profile")

		start = c.now()
		profile, err = c.registry.AutoProvision(ctx, reading)
		c.observe(reading.PlantID, StageAutoProvision, start, c.now())

		if err == nil && profile == nil {
			err = fmt.Errorf("%w: registry returned no profile", ErrInternal)
		}
		if err != nil {
			log.Error("failed to auto-register plant, skipping health assessment", "error", err)
			c.metrics.StageFailures.WithLabelValues(StageAutoProvision, ClassLabel(err)).Inc()
			c.metrics.HealthSkipped.WithLabelValues("provision_failed").Inc()
			return nil
		}

		c.metrics.PlantsRegistered.WithLabelValues(profile.PlantType).Inc()
		return profile

	default:
		log.Error("failed to look up care profile, skipping health assessment", "error", err)
		c.metrics.StageFailures.WithLabelValues(StageRegistryLookup, ClassLabel(err)).Inc()
		c.metrics.HealthSkipped.WithLabelValues("lookup_failed").Inc()
		return nil
	}
}

// assess evaluates the reading and fans out alerts in rule order, then automation state.
func (c *Coordinator) assess(ctx context.Context, reading *plant.SensorReading, profile *plant.CareProfile, log *slog.Logger) {
	start := c.now()
	assessment := health.Evaluate(reading, profile)
	c.observe(reading.PlantID, StageEvaluate, start, c.now())

	c.metrics.HealthScore.WithLabelValues(reading.PlantID, labelOrUnknown(reading.PlantType)).
		Set(float64(assessment.HealthScore))

	log.Info("health analysis",
		"health_score", assessment.HealthScore,
		"status", assessment.Status,
		"alerts", len(assessment.Alerts),
	)

	start = c.now()
	for i := range assessment.Alerts {
		alert := &assessment.Alerts[i]
		c.metrics.AlertsGenerated.WithLabelValues(alert.PlantID, string(alert.Type), string(alert.Severity)).Inc()

		if err := c.alerts.Emit(ctx, alert); err != nil {
			class := ClassLabel(err)
			log.Error("failed to emit alert",
				"alert_type", alert.Type,
				"error", err,
				"error_class", class,
			)
			c.metrics.StageFailures.WithLabelValues(StageAlertSink, class).Inc()
			if class == ErrTransport.Error() {
				c.metrics.ConnectionErrors.WithLabelValues(c.alertTransport, "publish").Inc()
			}
		}
	}
	if len(assessment.Alerts) > 0 {
		c.observe(reading.PlantID, StageAlertSink, start, c.now())
	}

	start = c.now()
	if err := c.automation.Update(ctx, reading, &assessment); err != nil {
		class := ClassLabel(err)
		c.metrics.StageFailures.WithLabelValues(StageAutomation, class).Inc()
		if class == ErrTransport.Error() {
			c.metrics.ConnectionErrors.WithLabelValues("mqtt", "publish").Inc()
		}
	}
	c.observe(reading.PlantID, StageAutomation, start, c.now())
}

func (c *Coordinator) countProcessed(reading *plant.SensorReading, status string) {
	c.metrics.MessagesProcessed.
		WithLabelValues(reading.PlantID, labelOrUnknown(reading.PlantType), status).
		Inc()
}

func (c *Coordinator) observe(plantID, operation string, start, end time.Time) {
	c.metrics.ProcessingDuration.WithLabelValues(plantID, operation).Observe(end.Sub(start).Seconds())
}

func labelOrUnknown(v string) string {
	if v == "" {
		return registry.UnknownType
	}
	return v
}
