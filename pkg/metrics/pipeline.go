package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Processed-message status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// PipelineMetrics contains Prometheus metrics for the telemetry pipeline.
type PipelineMetrics struct {
	MessagesProcessed  *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	PipelineLatency    *prometheus.HistogramVec
	ConnectionErrors   *prometheus.CounterVec
	StageFailures      *prometheus.CounterVec
	HealthSkipped      *prometheus.CounterVec
	InsertsPerSecond   prometheus.Gauge
	HealthScore        *prometheus.GaugeVec
	AlertsGenerated    *prometheus.CounterVec
	PlantsRegistered   *prometheus.CounterVec
}

// NewPipelineMetrics creates pipeline metrics and registers them with the global registry.
func NewPipelineMetrics(namespace string) *PipelineMetrics {
	return NewPipelineMetricsWith(Registry, namespace)
}

// NewPipelineMetricsWith creates pipeline metrics and registers them with reg.
func NewPipelineMetricsWith(reg prometheus.Registerer, namespace string) *PipelineMetrics {
	m := &PipelineMetrics{
		MessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "processor",
				Name:      "messages_processed_total",
				Help:      "Total number of messages processed from the sensor stream",
			},
			[]string{"plant_id", "plant_type", "status"}, // status: success, error
		),
		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "processor",
				Name:      "processing_duration_seconds",
				Help:      "Time spent in each processing stage",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"plant_id", "operation"},
		),
		PipelineLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "data_pipeline",
				Name:      "latency_seconds",
				Help:      "End-to-end latency from sensor timestamp to processing completion",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"plant_id"},
		),
		ConnectionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connection_errors_total",
				Help:      "Total number of connection errors by component",
			},
			[]string{"component", "error_type"}, // component: kafka, postgres, mqtt, rabbitmq
		),
		StageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "processor",
				Name:      "stage_failures_total",
				Help:      "Total number of failures caught in a processing stage",
			},
			[]string{"stage", "error_class"},
		),
		HealthSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "processor",
				Name:      "health_skipped_total",
				Help:      "Total number of readings processed without a health assessment",
			},
			[]string{"reason"},
		),
		InsertsPerSecond: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "inserts_per_second",
				Help:      "Rate of sensor reading inserts over the last rate window",
			},
		),
		HealthScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "health_score",
				Help:      "Current health score of each plant",
			},
			[]string{"plant_id", "plant_type"},
		),
		AlertsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_generated_total",
				Help:      "Total number of alerts generated",
			},
			[]string{"plant_id", "alert_type", "severity"},
		),
		PlantsRegistered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "plants_auto_registered_total",
				Help:      "Total number of plants auto-registered on first sighting",
			},
			[]string{"plant_type"},
		),
	}

	reg.MustRegister(
		m.MessagesProcessed,
		m.ProcessingDuration,
		m.PipelineLatency,
		m.ConnectionErrors,
		m.StageFailures,
		m.HealthSkipped,
		m.InsertsPerSecond,
		m.HealthScore,
		m.AlertsGenerated,
		m.PlantsRegistered,
	)

	return m
}
