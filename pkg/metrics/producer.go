package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ProducerMetrics contains Prometheus metrics for the sensor generator.
type ProducerMetrics struct {
	ReadingsSent       *prometheus.CounterVec
	PublishErrors      *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	ActiveSensors      prometheus.Gauge
	SoilMoisture       *prometheus.GaugeVec
	LightLevel         *prometheus.GaugeVec
	Temperature        *prometheus.GaugeVec
	Humidity           *prometheus.GaugeVec
}

// NewProducerMetrics creates generator metrics and registers them with the global registry.
func NewProducerMetrics(namespace string) *ProducerMetrics {
	return NewProducerMetricsWith(Registry, namespace)
}

// NewProducerMetricsWith creates generator metrics and registers them with reg.
func NewProducerMetricsWith(reg prometheus.Registerer, namespace string) *ProducerMetrics {
	sensorGauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sensor",
				Name:      name,
				Help:      help,
			},
			[]string{"plant_id", "plant_type"},
		)
	}

	m := &ProducerMetrics{
		ReadingsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sensor",
				Name:      "readings_total",
				Help:      "Total number of sensor readings sent",
			},
			[]string{"plant_id", "plant_type", "location"},
		),
		PublishErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sensor",
				Name:      "kafka_errors_total",
				Help:      "Total number of Kafka publish errors",
			},
			[]string{"plant_id", "error_type"},
		),
		GenerationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sensor",
				Name:      "publish_duration_seconds",
				Help:      "Duration of reading generation and publish",
				Buckets:   prometheus.DefBuckets,
			},
		),
		ActiveSensors: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sensor",
				Name:      "active_sensors",
				Help:      "Number of currently running simulated sensors",
			},
		),
		SoilMoisture: sensorGauge("soil_moisture", "Current soil moisture reading (0-100%)"),
		LightLevel:   sensorGauge("light_level", "Current light level reading (lux)"),
		Temperature:  sensorGauge("temperature_celsius", "Current temperature reading"),
		Humidity:     sensorGauge("humidity_percent", "Current humidity reading (0-100%)"),
	}

	reg.MustRegister(
		m.ReadingsSent,
		m.PublishErrors,
		m.GenerationDuration,
		m.ActiveSensors,
		m.SoilMoisture,
		m.LightLevel,
		m.Temperature,
		m.Humidity,
	)

	return m
}
