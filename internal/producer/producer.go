// Package producer publishes simulated plant sensor readings to the sensor topic.
package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"

	"procodus.dev/plant-processor/pkg/generator"
	"procodus.dev/plant-processor/pkg/metrics"
	"procodus.dev/plant-processor/pkg/stream"
)

// Producer owns a set of simulated sensors and the writer they publish through.
type Producer struct {
	Writer     stream.Writer
	Generators []*generator.PlantDataGenerator
	metrics    *metrics.ProducerMetrics // Optional metrics
}

// NewProducer creates a producer with sensorCount sensors numbered from 1.
func NewProducer(writer stream.Writer, sensorCount int) *Producer {
	generators := make([]*generator.PlantDataGenerator, 0, sensorCount)
	for i := range sensorCount {
		generators = append(generators, generator.NewPlantGenerator(generator.NewPlantSensor(i+1)))
	}

	return &Producer{
		Writer:     writer,
		Generators: generators,
	}
}

// SetMetrics sets the metrics collector for this producer.
func (p *Producer) SetMetrics(m *metrics.ProducerMetrics) {
	p.metrics = m
}

// PublishAll sends one reading per sensor stamped with t. It keeps going past
// individual failures and returns them joined.
func (p *Producer) PublishAll(ctx context.Context, t time.Time) error {
	var errs []error
	for _, g := range p.Generators {
		if err := p.Publish(ctx, g, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publish generates a reading for g and writes it keyed by plant ID.
func (p *Producer) Publish(ctx context.Context, g *generator.PlantDataGenerator, t time.Time) error {
	// Track duration
	if p.metrics != nil {
		timer := prometheus.NewTimer(p.metrics.GenerationDuration)
		defer timer.ObserveDuration()
	}

	sensor := g.Sensor()
	reading := g.GenerateReading(t)

	value, err := json.Marshal(reading)
	if err != nil {
		if p.metrics != nil {
			p.metrics.PublishErrors.WithLabelValues(sensor.PlantID, "marshal_error").Inc()
		}
		return fmt.Errorf("failed to marshal reading for %s: %w", sensor.PlantID, err)
	}

	msg := kafka.Message{
		Key:   []byte(sensor.PlantID),
		Value: value,
		Time:  t,
	}
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		if p.metrics != nil {
			p.metrics.PublishErrors.WithLabelValues(sensor.PlantID, "write_error").Inc()
		}
		return fmt.Errorf("failed to publish reading for %s: %w", sensor.PlantID, err)
	}

	if p.metrics != nil {
		p.metrics.ReadingsSent.WithLabelValues(sensor.PlantID, sensor.PlantType, sensor.Location).Inc()
		p.metrics.SoilMoisture.WithLabelValues(sensor.PlantID, sensor.PlantType).Set(reading.Sensors.SoilMoisture)
		p.metrics.LightLevel.WithLabelValues(sensor.PlantID, sensor.PlantType).Set(reading.Sensors.LightLevel)
		p.metrics.Temperature.WithLabelValues(sensor.PlantID, sensor.PlantType).Set(reading.Sensors.Temperature)
		p.metrics.Humidity.WithLabelValues(sensor.PlantID, sensor.PlantType).Set(reading.Sensors.Humidity)
	}

	return nil
}
