// Package plant defines the messages and records shared by the plant telemetry pipeline:
// sensor readings as they arrive on the stream, care profiles from the registry,
// and the health assessments and alerts derived from them.
package plant

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status is the coarse health classification derived from a health score.
type Status string

const (
	StatusHealthy        Status = "healthy"
	StatusNeedsAttention Status = "needs_attention"
	StatusCritical       Status = "critical"
)

// AlertType names the rule that produced an alert. The set is open; the
// constants below are the types the current rule set emits.
type AlertType string

const (
	AlertWaterNeeded       AlertType = "WATER_NEEDED"
	AlertOverwatered       AlertType = "OVERWATERED"
	AlertInsufficientLight AlertType = "INSUFFICIENT_LIGHT"
)

// Severity is an alert's urgency. Like AlertType it is an open set of strings.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// ErrInvalidReading is returned when an inbound message cannot be used as a reading.
var ErrInvalidReading = errors.New("invalid sensor reading")

// Sensors holds the environmental values measured by a plant sensor.
type Sensors struct {
	SoilMoisture float64 `json:"soilMoisture"`
	LightLevel   float64 `json:"lightLevel"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
}

// Metadata carries optional device information sent alongside a reading.
type Metadata struct {
	BatteryLevel *float64 `json:"batteryLevel,omitempty"`
}

// SensorReading is one timestamped snapshot of a plant's environment.
type SensorReading struct {
	Timestamp time.Time `json:"timestamp"`
	Metadata  *Metadata `json:"metadata,omitempty"`
	PlantID   string    `json:"plantId"`
	Location  string    `json:"location"`
	PlantType string    `json:"plantType"`
	Sensors   Sensors   `json:"sensors"`
}

// Validate reports whether the reading carries the fields the pipeline keys on.
func (r *SensorReading) Validate() error {
	if r.PlantID == "" {
		return fmt.Errorf("%w: missing plantId", ErrInvalidReading)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidReading)
	}
	return nil
}

// BatteryLevel returns the reported battery level, if any.
func (r *SensorReading) BatteryLevel() (float64, bool) {
	if r.Metadata == nil || r.Metadata.BatteryLevel == nil {
		return 0, false
	}
	return *r.Metadata.BatteryLevel, true
}

// DecodeReading parses a JSON stream message into a validated reading.
func DecodeReading(data []byte) (*SensorReading, error) {
	var reading SensorReading
	if err := json.Unmarshal(data, &reading); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReading, err)
	}
	if err := reading.Validate(); err != nil {
		return nil, err
	}
	return &reading, nil
}

// CareProfile holds the care thresholds and metadata registered for a plant.
// Profiles are never updated once created.
type CareProfile struct {
	FirstSeenTimestamp time.Time `json:"firstSeenTimestamp"`
	LastWatered        time.Time `json:"lastWatered"`
	PlantID            string    `json:"plantId"`
	PlantType          string    `json:"plantType"`
	Name               string    `json:"name"`
	Location           string    `json:"location"`
	WateringFrequency  string    `json:"wateringFrequency"`
	Notes              string    `json:"notes"`
	MoistureMin        float64   `json:"moistureMin"`
	MoistureMax        float64   `json:"moistureMax"`
	LightMin           float64   `json:"lightMin"`
	TemperatureMin     float64   `json:"temperatureMin"`
	TemperatureMax     float64   `json:"temperatureMax"`
	HumidityMin        float64   `json:"humidityMin"`
	HumidityMax        float64   `json:"humidityMax"`
	AutoRegistered     bool      `json:"autoRegistered"`
}

// Alert is a single care problem detected for a plant.
type Alert struct {
	Timestamp time.Time `json:"timestamp"`
	PlantID   string    `json:"plantId"`
	Type      AlertType `json:"type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
}

// Assessment is the health of a plant derived from one reading.
// HealthScore is the sum of deductions from 100 and is not clamped.
type Assessment struct {
	Status      Status  `json:"status"`
	Alerts      []Alert `json:"alerts"`
	HealthScore int     `json:"healthScore"`
}
