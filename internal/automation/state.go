package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"procodus.dev/plant-processor/pkg/plant"
)

// Snapshot is the flat state document Home Assistant sensors read with value templates.
type Snapshot struct {
	LastUpdated time.Time    `json:"last_updated"`
	Battery     *float64     `json:"battery,omitempty"`
	Status      plant.Status `json:"status"`
	Moisture    float64      `json:"moisture"`
	Light       float64      `json:"light"`
	Temperature float64      `json:"temperature"`
	Humidity    float64      `json:"humidity"`
	Health      int          `json:"health"`
}

// EntityID returns the Home Assistant identifier for a plant: "plant_" followed by
// the plant ID with dashes replaced by underscores.
func EntityID(plantID string) string {
	return "plant_" + strings.ReplaceAll(plantID, "-", "_")
}

// StateTopic returns the topic a plant's snapshot is published on.
func StateTopic(plantID string) string {
	return "homeassistant/sensor/" + EntityID(plantID) + "/state"
}

// NewSnapshot builds the display snapshot for a reading and its assessment.
func NewSnapshot(reading *plant.SensorReading, assessment *plant.Assessment, now time.Time) Snapshot {
	snap := Snapshot{
		Moisture:    reading.Sensors.SoilMoisture,
		Health:      assessment.HealthScore,
		Light:       reading.Sensors.LightLevel,
		Temperature: reading.Sensors.Temperature,
		Humidity:    reading.Sensors.Humidity,
		Status:      assessment.Status,
		LastUpdated: now,
	}
	if level, ok := reading.BatteryLevel(); ok {
		snap.Battery = &level
	}
	return snap
}

// StateUpdater publishes plant snapshots and swallows publish errors.
type StateUpdater struct {
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewStateUpdater creates a StateUpdater on publisher.
func NewStateUpdater(publisher Publisher, logger *slog.Logger) (*StateUpdater, error) {
	if publisher == nil {
		return nil, errors.New("publisher cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &StateUpdater{
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Update publishes the snapshot for reading. It returns the error for
// instrumentation only; callers must not treat it as a processing failure.
// Bus failures wrap ErrPublish.
func (u *StateUpdater) Update(ctx context.Context, reading *plant.SensorReading, assessment *plant.Assessment) error {
	snap := NewSnapshot(reading, assessment, u.now())
	payload, err := json.Marshal(snap)
	if err != nil {
		u.logger.Error("failed to marshal automation snapshot", "plant_id", reading.PlantID, "error", err)
		return err
	}

	topic := StateTopic(reading.PlantID)
	if err := u.publisher.Publish(ctx, topic, payload); err != nil {
		u.logger.Warn("failed to update Home Assistant",
			"plant_id", reading.PlantID,
			"topic", topic,
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	u.logger.Debug("updated Home Assistant", "plant_id", reading.PlantID, "topic", topic)
	return nil
}
