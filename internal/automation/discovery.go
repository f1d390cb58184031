package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// SensorKind describes one metric exposed as a Home Assistant sensor entity.
type SensorKind struct {
	Name        string
	Key         string
	Unit        string
	DeviceClass string
	Icon        string
}

// DefaultSensors are the metrics announced for every plant.
var DefaultSensors = []SensorKind{
	{Name: "Moisture", Key: "moisture", Unit: "%", DeviceClass: "humidity", Icon: "mdi:water-percent"},
	{Name: "Health", Key: "health", Unit: "pts", Icon: "mdi:leaf"},
	{Name: "Light", Key: "light", Unit: "lx", DeviceClass: "illuminance", Icon: "mdi:lightbulb"},
	{Name: "Temperature", Key: "temperature", Unit: "°C", DeviceClass: "temperature", Icon: "mdi:thermometer"},
	{Name: "Status", Key: "status", Icon: "mdi:sprout"},
}

// DiscoveryDevice groups a plant's entities under one device in Home Assistant.
type DiscoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

// DiscoveryConfig is the retained config message for one sensor entity.
type DiscoveryConfig struct {
	Device            DiscoveryDevice `json:"device"`
	Name              string          `json:"name"`
	StateTopic        string          `json:"state_topic"`
	ValueTemplate     string          `json:"value_template"`
	UniqueID          string          `json:"unique_id"`
	UnitOfMeasurement string          `json:"unit_of_measurement,omitempty"`
	DeviceClass       string          `json:"device_class,omitempty"`
	Icon              string          `json:"icon,omitempty"`
}

// DiscoveryTopic returns the config topic for a plant's sensor entity.
func DiscoveryTopic(plantID string, sensor SensorKind) string {
	return "homeassistant/sensor/" + EntityID(plantID) + "_" + sensor.Key + "/config"
}

// NewDiscoveryConfig builds the discovery message for plantID and sensor.
func NewDiscoveryConfig(plantID string, sensor SensorKind) DiscoveryConfig {
	entity := EntityID(plantID)
	display := "Plant " + strings.TrimPrefix(plantID, "plant-")

	return DiscoveryConfig{
		Name:              display + " " + sensor.Name,
		StateTopic:        StateTopic(plantID),
		ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", sensor.Key),
		UniqueID:          entity + "_" + sensor.Key,
		UnitOfMeasurement: sensor.Unit,
		DeviceClass:       sensor.DeviceClass,
		Icon:              sensor.Icon,
		Device: DiscoveryDevice{
			Identifiers:  []string{entity},
			Name:         display,
			Manufacturer: "Plant Processor",
			Model:        "Smart Plant Monitor",
		},
	}
}

// Announce publishes retained discovery configs for every plant and sensor kind.
// It runs when the bus connects, never per reading. Failures are
// logged and counted in the returned total; announcing continues past them.
func Announce(ctx context.Context, pub RetainedPublisher, plantIDs []string, logger *slog.Logger) (failed int) {
	for _, plantID := range plantIDs {
		for _, sensor := range DefaultSensors {
			payload, err := json.Marshal(NewDiscoveryConfig(plantID, sensor))
			if err != nil {
				failed++
				continue
			}

			topic := DiscoveryTopic(plantID, sensor)
			if err := pub.PublishRetained(ctx, topic, payload); err != nil {
				logger.Warn("failed to publish discovery config", "topic", topic, "error", err)
				failed++
			}
		}
	}

	logger.Info("published Home Assistant discovery configs",
		"plants", len(plantIDs),
		"failed", failed,
	)
	return failed
}
