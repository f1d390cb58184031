// Package health scores a sensor reading against a plant's care profile.
//
// Evaluation performs no I/O and returns the same assessment for the same inputs.
// The score starts at 100, each triggered rule deducts from it, and it is not
// clamped to [0, 100].
package health

import (
	"fmt"

	"procodus.dev/plant-processor/pkg/plant"
)

const (
	// MaxScore is the score of a plant with no detected problems.
	MaxScore = 100

	// MinLightLevel is an absolute lux threshold applied to every plant,
	// independent of the profile's LightMin.
	MinLightLevel = 200

	waterNeededPenalty       = 30
	overwateredPenalty       = 20
	insufficientLightPenalty = 15

	healthyAbove        = 80
	needsAttentionAbove = 60
)

// Evaluate computes the assessment for reading under profile.
// Alerts are returned in rule order: moisture low, moisture high, light.
// Both moisture rules are checked independently; thresholds are not validated.
func Evaluate(reading *plant.SensorReading, profile *plant.CareProfile) plant.Assessment {
	score := MaxScore
	alerts := make([]plant.Alert, 0, 3)
	s := reading.Sensors

	newAlert := func(t plant.AlertType, sev plant.Severity, msg string) plant.Alert {
		return plant.Alert{
			PlantID:   reading.PlantID,
			Timestamp: reading.Timestamp,
			Type:      t,
			Severity:  sev,
			Message:   msg,
		}
	}

	if s.SoilMoisture < profile.MoistureMin {
		alerts = append(alerts, newAlert(plant.AlertWaterNeeded, plant.SeverityHigh,
			fmt.Sprintf("Soil moisture too low: %.1f%% (needs %.0f%%+)", s.SoilMoisture, profile.MoistureMin)))
		score -= waterNeededPenalty
	}

	if s.SoilMoisture > profile.MoistureMax {
		alerts = append(alerts, newAlert(plant.AlertOverwatered, plant.SeverityMedium,
			fmt.Sprintf("Soil moisture too high: %.1f%% (max %.0f%%)", s.SoilMoisture, profile.MoistureMax)))
		score -= overwateredPenalty
	}

	if s.LightLevel < MinLightLevel {
		alerts = append(alerts, newAlert(plant.AlertInsufficientLight, plant.SeverityMedium,
			fmt.Sprintf("Light level too low: %.0f lux (needs %d+ lux)", s.LightLevel, MinLightLevel)))
		score -= insufficientLightPenalty
	}

	return plant.Assessment{
		HealthScore: score,
		Status:      StatusFor(score),
		Alerts:      alerts,
	}
}

// StatusFor maps a health score onto a status:
// above 80 is healthy, above 60 needs attention, anything else is critical.
func StatusFor(score int) plant.Status {
	switch {
	case score > healthyAbove:
		return plant.StatusHealthy
	case score > needsAttentionAbove:
		return plant.StatusNeedsAttention
	default:
		return plant.StatusCritical
	}
}
