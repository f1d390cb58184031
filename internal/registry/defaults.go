package registry

import (
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"

	"procodus.dev/plant-processor/pkg/plant"
)

// UnknownType is the plant type whose defaults apply to any unrecognized type.
const UnknownType = "unknown"

// CareDefaults are the thresholds assigned to a newly seen plant of a given type.
type CareDefaults struct {
	WateringFrequency string
	Notes             string
	MoistureMin       float64
	MoistureMax       float64
	LightMin          float64
	TemperatureMin    float64
	TemperatureMax    float64
	HumidityMin       float64
	HumidityMax       float64
}

var careDefaults = map[string]CareDefaults{
	"monstera": {
		MoistureMin:       40,
		MoistureMax:       60,
		LightMin:          800,
		TemperatureMin:    18,
		TemperatureMax:    24,
		HumidityMin:       50,
		HumidityMax:       70,
		WateringFrequency: "7 days",
		Notes:             "Keep soil moderately moist, indirect bright light",
	},
	"sansevieria": {
		MoistureMin:       20,
		MoistureMax:       40,
		LightMin:          200,
		TemperatureMin:    15,
		TemperatureMax:    27,
		HumidityMin:       30,
		HumidityMax:       50,
		WateringFrequency: "14 days",
		Notes:             "Drought tolerant, low light tolerant",
	},
	"pothos": {
		MoistureMin:       30,
		MoistureMax:       50,
		LightMin:          400,
		TemperatureMin:    17,
		TemperatureMax:    30,
		HumidityMin:       40,
		HumidityMax:       60,
		WateringFrequency: "5-7 days",
		Notes:             "Easy care, tolerates low light",
	},
	UnknownType: {
		MoistureMin:       30,
		MoistureMax:       60,
		LightMin:          500,
		TemperatureMin:    15,
		TemperatureMax:    25,
		HumidityMin:       40,
		HumidityMax:       70,
		WateringFrequency: "7 days",
		Notes:             "Generic plant care defaults - configure for specific needs",
	},
}

// DefaultsFor returns the care defaults for plantType and whether the type was recognized.
// Unrecognized types get the UnknownType entry.
func DefaultsFor(plantType string) (CareDefaults, bool) {
	if d, ok := careDefaults[plantType]; ok {
		return d, true
	}
	return careDefaults[UnknownType], false
}

// KnownTypes lists the plant types with dedicated defaults, excluding UnknownType.
func KnownTypes() []string {
	types := make([]string, 0, len(careDefaults)-1)
	for t := range careDefaults {
		if t != UnknownType {
			types = append(types, t)
		}
	}
	return types
}

// NewProfile builds the profile auto-provisioned for the first reading of a plant.
func NewProfile(reading *plant.SensorReading, now time.Time) *plant.CareProfile {
	plantType := reading.PlantType
	if plantType == "" {
		plantType = UnknownType
	}
	d, _ := DefaultsFor(plantType)

	location := reading.Location
	if location == "" {
		location = "Unknown Location"
	}

	return &plant.CareProfile{
		PlantID:            reading.PlantID,
		PlantType:          plantType,
		Name:               fmt.Sprintf("%s (%s)", displayType(plantType), reading.PlantID),
		Location:           location,
		MoistureMin:        d.MoistureMin,
		MoistureMax:        d.MoistureMax,
		LightMin:           d.LightMin,
		TemperatureMin:     d.TemperatureMin,
		TemperatureMax:     d.TemperatureMax,
		HumidityMin:        d.HumidityMin,
		HumidityMax:        d.HumidityMax,
		WateringFrequency:  d.WateringFrequency,
		Notes:              d.Notes,
		AutoRegistered:     true,
		FirstSeenTimestamp: reading.Timestamp,
		LastWatered:        now,
	}
}

// displayType upper-cases the first rune of plantType.
func displayType(plantType string) string {
	r, size := utf8.DecodeRuneInString(plantType)
	if r == utf8.RuneError {
		return plantType
	}
	return string(unicode.ToUpper(r)) + plantType[size:]
}
