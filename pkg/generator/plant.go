// Package generator simulates plant sensors that emit realistic readings with
// daily light and temperature cycles.
package generator

import (
	"fmt"
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"procodus.dev/plant-processor/pkg/plant"
)

// Baseline describes the typical environment of a plant type.
type Baseline struct {
	MoistureBase      float64
	MoistureVariation float64
	LightBase         float64
	TempBase          float64
	HumidityBase      float64
}

var baselines = map[string]Baseline{
	"monstera":    {MoistureBase: 50, MoistureVariation: 20, LightBase: 600, TempBase: 22, HumidityBase: 50},
	"sansevieria": {MoistureBase: 30, MoistureVariation: 15, LightBase: 300, TempBase: 20, HumidityBase: 40},
	"pothos":      {MoistureBase: 40, MoistureVariation: 15, LightBase: 450, TempBase: 23, HumidityBase: 50},
}

// PlantTypes lists the plant types the generator can simulate.
var PlantTypes = []string{"monstera", "sansevieria", "pothos"}

var rooms = []string{"Living Room", "Bedroom", "Kitchen", "Office", "Bathroom", "Balcony"}

// BaselineFor returns the baseline for plantType, falling back to monstera.
func BaselineFor(plantType string) Baseline {
	if b, ok := baselines[plantType]; ok {
		return b
	}
	return baselines["monstera"]
}

// PlantSensor identifies one simulated sensor.
type PlantSensor struct {
	Installed time.Time
	PlantID   string
	PlantType string
	Location  string
}

// NewPlantSensor creates a sensor with a random plant type and room.
// IDs follow the plant-NNN convention, numbered from index.
func NewPlantSensor(index int) *PlantSensor {
	return &PlantSensor{
		PlantID:   fmt.Sprintf("plant-%03d", index),
		PlantType: gofakeit.RandomString(PlantTypes),
		Location:  fmt.Sprintf("%s, %s", gofakeit.RandomString(rooms), gofakeit.City()),
		Installed: time.Now().Add(-time.Duration(gofakeit.Number(0, 30*24)) * time.Hour),
	}
}

// PlantDataGenerator produces readings for one sensor.
type PlantDataGenerator struct {
	sensor   *PlantSensor
	baseline Baseline
	// dryOffset shifts moisture per sensor so some plants trend dry or wet.
	dryOffset float64
}

// NewPlantGenerator creates a generator for sensor.
func NewPlantGenerator(sensor *PlantSensor) *PlantDataGenerator {
	b := BaselineFor(sensor.PlantType)
	return &PlantDataGenerator{
		sensor:    sensor,
		baseline:  b,
		dryOffset: gofakeit.Float64Range(-b.MoistureVariation, b.MoistureVariation),
	}
}

// Sensor returns the sensor this generator simulates.
func (g *PlantDataGenerator) Sensor() *PlantSensor {
	return g.sensor
}

// GenerateSoilMoisture follows a slow daily cycle around the baseline, clamped to 0-100%.
func (g *PlantDataGenerator) GenerateSoilMoisture(t time.Time) float64 {
	hour := float64(t.Hour())
	daily := math.Sin(hour/24*2*math.Pi) * 5
	noise := gofakeit.Float64Range(-5, 5)
	return clamp(g.baseline.MoistureBase+g.dryOffset+daily+noise, 0, 100)
}

// GenerateLightLevel peaks at noon and drops to near zero at night.
func (g *PlantDataGenerator) GenerateLightLevel(t time.Time) float64 {
	hour := float64(t.Hour())
	daily := math.Max(0, math.Sin((hour-6)/12*math.Pi)*g.baseline.LightBase)
	return math.Max(0, daily+gofakeit.Float64Range(0, 100))
}

// GenerateTemperature with daily pattern.
func (g *PlantDataGenerator) GenerateTemperature(t time.Time) float64 {
	hour := float64(t.Hour())
	daily := math.Sin((hour-6)/12*math.Pi) * 3
	return g.baseline.TempBase + daily + gofakeit.Float64Range(-1, 1)
}

// GenerateHumidity varies around the baseline, clamped to 0-100%.
func (g *PlantDataGenerator) GenerateHumidity() float64 {
	return clamp(g.baseline.HumidityBase+gofakeit.Float64Range(-5, 5), 0, 100)
}

// GenerateBatteryLevel drains linearly over roughly 36 days from installation.
func (g *PlantDataGenerator) GenerateBatteryLevel(t time.Time) float64 {
	hours := t.Sub(g.sensor.Installed).Hours()
	battery := 100 - hours/(720*1.2)*100 - gofakeit.Float64Range(0, 2)
	return math.Round(clamp(battery, 5, 100)*10) / 10
}

// GenerateReading produces a complete reading stamped with t.
func (g *PlantDataGenerator) GenerateReading(t time.Time) *plant.SensorReading {
	battery := g.GenerateBatteryLevel(t)

	return &plant.SensorReading{
		Timestamp: t.UTC(),
		PlantID:   g.sensor.PlantID,
		Location:  g.sensor.Location,
		PlantType: g.sensor.PlantType,
		Sensors: plant.Sensors{
			SoilMoisture: round2(g.GenerateSoilMoisture(t)),
			LightLevel:   round2(g.GenerateLightLevel(t)),
			Temperature:  round2(g.GenerateTemperature(t)),
			Humidity:     round2(g.GenerateHumidity()),
		},
		Metadata: &plant.Metadata{BatteryLevel: &battery},
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
