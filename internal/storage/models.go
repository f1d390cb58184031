// Package storage persists readings, alerts and care profiles to PostgreSQL through GORM.
// The readings and alerts tables are append-only.
package storage

import (
	"time"

	"procodus.dev/plant-processor/pkg/plant"
)

// SensorReading is a raw reading row in the sensor_readings table.
type SensorReading struct {
	Timestamp    time.Time `gorm:"index:idx_plant_timestamp;not null"`
	ProcessedAt  time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	BatteryLevel *float64
	PlantID      string  `gorm:"index:idx_plant_timestamp;not null"`
	PlantType    string  `gorm:"not null"`
	Location     string  `gorm:"not null"`
	SoilMoisture float64 `gorm:"not null"`
	LightLevel   float64 `gorm:"not null"`
	Temperature  float64 `gorm:"not null"`
	Humidity     float64 `gorm:"not null"`
	ID           uint    `gorm:"primaryKey"`
}

// TableName specifies the table name for SensorReading model.
func (SensorReading) TableName() string {
	return "sensor_readings"
}

// Plant is a care profile row in the plants table.
// plant_id is indexed but not unique: concurrent auto-registration may insert duplicates.
type Plant struct {
	FirstSeenTimestamp time.Time `gorm:"not null"`
	LastWatered        time.Time
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	PlantID            string    `gorm:"index:idx_plant_id;not null"`
	PlantType          string    `gorm:"not null"`
	Name               string
	Location           string
	WateringFrequency  string
	Notes              string
	MoistureMin        float64
	MoistureMax        float64
	LightMin           float64
	TemperatureMin     float64
	TemperatureMax     float64
	HumidityMin        float64
	HumidityMax        float64
	ID                 uint `gorm:"primaryKey"`
	AutoRegistered     bool `gorm:"not null;default:false"`
}

// TableName specifies the table name for Plant model.
func (Plant) TableName() string {
	return "plants"
}

// Alert is an alert row in the alerts table.
type Alert struct {
	Timestamp time.Time `gorm:"index:idx_alert_plant_timestamp;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	PlantID   string    `gorm:"index:idx_alert_plant_timestamp;not null"`
	Type      string    `gorm:"not null"`
	Severity  string    `gorm:"not null"`
	Message   string
	ID        uint `gorm:"primaryKey"`
}

// TableName specifies the table name for Alert model.
func (Alert) TableName() string {
	return "alerts"
}

func readingRow(r *plant.SensorReading, processedAt time.Time) *SensorReading {
	row := &SensorReading{
		PlantID:      r.PlantID,
		PlantType:    r.PlantType,
		Location:     r.Location,
		Timestamp:    r.Timestamp.UTC(),
		ProcessedAt:  processedAt,
		SoilMoisture: r.Sensors.SoilMoisture,
		LightLevel:   r.Sensors.LightLevel,
		Temperature:  r.Sensors.Temperature,
		Humidity:     r.Sensors.Humidity,
	}
	if level, ok := r.BatteryLevel(); ok {
		row.BatteryLevel = &level
	}
	return row
}

func plantRow(p *plant.CareProfile) *Plant {
	return &Plant{
		PlantID:            p.PlantID,
		PlantType:          p.PlantType,
		Name:               p.Name,
		Location:           p.Location,
		MoistureMin:        p.MoistureMin,
		MoistureMax:        p.MoistureMax,
		LightMin:           p.LightMin,
		TemperatureMin:     p.TemperatureMin,
		TemperatureMax:     p.TemperatureMax,
		HumidityMin:        p.HumidityMin,
		HumidityMax:        p.HumidityMax,
		WateringFrequency:  p.WateringFrequency,
		Notes:              p.Notes,
		AutoRegistered:     p.AutoRegistered,
		FirstSeenTimestamp: p.FirstSeenTimestamp.UTC(),
		LastWatered:        p.LastWatered.UTC(),
	}
}

func (p *Plant) profile() *plant.CareProfile {
	return &plant.CareProfile{
		PlantID:            p.PlantID,
		PlantType:          p.PlantType,
		Name:               p.Name,
		Location:           p.Location,
		MoistureMin:        p.MoistureMin,
		MoistureMax:        p.MoistureMax,
		LightMin:           p.LightMin,
		TemperatureMin:     p.TemperatureMin,
		TemperatureMax:     p.TemperatureMax,
		HumidityMin:        p.HumidityMin,
		HumidityMax:        p.HumidityMax,
		WateringFrequency:  p.WateringFrequency,
		Notes:              p.Notes,
		AutoRegistered:     p.AutoRegistered,
		FirstSeenTimestamp: p.FirstSeenTimestamp,
		LastWatered:        p.LastWatered,
	}
}

func alertRow(a *plant.Alert) *Alert {
	return &Alert{
		PlantID:   a.PlantID,
		Timestamp: a.Timestamp.UTC(),
		Type:      string(a.Type),
		Severity:  string(a.Severity),
		Message:   a.Message,
	}
}
