package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"procodus.dev/plant-processor/internal/registry"
	"procodus.dev/plant-processor/pkg/plant"
)

// Store implements the reading store, the alert log and the registry's profile store
// on a single GORM connection.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Ensure Store implements registry.ProfileStore.
var _ registry.ProfileStore = (*Store)(nil)

// NewStore wraps db. It returns an error if db is nil.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("database cannot be nil")
	}
	return &Store{
		db: db,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// StoreReading appends a raw reading to sensor_readings.
// Duplicate deliveries produce duplicate rows.
func (s *Store) StoreReading(ctx context.Context, reading *plant.SensorReading) error {
	row := readingRow(reading, s.now())
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return classify("failed to insert sensor reading", err)
	}
	return nil
}

// StoreAlert appends an alert to the alerts table.
func (s *Store) StoreAlert(ctx context.Context, alert *plant.Alert) error {
	if err := s.db.WithContext(ctx).Create(alertRow(alert)).Error; err != nil {
		return classify("failed to insert alert", err)
	}
	return nil
}

// FindProfile returns the earliest registered profile for plantID,
// or registry.ErrNotFound.
func (s *Store) FindProfile(ctx context.Context, plantID string) (*plant.CareProfile, error) {
	var row Plant
	err := s.db.WithContext(ctx).
		Where("plant_id = ?", plantID).
		Order("id ASC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, registry.ErrNotFound
		}
		return nil, classify("failed to query plant", err)
	}
	return row.profile(), nil
}

// CreateProfile inserts a care profile. No uniqueness check is made.
func (s *Store) CreateProfile(ctx context.Context, profile *plant.CareProfile) error {
	if err := s.db.WithContext(ctx).Create(plantRow(profile)).Error; err != nil {
		return classify("failed to insert plant", err)
	}
	return nil
}
