// Package registry maps plant identifiers to care profiles and provisions
// default profiles for plants seen for the first time.
//
// Lookup-then-create is not atomic. Two consumers seeing a new plant at the
// same time may both insert a profile; the duplicate rows are tolerated and
// Find keeps returning the earliest one.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"procodus.dev/plant-processor/pkg/plant"
)

// ErrNotFound is returned by Find when no profile is registered for a plant.
var ErrNotFound = errors.New("care profile not found")

// ProfileStore is the persistence the registry needs.
// FindProfile must return ErrNotFound when the plant has no profile.
type ProfileStore interface {
	FindProfile(ctx context.Context, plantID string) (*plant.CareProfile, error)
	CreateProfile(ctx context.Context, profile *plant.CareProfile) error
}

// Registry resolves care profiles for plants.
type Registry interface {
	Find(ctx context.Context, plantID string) (*plant.CareProfile, error)
	AutoProvision(ctx context.Context, reading *plant.SensorReading) (*plant.CareProfile, error)
}

// Config holds the configuration for a Service.
type Config struct {
	Logger *slog.Logger
	Store  ProfileStore
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service is the Registry backed by a ProfileStore.
type Service struct {
	logger *slog.Logger
	store  ProfileStore
	now    func() time.Time
}

// Ensure Service implements Registry.
var _ Registry = (*Service)(nil)

// New creates a registry Service.
func New(cfg *Config) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("registry config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Store == nil {
		return nil, errors.New("profile store cannot be nil")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		logger: cfg.Logger,
		store:  cfg.Store,
		now:    now,
	}, nil
}

// Find returns the profile registered for plantID, or ErrNotFound.
func (s *Service) Find(ctx context.Context, plantID string) (*plant.CareProfile, error) {
	profile, err := s.store.FindProfile(ctx, plantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find care profile for %s: %w", plantID, err)
	}
	return profile, nil
}

// AutoProvision derives a default profile from the reading's plant type,
// persists it and returns it.
func (s *Service) AutoProvision(ctx context.Context, reading *plant.SensorReading) (*plant.CareProfile, error) {
	profile := NewProfile(reading, s.now().UTC())

	if _, known := DefaultsFor(reading.PlantType); !known {
		s.logger.Warn("unrecognized plant type, using generic care defaults",
			"plant_id", reading.PlantID,
			"plant_type", reading.PlantType,
		)
	}

	if err := s.store.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to auto-register plant %s: %w", reading.PlantID, err)
	}

	s.logger.Info("auto-registered plant with default care profile",
		"plant_id", profile.PlantID,
		"plant_type", profile.PlantType,
		"location", profile.Location,
	)

	return profile, nil
}
