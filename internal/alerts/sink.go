// Package alerts persists plant alerts and republishes them for downstream consumers.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"procodus.dev/plant-processor/pkg/plant"
)

var (
	// ErrPersist marks a failure to write the alert log.
	ErrPersist = errors.New("alert persist failed")
	// ErrNotify marks a failure to republish an alert.
	ErrNotify = errors.New("alert notify failed")
)

// Store is the durable alert log.
type Store interface {
	StoreAlert(ctx context.Context, alert *plant.Alert) error
}

// Notifier republishes an alert on a downstream channel.
type Notifier interface {
	Notify(ctx context.Context, alert *plant.Alert) error
	Close() error
}

// SinkConfig holds the configuration for a Sink.
type SinkConfig struct {
	Logger   *slog.Logger
	Store    Store
	Notifier Notifier
}

// Sink writes each alert to the log and then republishes it.
type Sink struct {
	logger   *slog.Logger
	store    Store
	notifier Notifier
}

// NewSink creates a Sink.
func NewSink(cfg *SinkConfig) (*Sink, error) {
	if cfg == nil {
		return nil, errors.New("sink config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Store == nil {
		return nil, errors.New("alert store cannot be nil")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("notifier cannot be nil")
	}

	return &Sink{
		logger:   cfg.Logger,
		store:    cfg.Store,
		notifier: cfg.Notifier,
	}, nil
}

// Emit persists alert and republishes it. Alerts that fail to persist are not republished.
func (s *Sink) Emit(ctx context.Context, alert *plant.Alert) error {
	if err := s.store.StoreAlert(ctx, alert); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	if err := s.notifier.Notify(ctx, alert); err != nil {
		return fmt.Errorf("%w: %w", ErrNotify, err)
	}

	s.logger.Info("alert sent",
		"plant_id", alert.PlantID,
		"type", alert.Type,
		"severity", alert.Severity,
		"message", alert.Message,
	)
	return nil
}

// Close releases the notifier.
func (s *Sink) Close() error {
	return s.notifier.Close()
}

func encode(alert *plant.Alert) ([]byte, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal alert: %w", err)
	}
	return data, nil
}
