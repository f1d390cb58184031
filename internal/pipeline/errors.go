package pipeline

import (
	"context"
	"errors"

	"procodus.dev/plant-processor/internal/alerts"
	"procodus.dev/plant-processor/internal/automation"
	"procodus.dev/plant-processor/internal/storage"
	"procodus.dev/plant-processor/pkg/plant"
)

// Error classes. Handle wraps stage failures with one of these so callers can
// match them with errors.Is; their text is also the error_class metric label.
var (
	ErrTransport  = errors.New("transport")
	ErrStorage    = errors.New("storage")
	ErrValidation = errors.New("validation")
	ErrInternal   = errors.New("internal")
)

// Classify maps an error from any stage onto one of the error classes.
// Connectivity problems with the store, the alert channel or the automation bus
// are transport errors.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTransport),
		errors.Is(err, storage.ErrUnavailable),
		errors.Is(err, alerts.ErrNotify),
		errors.Is(err, automation.ErrPublish),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ErrTransport
	case errors.Is(err, ErrStorage), errors.Is(err, storage.ErrWrite):
		return ErrStorage
	case errors.Is(err, ErrValidation), errors.Is(err, plant.ErrInvalidReading):
		return ErrValidation
	default:
		return ErrInternal
	}
}

// ClassLabel returns the metric label for err's class, or "" for a nil error.
func ClassLabel(err error) string {
	class := Classify(err)
	if class == nil {
		return ""
	}
	return class.Error()
}
