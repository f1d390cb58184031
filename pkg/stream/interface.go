package stream

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Reader is the consumer-group side of a topic.
// Messages must be committed explicitly after they have been handled.
type Reader interface {
	// FetchMessage blocks until the next message is available or ctx is done.
	// It does not advance the committed offset.
	FetchMessage(ctx context.Context) (kafka.Message, error)

	// CommitMessages advances the group's committed offset past msgs.
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error

	// Close leaves the consumer group and releases the connection.
	Close() error
}

// Writer publishes keyed messages to a topic.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Ensure the kafka-go types implement the interfaces.
var (
	_ Reader = (*kafka.Reader)(nil)
	_ Writer = (*kafka.Writer)(nil)
)
