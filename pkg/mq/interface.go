package mq

import "context"

// Publisher defines the operations the pipeline needs from a RabbitMQ queue.
type Publisher interface {
	// Push publishes data to the queue and waits for the broker's confirmation.
	// It retries with backoff while the client is reconnecting.
	Push(ctx context.Context, data []byte) error

	// Close shuts down the channel and connection.
	Close() error
}

// Ensure Client implements Publisher.
var _ Publisher = (*Client)(nil)
