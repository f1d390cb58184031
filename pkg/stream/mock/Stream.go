// Package mock provides in-memory implementations of the stream interfaces for testing.
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/segmentio/kafka-go"

	"procodus.dev/plant-processor/pkg/stream"
)

// ErrClosed is returned by FetchMessage once the mock reader has been closed,
// as kafka-go's Reader does.
var ErrClosed = io.EOF

// Ensure the mocks implement the stream interfaces.
var (
	_ stream.Reader = (*MockReader)(nil)
	_ stream.Writer = (*MockWriter)(nil)
)

// MockReader serves messages from Messages and records commits.
type MockReader struct {
	mu sync.Mutex

	// Messages feeds FetchMessage.
	Messages chan kafka.Message
	// FetchError, if set, is returned by every FetchMessage call.
	FetchError error
	// CommitError is returned by CommitMessages.
	CommitError error
	// Committed records every committed message in order.
	Committed []kafka.Message
	// CloseCalls tracks the number of times Close was called.
	CloseCalls int

	closed chan struct{}
	once   sync.Once
}

// NewMockReader creates a MockReader with a buffered message channel.
func NewMockReader(buffer int) *MockReader {
	return &MockReader{
		Messages: make(chan kafka.Message, buffer),
		closed:   make(chan struct{}),
	}
}

// FetchMessage implements stream.Reader.
func (m *MockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	fetchErr := m.FetchError
	m.mu.Unlock()
	if fetchErr != nil {
		return kafka.Message{}, fetchErr
	}

	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-m.closed:
		return kafka.Message{}, ErrClosed
	case msg := <-m.Messages:
		return msg, nil
	}
}

// CommitMessages implements stream.Reader.
func (m *MockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CommitError != nil {
		return m.CommitError
	}
	m.Committed = append(m.Committed, msgs...)
	return nil
}

// CommittedCount returns the number of committed messages.
func (m *MockReader) CommittedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Committed)
}

// Close implements stream.Reader.
func (m *MockReader) Close() error {
	m.mu.Lock()
	m.CloseCalls++
	m.mu.Unlock()
	m.once.Do(func() { close(m.closed) })
	return nil
}

// MockWriter records written messages.
type MockWriter struct {
	mu sync.Mutex

	// WriteError is returned by WriteMessages.
	WriteError error
	// Written records every message passed to WriteMessages.
	Written []kafka.Message
	// CloseCalls tracks the number of times Close was called.
	CloseCalls int
}

// NewMockWriter creates a MockWriter that accepts all writes.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// WriteMessages implements stream.Writer.
func (m *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteError != nil {
		return m.WriteError
	}
	m.Written = append(m.Written, msgs...)
	return nil
}

// Messages returns a copy of the written messages.
func (m *MockWriter) Messages() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]kafka.Message, len(m.Written))
	copy(out, m.Written)
	return out
}

// Close implements stream.Writer.
func (m *MockWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return nil
}
