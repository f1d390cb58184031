// Package mock provides mock implementations of the mq package interfaces for testing.
package mock

import (
	"context"
	"sync"

	"procodus.dev/plant-processor/pkg/mq"
)

// Ensure MockClient implements Publisher.
var _ mq.Publisher = (*MockClient)(nil)

// MockClient is a mock implementation of Publisher for testing.
// It records pushed payloads and returns configured errors.
type MockClient struct {
	mu sync.Mutex

	// PushFunc is called when Push is invoked. If nil, returns PushError.
	PushFunc func(ctx context.Context, data []byte) error
	// PushError is returned by Push if PushFunc is nil.
	PushError error
	// Pushed tracks the payload of every Push call.
	Pushed [][]byte

	// CloseError is returned by Close.
	CloseError error
	// CloseCalls tracks the number of times Close was called.
	CloseCalls int
}

// NewMockClient creates a new MockClient with default behavior (no errors).
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Push implements Publisher.
func (m *MockClient) Push(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Pushed = append(m.Pushed, data)
	if m.PushFunc != nil {
		return m.PushFunc(ctx, data)
	}
	return m.PushError
}

// PushCount returns the number of Push calls.
func (m *MockClient) PushCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Pushed)
}

// Close implements Publisher.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return m.CloseError
}
