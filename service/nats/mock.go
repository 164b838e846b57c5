package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*ApprovalEvent
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*ApprovalEvent, 0),
	}
}

// PublishApproval records the event and returns any configured error.
func (m *MockPublisher) PublishApproval(ctx context.Context, event *ApprovalEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedEvents returns all published events (for testing).
func (m *MockPublisher) GetPublishedEvents() []*ApprovalEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*ApprovalEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// GetPublishedEventsForEmployee returns events published for one employee.
func (m *MockPublisher) GetPublishedEventsForEmployee(employeeID string) []*ApprovalEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*ApprovalEvent, 0)
	for _, event := range m.publishedEvents {
		if event.EmployeeID == employeeID {
			events = append(events, event)
		}
	}
	return events
}

// SetPublishError configures the mock to return an error on PublishApproval.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed reports whether Close was called.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Reset clears all recorded events and errors.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedEvents = make([]*ApprovalEvent, 0)
	m.publishError = nil
	m.closed = false
}
