package publish

import (
	"context"
	"sync"
)

// Memory is an in-process Publisher used in tests and when no topic is
// configured.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory returns an empty in-process publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish records the event.
func (m *Memory) Publish(_ context.Context, event Event) error {
	if _, err := encode(event); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
