package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

// MockPublisher records published memory events for assertions.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.MemoryPersistedEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishMemory(_ context.Context, event *eventstream.MemoryPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilMemoryEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (m *MockPublisher) Events() []*eventstream.MemoryPersistedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*eventstream.MemoryPersistedEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockPublisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*MockPublisher)(nil)
