package store

import (
	"context"
	"sync"

	"attestor/internal/registry"
)

// Memory is an in-process journal for tests and single-node development. It
// intentionally favors clarity over performance.
type Memory struct {
	mu     sync.Mutex
	events []registry.Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, event registry.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *Memory) Load(_ context.Context) ([]registry.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]registry.Event{}, m.events...), nil
}

// Len reports the number of appended events. Test helper.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
