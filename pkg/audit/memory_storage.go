package audit

import (
	"context"
	"slices"
	"sync"
)

// MemoryStorage keeps events in process. It is used in tests and in
// development deployments without MongoDB.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStorage) StoreBatch(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Query returns matching events, newest first.
func (s *MemoryStorage) Query(_ context.Context, criteria Criteria) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range slices.Backward(s.events) {
		if criteria.Match(e) {
			out = append(out, e)
		}
	}
	if criteria.Offset > 0 {
		if criteria.Offset >= len(out) {
			return nil, nil
		}
		out = out[criteria.Offset:]
	}
	if criteria.Limit > 0 && len(out) > criteria.Limit {
		out = out[:criteria.Limit]
	}
	return out, nil
}

func (s *MemoryStorage) Count(_ context.Context, criteria Criteria) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.events {
		if criteria.Match(e) {
			n++
		}
	}
	return n, nil
}

// Events returns a snapshot of all stored events in insertion order.
func (s *MemoryStorage) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}
