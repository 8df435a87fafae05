package audit

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore implements EventStore interface with in-memory storage
type InMemoryStore struct {
	mu     sync.RWMutex
	events []*GenerationEvent
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// CreateEvent appends an event to the log
func (s *InMemoryStore) CreateEvent(ctx context.Context, event *GenerationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *event
	s.events = append(s.events, &cp)
	return nil
}

// ListSessionEvents returns a session's events, newest first
func (s *InMemoryStore) ListSessionEvents(ctx context.Context, sessionID uuid.UUID) ([]*GenerationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*GenerationEvent, 0)
	for _, event := range s.events {
		if event.SessionID == sessionID {
			cp := *event
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

// DeleteSessionEvents removes all events for a session
func (s *InMemoryStore) DeleteSessionEvents(ctx context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	for _, event := range s.events {
		if event.SessionID != sessionID {
			kept = append(kept, event)
		}
	}
	s.events = kept
	return nil
}
