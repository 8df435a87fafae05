package sessions

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

// InMemoryStore implements SessionStore interface with in-memory storage
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[uuid.UUID]*Session),
	}
}

// CreateSession creates a new session
func (s *InMemoryStore) CreateSession(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.UUID]; exists {
		return zerrors.NewValidationError("session already exists", nil)
	}

	cp := *session
	s.sessions[session.UUID] = &cp
	return nil
}

// GetSession retrieves a session by ID
func (s *InMemoryStore) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, zerrors.NewNotFoundError("session", id.String())
	}

	cp := *session
	return &cp, nil
}

// ListSessions returns all sessions, most recently updated first
func (s *InMemoryStore) ListSessions(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		cp := *session
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	return out, nil
}

// UpdateSession replaces a stored session
func (s *InMemoryStore) UpdateSession(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.UUID]; !exists {
		return zerrors.NewNotFoundError("session", session.UUID.String())
	}

	cp := *session
	s.sessions[session.UUID] = &cp
	return nil
}

// DeleteSession removes a session
func (s *InMemoryStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return zerrors.NewNotFoundError("session", id.String())
	}

	delete(s.sessions, id)
	return nil
}
