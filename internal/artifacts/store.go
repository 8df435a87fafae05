package artifacts

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

// InMemoryStore implements ArtifactStore interface with in-memory storage
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[uuid.UUID]*Artifact
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		artifacts: make(map[uuid.UUID]*Artifact),
	}
}

// CreateArtifact stores a new artifact record
func (s *InMemoryStore) CreateArtifact(ctx context.Context, artifact *Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.artifacts[artifact.UUID]; exists {
		return zerrors.NewValidationError("artifact already exists", nil)
	}

	cp := *artifact
	s.artifacts[artifact.UUID] = &cp
	return nil
}

// GetArtifact retrieves an artifact by ID
func (s *InMemoryStore) GetArtifact(ctx context.Context, id uuid.UUID) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifact, exists := s.artifacts[id]
	if !exists {
		return nil, zerrors.NewNotFoundError("artifact", id.String())
	}

	cp := *artifact
	return &cp, nil
}

// ListSessionArtifacts returns all artifacts for a session, newest first
func (s *InMemoryStore) ListSessionArtifacts(ctx context.Context, sessionID uuid.UUID) ([]*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Artifact, 0)
	for _, artifact := range s.artifacts {
		if artifact.SessionID == sessionID {
			cp := *artifact
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

// LatestByKind returns the newest artifact of the given kind for a session
func (s *InMemoryStore) LatestByKind(ctx context.Context, sessionID uuid.UUID, kind Kind) (*Artifact, error) {
	all, err := s.ListSessionArtifacts(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for _, artifact := range all {
		if artifact.Kind == kind {
			return artifact, nil
		}
	}

	return nil, zerrors.NewNotFoundError(string(kind)+" artifact for session", sessionID.String())
}

// DeleteArtifact removes a single artifact record
func (s *InMemoryStore) DeleteArtifact(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.artifacts[id]; !exists {
		return zerrors.NewNotFoundError("artifact", id.String())
	}

	delete(s.artifacts, id)
	return nil
}

// DeleteSessionArtifacts removes all artifacts for a session and returns
// the removed records so the caller can clean up their blobs
func (s *InMemoryStore) DeleteSessionArtifacts(ctx context.Context, sessionID uuid.UUID) ([]*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]*Artifact, 0)
	for id, artifact := range s.artifacts {
		if artifact.SessionID == sessionID {
			cp := *artifact
			removed = append(removed, &cp)
			delete(s.artifacts, id)
		}
	}

	return removed, nil
}
