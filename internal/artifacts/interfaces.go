package artifacts

import (
	"context"

	"github.com/google/uuid"
)

// ArtifactStore defines the interface for artifact metadata storage
type ArtifactStore interface {
	CreateArtifact(ctx context.Context, artifact *Artifact) error
	GetArtifact(ctx context.Context, id uuid.UUID) (*Artifact, error)
	ListSessionArtifacts(ctx context.Context, sessionID uuid.UUID) ([]*Artifact, error)
	LatestByKind(ctx context.Context, sessionID uuid.UUID, kind Kind) (*Artifact, error)
	DeleteArtifact(ctx context.Context, id uuid.UUID) error
	DeleteSessionArtifacts(ctx context.Context, sessionID uuid.UUID) ([]*Artifact, error)
}

// BlobStore defines the interface for artifact file storage
type BlobStore interface {
	Save(kind Kind, sessionID uuid.UUID, ext string, data []byte) (string, error)
	Read(path string) ([]byte, error)
	Remove(path string) error
}
