package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

// PostgresStore implements ArtifactStore interface with PostgreSQL storage
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

// ArtifactSchema represents the artifacts table schema
type ArtifactSchema struct {
	bun.BaseModel `bun:"table:artifacts,alias:a"`

	UUID        string         `bun:"uuid,pk,type:uuid" json:"uuid"`
	SessionID   string         `bun:"session_id,notnull,type:uuid" json:"session_id"`
	Kind        string         `bun:"kind,notnull" json:"kind"`
	ContentType string         `bun:"content_type,notnull" json:"content_type"`
	Path        string         `bun:"path,notnull" json:"path"`
	SizeBytes   int64          `bun:"size_bytes" json:"size_bytes"`
	Stage       string         `bun:"stage" json:"stage"`
	Params      map[string]any `bun:"params,type:jsonb" json:"params,omitempty"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// ArtifactIndexes holds index DDL applied at migration time.
var ArtifactIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_artifacts_session_id ON artifacts (session_id)",
	"CREATE INDEX IF NOT EXISTS idx_artifacts_session_kind ON artifacts (session_id, kind, created_at DESC)",
}

// CreateArtifact stores a new artifact record
func (s *PostgresStore) CreateArtifact(ctx context.Context, artifact *Artifact) error {
	schema := artifactToSchema(artifact)

	_, err := s.db.NewInsert().
		Model(schema).
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageError("create artifact", err)
	}

	return nil
}

// GetArtifact retrieves an artifact by ID
func (s *PostgresStore) GetArtifact(ctx context.Context, id uuid.UUID) (*Artifact, error) {
	var schema ArtifactSchema
	err := s.db.NewSelect().
		Model(&schema).
		Where("uuid = ?", id.String()).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, zerrors.NewNotFoundError("artifact", id.String())
		}
		return nil, zerrors.NewStorageError("get artifact", err)
	}

	return schemaToArtifact(schema), nil
}

// ListSessionArtifacts returns all artifacts for a session, newest first
func (s *PostgresStore) ListSessionArtifacts(ctx context.Context, sessionID uuid.UUID) ([]*Artifact, error) {
	var schemas []ArtifactSchema
	err := s.db.NewSelect().
		Model(&schemas).
		Where("session_id = ?", sessionID.String()).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, zerrors.NewStorageError("list artifacts", err)
	}

	out := make([]*Artifact, len(schemas))
	for i, schema := range schemas {
		out[i] = schemaToArtifact(schema)
	}

	return out, nil
}

// LatestByKind returns the newest artifact of the given kind for a session
func (s *PostgresStore) LatestByKind(ctx context.Context, sessionID uuid.UUID, kind Kind) (*Artifact, error) {
	var schema ArtifactSchema
	err := s.db.NewSelect().
		Model(&schema).
		Where("session_id = ?", sessionID.String()).
		Where("kind = ?", string(kind)).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, zerrors.NewNotFoundError(string(kind)+" artifact for session", sessionID.String())
		}
		return nil, zerrors.NewStorageError("get latest artifact", err)
	}

	return schemaToArtifact(schema), nil
}

// DeleteArtifact removes a single artifact record
func (s *PostgresStore) DeleteArtifact(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.NewDelete().
		Model((*ArtifactSchema)(nil)).
		Where("uuid = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageError("delete artifact", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return zerrors.NewStorageError("delete artifact", err)
	}

	if rowsAffected == 0 {
		return zerrors.NewNotFoundError("artifact", id.String())
	}

	return nil
}

// DeleteSessionArtifacts removes all artifacts for a session and returns
// the removed records so the caller can clean up their blobs
func (s *PostgresStore) DeleteSessionArtifacts(ctx context.Context, sessionID uuid.UUID) ([]*Artifact, error) {
	removed, err := s.ListSessionArtifacts(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.NewDelete().
		Model((*ArtifactSchema)(nil)).
		Where("session_id = ?", sessionID.String()).
		Exec(ctx)
	if err != nil {
		return nil, zerrors.NewStorageError("delete artifacts", err)
	}

	return removed, nil
}

func artifactToSchema(artifact *Artifact) *ArtifactSchema {
	return &ArtifactSchema{
		UUID:        artifact.UUID.String(),
		SessionID:   artifact.SessionID.String(),
		Kind:        string(artifact.Kind),
		ContentType: artifact.ContentType,
		Path:        artifact.Path,
		SizeBytes:   artifact.SizeBytes,
		Stage:       artifact.Stage,
		Params:      artifact.Params,
		CreatedAt:   artifact.CreatedAt,
	}
}

func schemaToArtifact(schema ArtifactSchema) *Artifact {
	id, _ := uuid.Parse(schema.UUID)
	sessionID, _ := uuid.Parse(schema.SessionID)
	return &Artifact{
		UUID:        id,
		SessionID:   sessionID,
		Kind:        Kind(schema.Kind),
		ContentType: schema.ContentType,
		Path:        schema.Path,
		SizeBytes:   schema.SizeBytes,
		Stage:       schema.Stage,
		Params:      schema.Params,
		CreatedAt:   schema.CreatedAt,
	}
}
