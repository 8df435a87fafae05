package sessions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

// PostgresStore implements SessionStore interface with PostgreSQL storage
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

// SessionSchema represents the ideation_sessions table schema
type SessionSchema struct {
	bun.BaseModel `bun:"table:ideation_sessions,alias:s"`

	UUID          string     `bun:"uuid,pk,type:uuid" json:"uuid"`
	Concept       string     `bun:"concept,notnull" json:"concept"`
	ProjectType   string     `bun:"project_type,notnull" json:"project_type"`
	Genre         string     `bun:"genre,notnull" json:"genre"`
	Description   string     `bun:"description" json:"description"`
	Tags          []string   `bun:"tags,array" json:"tags"`
	Stage         string     `bun:"stage,notnull" json:"stage"`
	BlendFilePath *string    `bun:"blend_file_path,nullzero" json:"blend_file_path,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// SessionIndexes holds index DDL applied at migration time.
var SessionIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_ideation_sessions_stage ON ideation_sessions (stage)",
	"CREATE INDEX IF NOT EXISTS idx_ideation_sessions_updated_at ON ideation_sessions (updated_at DESC)",
}

// CreateSession creates a new session
func (s *PostgresStore) CreateSession(ctx context.Context, session *Session) error {
	schema := sessionToSchema(session)

	_, err := s.db.NewInsert().
		Model(schema).
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageError("create session", err)
	}

	return nil
}

// GetSession retrieves a session by ID (active sessions only)
func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	var schema SessionSchema
	err := s.db.NewSelect().
		Model(&schema).
		Where("uuid = ?", id.String()).
		Where("deleted_at IS NULL").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, zerrors.NewNotFoundError("session", id.String())
		}
		return nil, zerrors.NewStorageError("get session", err)
	}

	return schemaToSession(schema), nil
}

// ListSessions returns all active sessions, most recently updated first
func (s *PostgresStore) ListSessions(ctx context.Context) ([]*Session, error) {
	var schemas []SessionSchema
	err := s.db.NewSelect().
		Model(&schemas).
		Where("deleted_at IS NULL").
		Order("updated_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, zerrors.NewStorageError("list sessions", err)
	}

	out := make([]*Session, len(schemas))
	for i, schema := range schemas {
		out[i] = schemaToSession(schema)
	}

	return out, nil
}

// UpdateSession persists the mutable session fields
func (s *PostgresStore) UpdateSession(ctx context.Context, session *Session) error {
	schema := sessionToSchema(session)

	result, err := s.db.NewUpdate().
		Model(schema).
		Column("concept", "project_type", "genre", "description", "tags", "stage", "blend_file_path", "updated_at").
		Where("uuid = ?", session.UUID.String()).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageError("update session", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return zerrors.NewStorageError("update session", err)
	}

	if rowsAffected == 0 {
		return zerrors.NewNotFoundError("session", session.UUID.String())
	}

	return nil
}

// DeleteSession soft-deletes a session by setting deleted_at timestamp
func (s *PostgresStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	now := time.Now()

	result, err := s.db.NewUpdate().
		Model((*SessionSchema)(nil)).
		Where("uuid = ?", id.String()).
		Where("deleted_at IS NULL").
		Set("deleted_at = ?", now).
		Set("updated_at = ?", now).
		Exec(ctx)

	if err != nil {
		return zerrors.NewStorageError("delete session", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return zerrors.NewStorageError("delete session", err)
	}

	if rowsAffected == 0 {
		return zerrors.NewNotFoundError("session", id.String())
	}

	return nil
}

func sessionToSchema(session *Session) *SessionSchema {
	return &SessionSchema{
		UUID:          session.UUID.String(),
		Concept:       session.Concept,
		ProjectType:   session.ProjectType,
		Genre:         session.Genre,
		Description:   session.Description,
		Tags:          session.Tags,
		Stage:         string(session.Stage),
		BlendFilePath: session.BlendFilePath,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	}
}

// schemaToSession converts database schema to session model
func schemaToSession(schema SessionSchema) *Session {
	id, _ := uuid.Parse(schema.UUID)
	return &Session{
		UUID:          id,
		Concept:       schema.Concept,
		ProjectType:   schema.ProjectType,
		Genre:         schema.Genre,
		Description:   schema.Description,
		Tags:          schema.Tags,
		Stage:         Stage(schema.Stage),
		BlendFilePath: schema.BlendFilePath,
		CreatedAt:     schema.CreatedAt,
		UpdatedAt:     schema.UpdatedAt,
	}
}
