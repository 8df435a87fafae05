package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

// PostgresStore implements EventStore interface with PostgreSQL storage
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

// GenerationEventSchema represents the generation_events table schema
type GenerationEventSchema struct {
	bun.BaseModel `bun:"table:generation_events,alias:e"`

	UUID       string         `bun:"uuid,pk,type:uuid" json:"uuid"`
	SessionID  string         `bun:"session_id,notnull,type:uuid" json:"session_id"`
	Operation  string         `bun:"operation,notnull" json:"operation"`
	Stage      string         `bun:"stage" json:"stage"`
	Success    bool           `bun:"success,notnull" json:"success"`
	ErrorMsg   string         `bun:"error_msg" json:"error_msg,omitempty"`
	DurationMs int64          `bun:"duration_ms" json:"duration_ms"`
	Params     map[string]any `bun:"params,type:jsonb" json:"params,omitempty"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// EventIndexes holds index DDL applied at migration time.
var EventIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_generation_events_session_id ON generation_events (session_id, created_at DESC)",
}

// CreateEvent appends an event to the log
func (s *PostgresStore) CreateEvent(ctx context.Context, event *GenerationEvent) error {
	schema := eventToSchema(event)

	_, err := s.db.NewInsert().
		Model(schema).
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageError("create event", err)
	}

	return nil
}

// ListSessionEvents returns a session's events, newest first
func (s *PostgresStore) ListSessionEvents(ctx context.Context, sessionID uuid.UUID) ([]*GenerationEvent, error) {
	var schemas []GenerationEventSchema
	err := s.db.NewSelect().
		Model(&schemas).
		Where("session_id = ?", sessionID.String()).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, zerrors.NewStorageError("list events", err)
	}

	out := make([]*GenerationEvent, len(schemas))
	for i, schema := range schemas {
		out[i] = schemaToEvent(schema)
	}

	return out, nil
}

// DeleteSessionEvents removes all events for a session
func (s *PostgresStore) DeleteSessionEvents(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.db.NewDelete().
		Model((*GenerationEventSchema)(nil)).
		Where("session_id = ?", sessionID.String()).
		Exec(ctx)
	if err != nil {
		return zerrors.NewStorageError("delete events", err)
	}

	return nil
}

func eventToSchema(event *GenerationEvent) *GenerationEventSchema {
	return &GenerationEventSchema{
		UUID:       event.UUID.String(),
		SessionID:  event.SessionID.String(),
		Operation:  string(event.Operation),
		Stage:      event.Stage,
		Success:    event.Success,
		ErrorMsg:   event.ErrorMsg,
		DurationMs: event.DurationMs,
		Params:     event.Params,
		CreatedAt:  event.CreatedAt,
	}
}

func schemaToEvent(schema GenerationEventSchema) *GenerationEvent {
	id, _ := uuid.Parse(schema.UUID)
	sessionID, _ := uuid.Parse(schema.SessionID)
	return &GenerationEvent{
		UUID:       id,
		SessionID:  sessionID,
		Operation:  Operation(schema.Operation),
		Stage:      schema.Stage,
		Success:    schema.Success,
		ErrorMsg:   schema.ErrorMsg,
		DurationMs: schema.DurationMs,
		Params:     schema.Params,
		CreatedAt:  schema.CreatedAt,
	}
}
