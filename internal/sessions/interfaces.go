package sessions

import (
	"context"

	"github.com/google/uuid"
)

// SessionManager defines the interface for session operations
type SessionManager interface {
	CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	ListSessions(ctx context.Context) ([]*Session, error)
	AdvanceStage(ctx context.Context, req *AdvanceStageRequest) (*Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// SessionStore defines the interface for session storage operations
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	ListSessions(ctx context.Context) ([]*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
}
