package audit

import (
	"context"

	"github.com/google/uuid"
)

// EventStore defines the interface for event storage
type EventStore interface {
	CreateEvent(ctx context.Context, event *GenerationEvent) error
	ListSessionEvents(ctx context.Context, sessionID uuid.UUID) ([]*GenerationEvent, error)
	DeleteSessionEvents(ctx context.Context, sessionID uuid.UUID) error
}
