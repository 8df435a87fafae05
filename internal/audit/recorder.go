package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder writes generation events and answers activity queries.
// Recording failures are logged and swallowed so the audit trail never
// fails a pipeline operation.
type Recorder struct {
	store  EventStore
	logger *zap.Logger
}

// NewRecorder creates a new recorder
func NewRecorder(store EventStore, logger *zap.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger,
	}
}

// Record logs the outcome of one pipeline operation
func (r *Recorder) Record(ctx context.Context, sessionID uuid.UUID, op Operation, stage string, start time.Time, opErr error, params map[string]any) {
	event := &GenerationEvent{
		UUID:       uuid.New(),
		SessionID:  sessionID,
		Operation:  op,
		Stage:      stage,
		Success:    opErr == nil,
		DurationMs: time.Since(start).Milliseconds(),
		Params:     params,
		CreatedAt:  time.Now(),
	}
	if opErr != nil {
		event.ErrorMsg = opErr.Error()
	}

	if err := r.store.CreateEvent(ctx, event); err != nil {
		r.logger.Warn("Failed to record generation event",
			zap.String("session_id", sessionID.String()),
			zap.String("operation", string(op)),
			zap.Error(err))
	}
}

// SessionEvents returns a session's events, newest first
func (r *Recorder) SessionEvents(ctx context.Context, sessionID uuid.UUID) ([]*GenerationEvent, error) {
	return r.store.ListSessionEvents(ctx, sessionID)
}

// SessionActivity summarizes a session's recorded events
func (r *Recorder) SessionActivity(ctx context.Context, sessionID uuid.UUID) (*SessionActivity, error) {
	events, err := r.store.ListSessionEvents(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	activity := &SessionActivity{SessionID: sessionID, EventCount: len(events)}
	for _, event := range events {
		if !event.Success {
			activity.FailedCount++
		}
	}
	if len(events) > 0 {
		activity.SuccessRate = float64(len(events)-activity.FailedCount) / float64(len(events))
		// events are newest first
		activity.LastEventAt = &events[0].CreatedAt
		activity.FirstEventAt = &events[len(events)-1].CreatedAt
	}

	return activity, nil
}

// PurgeSession removes a deleted session's events
func (r *Recorder) PurgeSession(ctx context.Context, sessionID uuid.UUID) error {
	return r.store.DeleteSessionEvents(ctx, sessionID)
}
