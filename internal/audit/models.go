package audit

import (
	"time"

	"github.com/google/uuid"
)

// Operation names a pipeline step recorded in the event log.
type Operation string

const (
	OpUploadSketch  Operation = "upload_sketch"
	OpGenerateImage Operation = "generate_image"
	OpModelFromImg  Operation = "model_from_image"
	OpModelFromText Operation = "model_from_text"
	OpExport        Operation = "export"
	OpDelete        Operation = "delete"
)

// GenerationEvent is one pipeline step outcome, kept for traceability
// of what produced each artifact.
type GenerationEvent struct {
	UUID       uuid.UUID      `json:"uuid"`
	SessionID  uuid.UUID      `json:"session_id"`
	Operation  Operation      `json:"operation"`
	Stage      string         `json:"stage"`
	Success    bool           `json:"success"`
	ErrorMsg   string         `json:"error_msg,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Params     map[string]any `json:"params,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SessionActivity summarizes the recorded events for one session.
// SuccessRate is 0 when no events exist.
type SessionActivity struct {
	SessionID    uuid.UUID  `json:"session_id"`
	EventCount   int        `json:"event_count"`
	FailedCount  int        `json:"failed_count"`
	SuccessRate  float64    `json:"success_rate"`
	FirstEventAt *time.Time `json:"first_event_at,omitempty"`
	LastEventAt  *time.Time `json:"last_event_at,omitempty"`
}
