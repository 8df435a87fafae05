package artifacts

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies what an artifact blob holds.
type Kind string

const (
	KindSketch Kind = "sketch"
	KindImage  Kind = "image"
	KindModel  Kind = "model"
)

// Valid reports whether k is a known artifact kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSketch, KindImage, KindModel:
		return true
	}
	return false
}

// Artifact is one generated or uploaded file belonging to a session.
// Params records the generation inputs (prompt, source artifact, model
// settings) so every output can be traced back to what produced it.
type Artifact struct {
	UUID        uuid.UUID      `json:"uuid"`
	SessionID   uuid.UUID      `json:"session_id"`
	Kind        Kind           `json:"kind"`
	ContentType string         `json:"content_type"`
	Path        string         `json:"path"`
	SizeBytes   int64          `json:"size_bytes"`
	Stage       string         `json:"stage"`
	Params      map[string]any `json:"params,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
