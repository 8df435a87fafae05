package sessions

import (
	"time"

	"github.com/google/uuid"
)

// Stage is a discrete step in the fixed ideation pipeline ordering.
type Stage string

const (
	StageCreated        Stage = "created"
	StageSketchUploaded Stage = "sketch_uploaded"
	StageImageGenerated Stage = "image_generated"
	StageModelGenerated Stage = "model_generated"
	StageExported       Stage = "exported"
)

var stageRank = map[Stage]int{
	StageCreated:        0,
	StageSketchUploaded: 1,
	StageImageGenerated: 2,
	StageModelGenerated: 3,
	StageExported:       4,
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageRank[s]
	return ok
}

// Rank returns the position of s in the pipeline ordering.
func (s Stage) Rank() int {
	return stageRank[s]
}

// Before reports whether s precedes other in the pipeline ordering.
func (s Stage) Before(other Stage) bool {
	return stageRank[s] < stageRank[other]
}

// Session represents one ideation attempt, from initial concept to
// optional Blender export.
type Session struct {
	UUID          uuid.UUID `json:"uuid"`
	Concept       string    `json:"concept"`
	ProjectType   string    `json:"project_type"`
	Genre         string    `json:"genre"`
	Description   string    `json:"description,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Stage         Stage     `json:"stage"`
	BlendFilePath *string   `json:"blend_file_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateSessionRequest represents a request to create a new ideation session
type CreateSessionRequest struct {
	Concept     string   `json:"concept"`
	ProjectType string   `json:"project_type"`
	Genre       string   `json:"genre"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AdvanceStageRequest advances a session to a strictly later stage,
// optionally attaching the exported blend file path.
type AdvanceStageRequest struct {
	SessionID     uuid.UUID `json:"session_id"`
	Stage         Stage     `json:"stage"`
	BlendFilePath *string   `json:"blend_file_path,omitempty"`
}
