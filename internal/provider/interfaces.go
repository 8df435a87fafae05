package provider

import "context"

// TextClient defines the interface for AI text operations
type TextClient interface {
	ExtractTags(ctx context.Context, text string, maxTags int) ([]string, error)
	Generate3DPrompt(ctx context.Context, concept, projectType, genre, description string) (string, error)
	SummarizeProject(ctx context.Context, concept, projectType, genre, description string) (string, error)
	SuggestImprovements(ctx context.Context, concept, projectType, genre, description string) ([]string, error)
}

// RenderContext carries the session fields a renderer can use to steer
// generation
type RenderContext struct {
	Concept     string
	ProjectType string
	Genre       string
	Description string
}

// SketchRenderer turns an uploaded sketch into a rendered concept image
type SketchRenderer interface {
	RenderSketch(ctx context.Context, sketch []byte, contentType string, promptCtx RenderContext) (data []byte, outContentType string, err error)
}

// MeshGenerator produces a 3D model file from either a rendered image
// or a text prompt
type MeshGenerator interface {
	MeshFromImage(ctx context.Context, image []byte) (data []byte, contentType string, err error)
	MeshFromText(ctx context.Context, prompt string) (data []byte, contentType string, err error)
}
