package provider

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// StubMeshGenerator is a stand-in 3D generator. It emits a small glTF
// placeholder document that records what the model was derived from, so
// the pipeline and export paths have a real file to move around.
type StubMeshGenerator struct{}

// NewStubMeshGenerator creates a new stub generator
func NewStubMeshGenerator() *StubMeshGenerator {
	return &StubMeshGenerator{}
}

type stubMeshDoc struct {
	Asset struct {
		Version   string `json:"version"`
		Generator string `json:"generator"`
	} `json:"asset"`
	Extras map[string]string `json:"extras"`
}

// MeshFromImage derives a placeholder model from a rendered image
func (g *StubMeshGenerator) MeshFromImage(ctx context.Context, image []byte) ([]byte, string, error) {
	return g.encode(map[string]string{
		"source":       "image",
		"source_sha":   fmt.Sprintf("%x", sha256.Sum256(image)),
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// MeshFromText derives a placeholder model from a text prompt
func (g *StubMeshGenerator) MeshFromText(ctx context.Context, prompt string) ([]byte, string, error) {
	return g.encode(map[string]string{
		"source":       "text",
		"prompt":       prompt,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (g *StubMeshGenerator) encode(extras map[string]string) ([]byte, string, error) {
	var doc stubMeshDoc
	doc.Asset.Version = "2.0"
	doc.Asset.Generator = "ideaforge-stub"
	doc.Extras = extras

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, "", err
	}

	return data, "model/gltf+json", nil
}
