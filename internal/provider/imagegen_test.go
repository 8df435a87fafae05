package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRenderSketchAppliesTint(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}

	renderer := NewLocalSketchRenderer()
	data, contentType, err := renderer.RenderSketch(context.Background(), encodePNG(t, src), "image/png", RenderContext{Concept: "tower"})
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)

	out, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	// gray blended 70/30 toward (100, 100, 255)
	r, g, b, _ := out.At(1, 1).RGBA()
	assert.Equal(t, uint32(170), r>>8)
	assert.Equal(t, uint32(170), g>>8)
	assert.Equal(t, uint32(216), b>>8)
}

func TestRenderSketchRejectsGarbage(t *testing.T) {
	renderer := NewLocalSketchRenderer()
	_, _, err := renderer.RenderSketch(context.Background(), []byte("not an image"), "image/png", RenderContext{})
	require.Error(t, err)
	assert.True(t, zerrors.IsKind(err, zerrors.KindValidation))
}

func TestStubMeshGenerator(t *testing.T) {
	gen := NewStubMeshGenerator()

	fromText, contentType, err := gen.MeshFromText(context.Background(), "a stone tower")
	require.NoError(t, err)
	assert.Equal(t, "model/gltf+json", contentType)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(fromText, &doc))
	extras, ok := doc["extras"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "text", extras["source"])
	assert.Equal(t, "a stone tower", extras["prompt"])

	fromImage, _, err := gen.MeshFromImage(context.Background(), []byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(fromImage, &doc))
	extras, ok = doc["extras"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "image", extras["source"])
	assert.NotEmpty(t, extras["source_sha"])
}
