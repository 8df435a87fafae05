package provider

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

// tint applied to every rendered sketch until a real image model is
// wired in
var renderTint = color.NRGBA{R: 100, G: 100, B: 255}

const renderTintAlpha = 0.3

// LocalSketchRenderer is a stand-in sketch-to-image converter. It
// re-encodes the sketch with a uniform color tint so the pipeline has a
// distinct image artifact to carry forward.
type LocalSketchRenderer struct{}

// NewLocalSketchRenderer creates a new local renderer
func NewLocalSketchRenderer() *LocalSketchRenderer {
	return &LocalSketchRenderer{}
}

// RenderSketch decodes the sketch, blends the tint over it, and returns
// the result as PNG. The prompt context is accepted for hosted
// renderers; the local tint has no use for it.
func (r *LocalSketchRenderer) RenderSketch(ctx context.Context, sketch []byte, contentType string, promptCtx RenderContext) ([]byte, string, error) {
	src, _, err := image.Decode(bytes.NewReader(sketch))
	if err != nil {
		return nil, "", zerrors.NewValidationError("sketch is not a decodable image", err)
	}

	bounds := src.Bounds()
	out := image.NewNRGBA(bounds)
	draw.Draw(out, bounds, src, bounds.Min, draw.Src)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := out.NRGBAAt(x, y)
			out.SetNRGBA(x, y, blendTint(c))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, "", zerrors.NewInternalError("encode rendered image", err)
	}

	return buf.Bytes(), "image/png", nil
}

func blendTint(c color.NRGBA) color.NRGBA {
	blend := func(base, tint uint8) uint8 {
		return uint8(float64(base)*(1-renderTintAlpha) + float64(tint)*renderTintAlpha)
	}
	return color.NRGBA{
		R: blend(c.R, renderTint.R),
		G: blend(c.G, renderTint.G),
		B: blend(c.B, renderTint.B),
		A: c.A,
	}
}
