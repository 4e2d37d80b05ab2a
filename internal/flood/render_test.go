package flood

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDiagnostic(t *testing.T) {
	normalized := image.NewGray(image.Rect(0, 0, 6, 4))
	for i := range normalized.Pix {
		normalized.Pix[i] = uint8(i * 10)
	}
	inverted := Invert(normalized)
	mask := ComposeMask(
		ClassifyFlood(inverted, 120),
		RiverMask(normalized, DefaultRiverCutoff),
	)

	out, err := RenderDiagnostic(DiagnosticInput{
		Normalized:     normalized,
		Inverted:       inverted,
		Mask:           mask,
		FloodThreshold: 120,
		RiverCutoff:    DefaultRiverCutoff,
	})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	b := img.Bounds()
	// four panels side by side
	assert.Greater(t, b.Dx(), 3*b.Dy())
}

func TestRenderDiagnostic_MissingPanel(t *testing.T) {
	_, err := RenderDiagnostic(DiagnosticInput{Normalized: image.NewGray(image.Rect(0, 0, 2, 2))})
	assert.ErrorIs(t, err, ErrRendering)
}
