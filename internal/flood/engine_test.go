package flood

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"
	"time"

	"github.com/anime-shed/flood-inspector-go/internal/raster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// floodScene returns an 8x8 scene whose difference raster holds 8 pixels of
// 0, 40 of 120 and 16 of 240, giving a threshold of 120. The current raster
// sits entirely below that threshold and above the river cutoff.
func floodScene() (before, after, current *raster.Raster) {
	before = raster.Filled(8, 8, 10)
	after = raster.New(8, 8)
	current = raster.New(8, 8)
	for i := range after.Pix {
		switch {
		case i < 8:
			after.Pix[i] = 10
		case i < 48:
			after.Pix[i] = 130
		default:
			after.Pix[i] = 250
		}
		if i%2 == 0 {
			current.Pix[i] = 90
		} else {
			current.Pix[i] = 100
		}
	}
	return before, after, current
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(opts)
	require.NoError(t, err)
	return e
}

func noDiagnostic() Options {
	return DefaultOptions().WithoutDiagnostic()
}

func TestNewEngine_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"negative area threshold", DefaultOptions().WithFloodAreaThreshold(-0.1)},
		{"area threshold above one", DefaultOptions().WithFloodAreaThreshold(1.5)},
		{"negative cutoff", DefaultOptions().WithRiverCutoff(-1)},
		{"cutoff too large", DefaultOptions().WithRiverCutoff(300)},
		{"negative radius", DefaultOptions().WithDiskRadius(-2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.opts)
			assert.True(t, errors.Is(err, ErrInvalidOptions), "got %v", err)
		})
	}
}

func TestAnalyze_DetectsFlood(t *testing.T) {
	before, after, current := floodScene()
	e := newTestEngine(t, noDiagnostic())

	res, err := e.Analyze(context.Background(), before, after, current)
	require.NoError(t, err)

	assert.Equal(t, 120.0, res.FloodThreshold)
	assert.False(t, res.Rescaled)
	assert.Equal(t, Coverage{Flood: 64, Total: 64}, res.Coverage)
	assert.Equal(t, 1.0, res.FloodRatio)
	assert.True(t, res.FloodDetected)
	assert.Nil(t, res.DiagnosticImage)
	assert.NoError(t, res.RenderError)
}

func TestAnalyze_DetectionIsStrict(t *testing.T) {
	before, after, current := floodScene()
	e := newTestEngine(t, noDiagnostic().WithFloodAreaThreshold(1))

	res, err := e.Analyze(context.Background(), before, after, current)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.FloodRatio)
	assert.False(t, res.FloodDetected)
}

func TestAnalyze_SmallChangeBlock(t *testing.T) {
	// A 2x2 change block in a 4x4 scene: the two-level difference splits at 0,
	// so nothing in the current raster is below the threshold.
	before := raster.Filled(4, 4, 50)
	after := before.Clone()
	for _, p := range [][2]int{{1, 1}, {2, 1}, {1, 2}, {2, 2}} {
		after.Set(p[0], p[1], 200)
	}

	e := newTestEngine(t, noDiagnostic())
	res, err := e.Analyze(context.Background(), before, after, after)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.FloodThreshold)
	assert.Equal(t, 0.0, res.FloodRatio)
	assert.False(t, res.FloodDetected)
	assert.Equal(t, Coverage{Total: 16}, res.Coverage)
}

func TestAnalyze_FlatCurrentIsRiver(t *testing.T) {
	before, after, _ := floodScene()
	current := raster.New(8, 8)

	e := newTestEngine(t, noDiagnostic())
	res, err := e.Analyze(context.Background(), before, after, current)
	require.NoError(t, err)

	assert.True(t, res.Rescaled)
	assert.Equal(t, Coverage{River: 64, Total: 64}, res.Coverage)
	assert.Equal(t, 1.0, res.FloodRatio)
	assert.True(t, res.FloodDetected)
	for _, v := range res.Mask.Pix {
		assert.Equal(t, MaskRiver, v)
	}
}

func TestAnalyze_CurrentShapeIndependent(t *testing.T) {
	before, after, _ := floodScene()
	current := raster.Filled(3, 5, 95)
	current.Set(0, 0, 96)

	e := newTestEngine(t, noDiagnostic())
	res, err := e.Analyze(context.Background(), before, after, current)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Mask.Bounds().Dx())
	assert.Equal(t, 5, res.Mask.Bounds().Dy())
	assert.Equal(t, 15, res.Coverage.Total)
}

func TestAnalyze_Errors(t *testing.T) {
	before, after, current := floodScene()
	e := newTestEngine(t, noDiagnostic())
	ctx := context.Background()

	_, err := e.Analyze(ctx, before, before.Clone(), current)
	assert.True(t, errors.Is(err, ErrDegenerateThreshold), "got %v", err)

	_, err = e.Analyze(ctx, before, raster.Filled(4, 4, 1), current)
	assert.True(t, errors.Is(err, ErrInputShape), "got %v", err)

	_, err = e.Analyze(ctx, before, after, raster.New(0, 0))
	assert.True(t, errors.Is(err, ErrEmptyRaster), "got %v", err)

	_, err = e.Analyze(ctx, raster.New(0, 0), after, current)
	assert.True(t, errors.Is(err, ErrEmptyRaster), "got %v", err)
}

func TestAnalyze_Cancelled(t *testing.T) {
	before, after, current := floodScene()
	e := newTestEngine(t, noDiagnostic())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Analyze(ctx, before, after, current)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_ExpiredBeforeFirstStage(t *testing.T) {
	// mismatched shapes would fail the difference stage if it ran
	before, _, current := floodScene()
	after := raster.Filled(4, 4, 200)

	ctx, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	for _, e := range []*Engine{
		newTestEngine(t, noDiagnostic()),
		newTestEngine(t, noDiagnostic().Sequential()),
	} {
		_, err := e.Analyze(ctx, before, after, current)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrInputShape)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	before, after, current := floodScene()
	current.Set(3, 3, 40)
	current.Set(7, 7, 200)
	snapshot := []*raster.Raster{before.Clone(), after.Clone(), current.Clone()}

	parallel := newTestEngine(t, noDiagnostic())
	sequential := newTestEngine(t, noDiagnostic().Sequential())

	first, err := parallel.Analyze(context.Background(), before, after, current)
	require.NoError(t, err)
	second, err := parallel.Analyze(context.Background(), before, after, current)
	require.NoError(t, err)
	third, err := sequential.Analyze(context.Background(), before, after, current)
	require.NoError(t, err)

	for _, other := range []*Result{second, third} {
		assert.Equal(t, first.FloodRatio, other.FloodRatio)
		assert.Equal(t, first.FloodThreshold, other.FloodThreshold)
		assert.Equal(t, first.Mask.Pix, other.Mask.Pix)
	}

	assert.Equal(t, snapshot[0].Pix, before.Pix)
	assert.Equal(t, snapshot[1].Pix, after.Pix)
	assert.Equal(t, snapshot[2].Pix, current.Pix)
}

func TestAnalyze_RatioInvariants(t *testing.T) {
	before, after, current := floodScene()
	current.Set(0, 0, 20)
	current.Set(5, 5, 240)
	e := newTestEngine(t, noDiagnostic())

	res, err := e.Analyze(context.Background(), before, after, current)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.FloodRatio, 0.0)
	assert.LessOrEqual(t, res.FloodRatio, 1.0)
	assert.Equal(t, res.FloodRatio > e.Options().FloodAreaThreshold, res.FloodDetected)
	assert.Equal(t, round4(res.Coverage.Ratio()), res.FloodRatio)

	// river in the mask exactly where the normalized raster is below the cutoff
	rivers := 0
	for i, v := range res.Mask.Pix {
		below := int(res.Normalized.Pix[i]) < DefaultRiverCutoff
		assert.Equal(t, below, v == MaskRiver, "pixel %d: normalized %d, mask %d", i, res.Normalized.Pix[i], v)
		if below {
			rivers++
		}
	}
	assert.Equal(t, 1, rivers)
	assert.Equal(t, rivers, res.Coverage.River)
}

func TestAnalyze_RenderFailureIsNotFatal(t *testing.T) {
	before, after, current := floodScene()
	e := newTestEngine(t, DefaultOptions()).WithRenderer(func(DiagnosticInput) ([]byte, error) {
		return nil, errors.New("no canvas")
	})

	res, err := e.Analyze(context.Background(), before, after, current)
	require.NoError(t, err)
	assert.True(t, res.FloodDetected)
	assert.Nil(t, res.DiagnosticImage)
	assert.ErrorIs(t, res.RenderError, ErrRendering)
}

func TestAnalyze_RendersDiagnostic(t *testing.T) {
	before, after, current := floodScene()
	e := newTestEngine(t, DefaultOptions())

	res, err := e.Analyze(context.Background(), before, after, current)
	require.NoError(t, err)
	require.NoError(t, res.RenderError)
	require.NotEmpty(t, res.DiagnosticImage)

	_, err = png.Decode(bytes.NewReader(res.DiagnosticImage))
	assert.NoError(t, err)
}
