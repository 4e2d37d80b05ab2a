// Package flood implements the flood mask engine: it derives a change
// threshold from two reference rasters, classifies the current raster against
// it, suppresses permanent water and reduces the mask to a coverage ratio.
package flood

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/anime-shed/flood-inspector-go/internal/raster"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one engine invocation
type Result struct {
	FloodDetected  bool
	FloodRatio     float64 // rounded to 4 decimal places
	FloodThreshold float64
	Rescaled       bool
	Coverage       Coverage

	// Intermediate rasters, kept for rendering and inspection
	Normalized *image.Gray
	Inverted   *image.Gray
	Mask       *image.Gray

	// DiagnosticImage is nil when rendering was skipped or failed
	DiagnosticImage []byte
	RenderError     error
}

// Renderer turns the intermediate rasters into an encoded figure
type Renderer func(DiagnosticInput) ([]byte, error)

// Engine runs the flood pipeline. It holds configuration only and is safe
// for concurrent use.
type Engine struct {
	opts     Options
	disk     []image.Point
	renderer Renderer
}

// NewEngine creates an engine with the given options
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		opts:     opts,
		disk:     Disk(opts.DiskRadius),
		renderer: RenderDiagnostic,
	}, nil
}

// WithRenderer returns a copy of the engine that renders with r
func (e *Engine) WithRenderer(r Renderer) *Engine {
	c := *e
	c.renderer = r
	return &c
}

// Options returns the engine configuration
func (e *Engine) Options() Options {
	return e.opts
}

// Analyze runs every stage in order. Inputs are never modified. Stage
// failures abort the call; a rendering failure only clears DiagnosticImage.
func (e *Engine) Analyze(ctx context.Context, before, after, current *raster.Raster) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if current.Empty() {
		return nil, fmt.Errorf("%w: current=%v", ErrEmptyRaster, current)
	}

	threshold, normalized, rescaled, err := e.prepare(ctx, before, after, current)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inverted := Invert(normalized)
	candidates := ClassifyFlood(inverted, threshold)
	smoothed := Smooth(candidates, e.disk)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mask := ComposeMask(smoothed, RiverMask(normalized, e.opts.RiverCutoff))
	coverage := CountMask(mask)
	ratio := round4(coverage.Ratio())

	result := &Result{
		FloodDetected:  ratio > e.opts.FloodAreaThreshold,
		FloodRatio:     ratio,
		FloodThreshold: threshold,
		Rescaled:       rescaled,
		Coverage:       coverage,
		Normalized:     normalized,
		Inverted:       inverted,
		Mask:           mask,
	}

	if e.opts.SkipDiagnostic {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	png, err := e.renderer(DiagnosticInput{
		Normalized:     normalized,
		Inverted:       inverted,
		Mask:           mask,
		FloodThreshold: threshold,
		RiverCutoff:    e.opts.RiverCutoff,
	})
	if err != nil {
		if !errors.Is(err, ErrRendering) {
			err = fmt.Errorf("%w: %v", ErrRendering, err)
		}
		result.RenderError = err
		return result, nil
	}
	result.DiagnosticImage = png
	return result, nil
}

// prepare derives the threshold from before/after and normalizes current.
// The two stages read disjoint inputs and run concurrently when enabled.
func (e *Engine) prepare(ctx context.Context, before, after, current *raster.Raster) (float64, *image.Gray, bool, error) {
	var (
		threshold  float64
		normalized *image.Gray
		rescaled   bool
	)

	deriveThreshold := func(ctx context.Context) error {
		diff, err := DifferenceRaster(before, after)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		threshold, err = OtsuThreshold(diff.Pix)
		return err
	}
	normalize := func() error {
		normalized, rescaled = Normalize(current)
		return nil
	}

	if !e.opts.Parallel {
		if err := deriveThreshold(ctx); err != nil {
			return 0, nil, false, err
		}
		_ = normalize()
		return threshold, normalized, rescaled, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return deriveThreshold(gctx) })
	g.Go(normalize)
	if err := g.Wait(); err != nil {
		return 0, nil, false, err
	}
	return threshold, normalized, rescaled, nil
}
