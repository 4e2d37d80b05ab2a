package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/anime-shed/flood-inspector-go/internal/flood"
	"github.com/anime-shed/flood-inspector-go/internal/raster"
)

// DefaultTimeout bounds an analysis when neither the analyzer nor the call sets one
const DefaultTimeout = 45 * time.Second

// coreAnalyzer implements FloodAnalyzer on top of a bounded worker pool
type coreAnalyzer struct {
	workerPool *WorkerPool
	defaults   AnalysisOptions
	renderer   flood.Renderer
}

// Option customises a coreAnalyzer
type Option func(*coreAnalyzer)

// WithWorkers sets the pool size; zero means one worker per CPU
func WithWorkers(n int) Option {
	return func(ca *coreAnalyzer) {
		ca.workerPool = NewWorkerPool(n)
	}
}

// WithDefaults replaces the default analysis options
func WithDefaults(opts AnalysisOptions) Option {
	return func(ca *coreAnalyzer) {
		ca.defaults = opts
	}
}

// WithRenderer swaps the diagnostic renderer
func WithRenderer(r flood.Renderer) Option {
	return func(ca *coreAnalyzer) {
		ca.renderer = r
	}
}

// NewFloodAnalyzer creates an analyzer and starts its workers
func NewFloodAnalyzer(opts ...Option) (FloodAnalyzer, error) {
	ca := &coreAnalyzer{
		defaults: DefaultOptions().WithTimeout(DefaultTimeout),
	}
	for _, opt := range opts {
		opt(ca)
	}
	if ca.workerPool == nil {
		ca.workerPool = NewWorkerPool(0) // Use default CPU count
	}
	if err := ca.defaults.EngineOptions().Validate(); err != nil {
		return nil, err
	}

	ca.workerPool.Start()
	return ca, nil
}

func (ca *coreAnalyzer) Defaults() AnalysisOptions {
	return ca.defaults
}

func (ca *coreAnalyzer) Stats() PoolStats {
	return ca.workerPool.GetStats()
}

type analysisOutcome struct {
	result *flood.Result
	err    error
}

// Analyze queues the analysis on the pool and waits for it or the deadline.
// A timed out job keeps its worker until the engine observes cancellation at
// its next stage boundary.
func (ca *coreAnalyzer) Analyze(ctx context.Context, before, after, current *raster.Raster, options AnalysisOptions) (*AnalysisResult, error) {
	start := time.Now()

	engine, err := flood.NewEngine(options.EngineOptions())
	if err != nil {
		return nil, err
	}
	if ca.renderer != nil {
		engine = engine.WithRenderer(ca.renderer)
	}

	timeout := options.Timeout
	if timeout <= 0 {
		timeout = ca.defaults.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan analysisOutcome, 1)
	err = ca.workerPool.SubmitCtx(ctx, func() {
		res, err := engine.Analyze(ctx, before, after, current)
		done <- analysisOutcome{result: res, err: err}
	})
	if err != nil {
		return nil, fmt.Errorf("queue analysis: %w", err)
	}

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		return &AnalysisResult{
			Result:         out.result,
			Timestamp:      start,
			ProcessingTime: time.Since(start),
			Options:        options,
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases the worker pool
func (ca *coreAnalyzer) Close() error {
	ca.workerPool.Close()
	return nil
}
