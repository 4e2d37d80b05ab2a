package analyzer

import (
	"time"

	"github.com/anime-shed/flood-inspector-go/internal/flood"
)

// AnalysisOptions provides per-call configuration for flood analysis
type AnalysisOptions struct {
	// Decision thresholds
	FloodAreaThreshold float64
	RiverCutoff        int

	// Morphology
	DiskRadius int

	// Feature toggles
	SkipDiagnostic bool

	// Performance options
	Sequential bool
	Timeout    time.Duration
}

// DefaultOptions returns the standard engine parameters with a diagnostic figure
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		FloodAreaThreshold: flood.DefaultFloodAreaThreshold,
		RiverCutoff:        flood.DefaultRiverCutoff,
		DiskRadius:         flood.DefaultDiskRadius,
		SkipDiagnostic:     false,
		Sequential:         false,
		Timeout:            0, // Use the analyzer default
	}
}

// FastOptions skips the diagnostic figure, which dominates runtime on small rasters
func FastOptions() AnalysisOptions {
	opts := DefaultOptions()
	opts.SkipDiagnostic = true
	return opts
}

// WithFloodAreaThreshold sets the coverage ratio that triggers a detection
func (opts AnalysisOptions) WithFloodAreaThreshold(ratio float64) AnalysisOptions {
	opts.FloodAreaThreshold = ratio
	return opts
}

// WithRiverCutoff sets the permanent-water cutoff
func (opts AnalysisOptions) WithRiverCutoff(cutoff int) AnalysisOptions {
	opts.RiverCutoff = cutoff
	return opts
}

// WithDiskRadius sets the smoothing element radius
func (opts AnalysisOptions) WithDiskRadius(radius int) AnalysisOptions {
	opts.DiskRadius = radius
	return opts
}

// WithoutDiagnostic disables the figure
func (opts AnalysisOptions) WithoutDiagnostic() AnalysisOptions {
	opts.SkipDiagnostic = true
	return opts
}

// WithTimeout bounds a single analysis
func (opts AnalysisOptions) WithTimeout(d time.Duration) AnalysisOptions {
	opts.Timeout = d
	return opts
}

// EngineOptions converts to the engine configuration
func (opts AnalysisOptions) EngineOptions() flood.Options {
	eo := flood.DefaultOptions().
		WithFloodAreaThreshold(opts.FloodAreaThreshold).
		WithRiverCutoff(opts.RiverCutoff).
		WithDiskRadius(opts.DiskRadius)
	if opts.SkipDiagnostic {
		eo = eo.WithoutDiagnostic()
	}
	if opts.Sequential {
		eo = eo.Sequential()
	}
	return eo
}
