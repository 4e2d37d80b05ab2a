package analyzer

import (
	"context"

	"github.com/anime-shed/flood-inspector-go/internal/raster"
)

// FloodAnalyzer defines the main interface for flood analysis
type FloodAnalyzer interface {
	// Analyze runs the flood engine on the three rasters
	Analyze(ctx context.Context, before, after, current *raster.Raster, options AnalysisOptions) (*AnalysisResult, error)

	// Defaults returns the options applied when a caller has no overrides
	Defaults() AnalysisOptions

	// Stats reports worker pool usage
	Stats() PoolStats

	// Lifecycle management
	Close() error
}
