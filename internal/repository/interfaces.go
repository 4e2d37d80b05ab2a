package repository

import (
	"context"

	"github.com/anime-shed/flood-inspector-go/internal/raster"
)

// RasterRepository defines the interface for raster data access operations
type RasterRepository interface {
	// FetchRaster retrieves and decodes the raster at source
	FetchRaster(ctx context.Context, source string) (*raster.Raster, error)

	// ValidateSource validates if the provided source is acceptable
	ValidateSource(source string) error
}

// SourceValidator checks a source URL before any backend is contacted
type SourceValidator interface {
	ValidateSourceURL(source string) error
}
