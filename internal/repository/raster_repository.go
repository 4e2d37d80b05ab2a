package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/flood-inspector-go/internal/errors"
	"github.com/anime-shed/flood-inspector-go/internal/raster"
	"github.com/anime-shed/flood-inspector-go/internal/storage"
)

// Backends groups the fetchers a repository can route to. Nil entries are
// disabled.
type Backends struct {
	HTTP  storage.RasterFetcher
	Azure storage.RasterFetcher
	Local storage.RasterFetcher
}

// routedRasterRepository picks a backend by URL scheme and host
type routedRasterRepository struct {
	backends  Backends
	validator SourceValidator
}

// NewRasterRepository creates a repository over the given backends
func NewRasterRepository(backends Backends, validator SourceValidator) RasterRepository {
	return &routedRasterRepository{
		backends:  backends,
		validator: validator,
	}
}

// ValidateSource runs the configured validator
func (r *routedRasterRepository) ValidateSource(source string) error {
	if r.validator == nil {
		if strings.TrimSpace(source) == "" {
			return ErrInvalidSourceURL
		}
		return nil
	}
	if err := r.validator.ValidateSourceURL(source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSourceURL, err)
	}
	return nil
}

// FetchRaster validates source, then fetches it from the matching backend.
// Blob URLs fall back to plain HTTP when no Azure credentials are configured,
// which serves public containers and SAS URLs.
func (r *routedRasterRepository) FetchRaster(ctx context.Context, source string) (*raster.Raster, error) {
	if err := r.ValidateSource(source); err != nil {
		return nil, err
	}

	backend, err := r.route(source)
	if err != nil {
		return nil, err
	}

	ras, err := backend.FetchRaster(ctx, source)
	if err != nil {
		return nil, classifyFetchError(source, err)
	}
	return ras, nil
}

func (r *routedRasterRepository) route(source string) (storage.RasterFetcher, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSourceURL, err)
	}

	var backend storage.RasterFetcher
	switch strings.ToLower(u.Scheme) {
	case "file":
		backend = r.backends.Local
	case "http", "https":
		backend = r.backends.HTTP
		if storage.IsBlobHost(u.Hostname()) && r.backends.Azure != nil && u.Query().Get("sig") == "" {
			backend = r.backends.Azure
		}
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, u.Scheme)
	}
	return backend, nil
}

// classifyFetchError keeps decode and size errors intact for the engine error
// mapping and turns transport failures into application errors.
func classifyFetchError(source string, err error) error {
	switch {
	case errors.Is(err, raster.ErrDecode), errors.Is(err, raster.ErrTooLarge),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, storage.ErrSourceNotFound):
		return apperrors.NewNotFoundError("raster not found", err).WithDetails(source)
	case errors.Is(err, storage.ErrOutsideRoot):
		return apperrors.NewValidationError("raster path not allowed", err).WithDetails(source)
	}

	var se *storage.StatusError
	if errors.As(err, &se) && se.StatusCode == 404 {
		return apperrors.NewNotFoundError("raster not found", err).WithDetails(source)
	}
	return apperrors.NewNetworkError("failed to fetch raster", fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)).WithDetails(source)
}
