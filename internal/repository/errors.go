package repository

import "errors"

var (
	// ErrInvalidSourceURL indicates a raster source that fails validation
	ErrInvalidSourceURL = errors.New("invalid raster source URL")

	// ErrUnsupportedSource indicates no configured backend serves the source
	ErrUnsupportedSource = errors.New("no storage backend for raster source")

	// ErrRepositoryUnavailable indicates the backend could not be reached
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
