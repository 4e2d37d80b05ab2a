package flood

import "errors"

var (
	// ErrInputShape indicates the before and after rasters differ in size
	ErrInputShape = errors.New("before and after rasters have different dimensions")

	// ErrDegenerateThreshold indicates the difference raster has no spread to split
	ErrDegenerateThreshold = errors.New("difference raster is uniform, threshold is undefined")

	// ErrEmptyRaster indicates an input raster has zero pixels
	ErrEmptyRaster = errors.New("raster has no pixels")

	// ErrRendering indicates the diagnostic figure could not be produced
	ErrRendering = errors.New("diagnostic rendering failed")

	// ErrInvalidOptions indicates engine parameters are out of range
	ErrInvalidOptions = errors.New("invalid flood engine options")
)
