// Package raster holds the single-band numeric grids the flood engine works on
// and the decoders that produce them from uploaded or fetched image files.
package raster

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Raster is a single-band 2D grid of intensity samples stored row-major.
// Values keep the native units of the source (DN, reflectance, 8 or 16 bit).
type Raster struct {
	Width  int
	Height int
	Pix    []float64
}

// New allocates a zeroed raster of the given shape.
func New(width, height int) *Raster {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// FromRows builds a raster from a slice of equally long rows.
func FromRows(rows [][]float64) (*Raster, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	width := len(rows[0])
	r := New(width, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d samples, want %d", y, len(row), width)
		}
		copy(r.Pix[y*width:], row)
	}
	return r, nil
}

// Filled returns a raster of the given shape with every sample set to v.
func Filled(width, height int, v float64) *Raster {
	r := New(width, height)
	for i := range r.Pix {
		r.Pix[i] = v
	}
	return r
}

// Len returns the number of samples.
func (r *Raster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Pix)
}

// Empty reports whether the raster has no pixels.
func (r *Raster) Empty() bool {
	return r.Len() == 0 || r.Width == 0 || r.Height == 0
}

// Shape returns width and height.
func (r *Raster) Shape() (int, int) {
	return r.Width, r.Height
}

// SameShape reports whether both rasters have identical dimensions.
func (r *Raster) SameShape(o *Raster) bool {
	return r.Width == o.Width && r.Height == o.Height
}

// At returns the sample at column x, row y.
func (r *Raster) At(x, y int) float64 {
	return r.Pix[y*r.Width+x]
}

// Set stores v at column x, row y.
func (r *Raster) Set(x, y int, v float64) {
	r.Pix[y*r.Width+x] = v
}

// MinMax returns the smallest and largest sample. It panics on an empty raster,
// callers check Empty first.
func (r *Raster) MinMax() (float64, float64) {
	return floats.Min(r.Pix), floats.Max(r.Pix)
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	c := &Raster{Width: r.Width, Height: r.Height, Pix: make([]float64, len(r.Pix))}
	copy(c.Pix, r.Pix)
	return c
}

func (r *Raster) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}
