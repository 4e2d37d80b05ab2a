package flood

import (
	"image"

	"github.com/anime-shed/flood-inspector-go/internal/raster"
)

// Normalize converts the current raster to 8-bit intensities.
//
// A raster whose maximum exceeds 255, or that is flat, is rescaled linearly
// onto [0, 255] and truncated. A flat raster has no range to rescale and maps
// to 0 everywhere. Any other raster is cast directly: each sample is truncated
// toward zero and wrapped modulo 256, without clamping, so -1 becomes 255 and
// 12.9 becomes 12.
//
// The second return value reports whether rescaling was applied.
func Normalize(current *raster.Raster) (*image.Gray, bool) {
	out := image.NewGray(image.Rect(0, 0, current.Width, current.Height))
	if current.Empty() {
		return out, false
	}

	lo, hi := current.MinMax()
	switch {
	case hi == lo:
		// Pix is already zeroed.
		return out, true
	case hi > 255:
		span := hi - lo
		for y := 0; y < current.Height; y++ {
			row := current.Pix[y*current.Width : (y+1)*current.Width]
			dst := out.Pix[y*out.Stride:]
			for x, v := range row {
				dst[x] = uint8((v - lo) / span * 255)
			}
		}
		return out, true
	default:
		for y := 0; y < current.Height; y++ {
			row := current.Pix[y*current.Width : (y+1)*current.Width]
			dst := out.Pix[y*out.Stride:]
			for x, v := range row {
				dst[x] = uint8(int64(v))
			}
		}
		return out, false
	}
}
