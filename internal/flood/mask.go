package flood

import (
	"image"
	"math"
)

// Flood mask pixel states
const (
	MaskBackground uint8 = 0
	MaskRiver      uint8 = 128
	MaskFlood      uint8 = 255
)

// Invert returns 255 - v for every pixel.
func Invert(g *image.Gray) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		dst := out.Pix[y*out.Stride:]
		for x, v := range src {
			dst[x] = 255 - v
		}
	}
	return out
}

// ClassifyFlood marks a pixel as a flood candidate when its inverted value
// exceeds 255 - threshold. A pixel whose normalized value equals the
// threshold is not a candidate.
func ClassifyFlood(inverted *image.Gray, threshold float64) *Binary {
	b := inverted.Bounds()
	m := NewBinary(b.Dx(), b.Dy())
	cut := 255 - threshold
	for y := 0; y < m.Height; y++ {
		row := inverted.Pix[y*inverted.Stride : y*inverted.Stride+m.Width]
		for x, v := range row {
			m.Bits[y*m.Width+x] = float64(v) > cut
		}
	}
	return m
}

// RiverMask marks pixels of the normalized raster strictly below cutoff.
func RiverMask(normalized *image.Gray, cutoff int) *Binary {
	b := normalized.Bounds()
	m := NewBinary(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		row := normalized.Pix[y*normalized.Stride : y*normalized.Stride+m.Width]
		for x, v := range row {
			m.Bits[y*m.Width+x] = int(v) < cutoff
		}
	}
	return m
}

// ComposeMask renders the three-state mask. River always wins over flood.
func ComposeMask(flooded, river *Binary) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, flooded.Width, flooded.Height))
	for i := range flooded.Bits {
		switch {
		case river.Bits[i]:
			out.Pix[i] = MaskRiver
		case flooded.Bits[i]:
			out.Pix[i] = MaskFlood
		default:
			out.Pix[i] = MaskBackground
		}
	}
	return out
}

// Coverage counts mask pixels by state.
type Coverage struct {
	Flood int
	River int
	Total int
}

// CountMask tallies the states of a composed mask.
func CountMask(mask *image.Gray) Coverage {
	c := Coverage{Total: len(mask.Pix)}
	for _, v := range mask.Pix {
		switch v {
		case MaskFlood:
			c.Flood++
		case MaskRiver:
			c.River++
		}
	}
	return c
}

// Ratio is the fraction of non-background pixels; river counts.
func (c Coverage) Ratio() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Flood+c.River) / float64(c.Total)
}

// round4 rounds to four decimal places.
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
