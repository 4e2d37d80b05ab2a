package flood

import "image"

// Binary is a boolean mask stored row-major.
type Binary struct {
	Width  int
	Height int
	Bits   []bool
}

// NewBinary allocates a cleared mask.
func NewBinary(width, height int) *Binary {
	return &Binary{Width: width, Height: height, Bits: make([]bool, width*height)}
}

// At reports whether (x, y) is set.
func (b *Binary) At(x, y int) bool {
	return b.Bits[y*b.Width+x]
}

// Count returns the number of set pixels.
func (b *Binary) Count() int {
	n := 0
	for _, v := range b.Bits {
		if v {
			n++
		}
	}
	return n
}

// Disk returns the offsets of a disk-shaped structuring element: every
// (dx, dy) with dx*dx + dy*dy <= r*r. Radius 2 yields the 13-point diamond.
func Disk(radius int) []image.Point {
	if radius < 0 {
		radius = 0
	}
	var pts []image.Point
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				pts = append(pts, image.Point{X: dx, Y: dy})
			}
		}
	}
	return pts
}

// Erode keeps a pixel only when every in-bounds neighbour under the element
// is set. Neighbours outside the mask are ignored.
func Erode(m *Binary, se []image.Point) *Binary {
	return apply(m, se, true)
}

// Dilate sets a pixel when any in-bounds neighbour under the element is set.
func Dilate(m *Binary, se []image.Point) *Binary {
	return apply(m, se, false)
}

// Open is erosion followed by dilation; it removes specks smaller than se.
func Open(m *Binary, se []image.Point) *Binary {
	return Dilate(Erode(m, se), se)
}

// Close is dilation followed by erosion; it fills gaps smaller than se.
func Close(m *Binary, se []image.Point) *Binary {
	return Erode(Dilate(m, se), se)
}

// Smooth applies Open then Close with the same element.
func Smooth(m *Binary, se []image.Point) *Binary {
	return Close(Open(m, se), se)
}

func apply(m *Binary, se []image.Point, erode bool) *Binary {
	out := NewBinary(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			hit := erode
			for _, o := range se {
				nx, ny := x+o.X, y+o.Y
				if nx < 0 || ny < 0 || nx >= m.Width || ny >= m.Height {
					continue
				}
				v := m.Bits[ny*m.Width+nx]
				if erode && !v {
					hit = false
					break
				}
				if !erode && v {
					hit = true
					break
				}
			}
			out.Bits[y*m.Width+x] = hit
		}
	}
	return out
}
