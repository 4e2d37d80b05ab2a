package flood

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func grayRow(values ...uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, len(values), 1))
	copy(g.Pix, values)
	return g
}

func TestInvert(t *testing.T) {
	got := Invert(grayRow(0, 1, 128, 255))
	assert.Equal(t, []uint8{255, 254, 127, 0}, got.Pix)
}

func TestInvert_SubImage(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range g.Pix {
		g.Pix[i] = uint8(i)
	}
	sub := g.SubImage(image.Rect(1, 1, 3, 3)).(*image.Gray)

	got := Invert(sub)
	assert.Equal(t, image.Rect(0, 0, 2, 2), got.Bounds())
	assert.Equal(t, []uint8{255 - 5, 255 - 6, 255 - 9, 255 - 10}, got.Pix)
}

func TestClassifyFlood_Boundary(t *testing.T) {
	normalized := grayRow(49, 50, 51)

	got := ClassifyFlood(Invert(normalized), 50)
	assert.Equal(t, []bool{true, false, false}, got.Bits)
}

func TestClassifyFlood_FractionalThreshold(t *testing.T) {
	normalized := grayRow(10, 11, 12)

	got := ClassifyFlood(Invert(normalized), 11.5)
	assert.Equal(t, []bool{true, true, false}, got.Bits)
}

func TestRiverMask(t *testing.T) {
	got := RiverMask(grayRow(0, 49, 50, 200), DefaultRiverCutoff)
	assert.Equal(t, []bool{true, true, false, false}, got.Bits)

	assert.Zero(t, RiverMask(grayRow(0, 1, 2), 0).Count())
	assert.Equal(t, 3, RiverMask(grayRow(0, 128, 255), 256).Count())
}

func TestComposeMask_RiverWins(t *testing.T) {
	flooded := &Binary{Width: 4, Height: 1, Bits: []bool{true, true, false, false}}
	river := &Binary{Width: 4, Height: 1, Bits: []bool{true, false, true, false}}

	got := ComposeMask(flooded, river)
	assert.Equal(t, []uint8{MaskRiver, MaskFlood, MaskRiver, MaskBackground}, got.Pix)
}

func TestCountMask(t *testing.T) {
	mask := grayRow(MaskFlood, MaskRiver, MaskBackground, MaskFlood, MaskBackground, MaskBackground)

	c := CountMask(mask)
	assert.Equal(t, Coverage{Flood: 2, River: 1, Total: 6}, c)
	assert.Equal(t, 0.5, c.Ratio())
	assert.Zero(t, Coverage{}.Ratio())
}

func TestRound4(t *testing.T) {
	assert.Equal(t, 0.3333, round4(1.0/3))
	assert.Equal(t, 0.6667, round4(2.0/3))
	assert.Equal(t, 1.0, round4(1))
	assert.Equal(t, 0.15, round4(0.15004))
}
