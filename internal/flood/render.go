package flood

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// DiagnosticInput carries everything the diagnostic figure shows. The
// renderer keeps no drawing state between calls.
type DiagnosticInput struct {
	Normalized     *image.Gray
	Inverted       *image.Gray
	Mask           *image.Gray
	FloodThreshold float64
	RiverCutoff    int
}

// Figure geometry
const (
	figureWidth  = 20 * vg.Inch
	figureHeight = 5 * vg.Inch
	panelPadding = 4 * vg.Millimeter
)

var (
	floodLineColor = color.RGBA{R: 220, A: 255}
	riverLineColor = color.RGBA{G: 160, A: 255}
	histFillColor  = color.Gray{Y: 128}
)

// RenderDiagnostic draws the four-panel figure (current, inverted, mask,
// histogram) and returns it PNG-encoded. Any failure, including a panic from
// the plotting library, is reported as ErrRendering.
func RenderDiagnostic(in DiagnosticInput) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrRendering, r)
		}
	}()

	if in.Normalized == nil || in.Inverted == nil || in.Mask == nil {
		return nil, fmt.Errorf("%w: missing panel image", ErrRendering)
	}

	hist, err := histogramPlot(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRendering, err)
	}

	plots := [][]*plot.Plot{{
		imagePlot("Current Image", in.Normalized),
		imagePlot("Inverted Current Image", in.Inverted),
		imagePlot("Predicted Flood Mask", in.Mask),
		hist,
	}}

	img := vgimg.New(figureWidth, figureHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(plots[0]),
		PadX:      panelPadding,
		PadY:      panelPadding,
		PadTop:    panelPadding,
		PadBottom: panelPadding,
		PadLeft:   panelPadding,
		PadRight:  panelPadding,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i, p := range plots[0] {
		p.Draw(canvases[0][i])
	}

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", ErrRendering, err)
	}
	return buf.Bytes(), nil
}

func imagePlot(title string, g *image.Gray) *plot.Plot {
	b := g.Bounds()
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.Add(plotter.NewImage(g, 0, 0, float64(b.Dx()), float64(b.Dy())))
	return p
}

// histogramPlot bins the normalized intensities into 256 bins spanning
// [0, 255] and overlays the two decision thresholds.
func histogramPlot(in DiagnosticInput) (*plot.Plot, error) {
	var counts [256]float64
	b := in.Normalized.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for _, v := range in.Normalized.Pix[y*in.Normalized.Stride : y*in.Normalized.Stride+b.Dx()] {
			counts[v]++
		}
	}

	// Zero-weight entries at both ends pin the bins to the full 8-bit range.
	xys := make(plotter.XYs, len(counts))
	peak := 0.0
	for i, c := range counts {
		xys[i] = plotter.XY{X: float64(i), Y: c}
		if c > peak {
			peak = c
		}
	}

	p := plot.New()
	p.Title.Text = "Histogram"
	p.X.Label.Text = "Intensity"
	p.Y.Label.Text = "Pixels"

	h, err := plotter.NewHistogram(xys, len(counts))
	if err != nil {
		return nil, fmt.Errorf("histogram: %w", err)
	}
	h.FillColor = histFillColor
	p.Add(h)

	floodLine, err := verticalLine(255-in.FloodThreshold, peak, floodLineColor)
	if err != nil {
		return nil, err
	}
	riverLine, err := verticalLine(float64(in.RiverCutoff), peak, riverLineColor)
	if err != nil {
		return nil, err
	}
	p.Add(floodLine, riverLine)
	p.Legend.Add("Flood Threshold", floodLine)
	p.Legend.Add("River Threshold", riverLine)
	p.Legend.Top = true

	p.X.Min = 0
	p.X.Max = 255
	return p, nil
}

func verticalLine(x, height float64, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: height}})
	if err != nil {
		return nil, fmt.Errorf("reference line at %v: %w", x, err)
	}
	l.Color = c
	l.Width = vg.Points(1.5)
	l.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	return l, nil
}
