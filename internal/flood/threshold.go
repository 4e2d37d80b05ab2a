package flood

import (
	"fmt"
	"math"
	"sort"

	"github.com/anime-shed/flood-inspector-go/internal/raster"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// otsuBins is the bin count used for non-integral data
	otsuBins = 256
	// maxIntegerBins caps the one-bin-per-value histogram used for integral data
	maxIntegerBins = 1 << 16
)

// DifferenceRaster returns |after - before| computed in float64 so unsigned
// sources never wrap around.
func DifferenceRaster(before, after *raster.Raster) (*raster.Raster, error) {
	if before.Empty() || after.Empty() {
		return nil, fmt.Errorf("%w: before=%v after=%v", ErrEmptyRaster, before, after)
	}
	if !before.SameShape(after) {
		return nil, fmt.Errorf("%w: before is %v, after is %v", ErrInputShape, before, after)
	}

	diff := raster.New(before.Width, before.Height)
	for i, b := range before.Pix {
		diff.Pix[i] = math.Abs(after.Pix[i] - b)
	}
	return diff, nil
}

// OtsuThreshold picks the value that maximises the between-class variance of
// values. Pixels strictly above the returned value form the upper class.
func OtsuThreshold(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyRaster
	}
	if floats.HasNaN(values) {
		return 0, fmt.Errorf("%w: values contain NaN", ErrDegenerateThreshold)
	}

	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		return 0, fmt.Errorf("%w: every value is %v", ErrDegenerateThreshold, lo)
	}

	counts, centers := histogram(values, lo, hi)
	return otsuFromHistogram(counts, centers), nil
}

// histogram bins values one per integer when they are all integral and the
// span is small enough, otherwise into 256 equal-width bins over [lo, hi].
func histogram(values []float64, lo, hi float64) (counts, centers []float64) {
	if integral(values) && hi-lo < maxIntegerBins {
		n := int(hi-lo) + 1
		counts = make([]float64, n)
		centers = make([]float64, n)
		for i := range centers {
			centers[i] = lo + float64(i)
		}
		for _, v := range values {
			counts[int(v-lo)]++
		}
		return counts, centers
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	dividers := make([]float64, otsuBins+1)
	floats.Span(dividers, lo, hi)
	// The last bin is closed on the right.
	dividers[otsuBins] = math.Nextafter(hi, math.Inf(1))

	counts = stat.Histogram(nil, dividers, sorted, nil)
	width := (hi - lo) / otsuBins
	centers = make([]float64, otsuBins)
	for i := range centers {
		centers[i] = lo + (float64(i)+0.5)*width
	}
	return counts, centers
}

func integral(values []float64) bool {
	for _, v := range values {
		if v != math.Trunc(v) {
			return false
		}
	}
	return true
}

// otsuFromHistogram returns the centre of the first bin maximising
// w1 * w2 * (mu1 - mu2)^2 when the histogram is split after that bin.
func otsuFromHistogram(counts, centers []float64) float64 {
	var total, totalSum float64
	for i, c := range counts {
		total += c
		totalSum += c * centers[i]
	}

	best := -1.0
	idx := 0
	var w1, s1 float64
	for i := 0; i < len(counts)-1; i++ {
		w1 += counts[i]
		s1 += counts[i] * centers[i]
		w2 := total - w1
		if w1 == 0 || w2 == 0 {
			continue
		}
		m1 := s1 / w1
		m2 := (totalSum - s1) / w2
		v := w1 * w2 * (m1 - m2) * (m1 - m2)
		if v > best {
			best = v
			idx = i
		}
	}
	return centers[idx]
}
