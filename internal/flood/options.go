package flood

import "fmt"

const (
	// DefaultFloodAreaThreshold is the mask coverage above which a flood is reported
	DefaultFloodAreaThreshold = 0.15
	// DefaultRiverCutoff is the normalized intensity below which a pixel is permanent water
	DefaultRiverCutoff = 50
	// DefaultDiskRadius is the radius of the smoothing structuring element
	DefaultDiskRadius = 2
)

// Options configures the flood mask engine
type Options struct {
	// Decision thresholds
	FloodAreaThreshold float64
	RiverCutoff        int

	// Morphology
	DiskRadius int

	// Feature toggles
	SkipDiagnostic bool

	// Performance options
	Parallel bool
}

// DefaultOptions returns the historical engine parameters
func DefaultOptions() Options {
	return Options{
		FloodAreaThreshold: DefaultFloodAreaThreshold,
		RiverCutoff:        DefaultRiverCutoff,
		DiskRadius:         DefaultDiskRadius,
		SkipDiagnostic:     false,
		Parallel:           true,
	}
}

// WithFloodAreaThreshold sets the coverage ratio that triggers a detection
func (opts Options) WithFloodAreaThreshold(ratio float64) Options {
	opts.FloodAreaThreshold = ratio
	return opts
}

// WithRiverCutoff sets the permanent-water intensity cutoff
func (opts Options) WithRiverCutoff(cutoff int) Options {
	opts.RiverCutoff = cutoff
	return opts
}

// WithDiskRadius sets the structuring element radius
func (opts Options) WithDiskRadius(radius int) Options {
	opts.DiskRadius = radius
	return opts
}

// WithoutDiagnostic disables figure rendering
func (opts Options) WithoutDiagnostic() Options {
	opts.SkipDiagnostic = true
	return opts
}

// Sequential runs every stage on the calling goroutine
func (opts Options) Sequential() Options {
	opts.Parallel = false
	return opts
}

// Validate checks every parameter is in range
func (opts Options) Validate() error {
	if opts.FloodAreaThreshold < 0 || opts.FloodAreaThreshold > 1 {
		return fmt.Errorf("%w: flood area threshold %v outside [0, 1]", ErrInvalidOptions, opts.FloodAreaThreshold)
	}
	if opts.RiverCutoff < 0 || opts.RiverCutoff > 256 {
		return fmt.Errorf("%w: river cutoff %d outside [0, 256]", ErrInvalidOptions, opts.RiverCutoff)
	}
	if opts.DiskRadius < 0 || opts.DiskRadius > 64 {
		return fmt.Errorf("%w: disk radius %d outside [0, 64]", ErrInvalidOptions, opts.DiskRadius)
	}
	return nil
}
