package validation

import (
	"fmt"

	"github.com/anime-shed/flood-inspector-go/internal/raster"
)

// Issue severities
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// RasterIssue represents one problem found in a set of input rasters
type RasterIssue struct {
	Type     string `json:"type"`
	Raster   string `json:"raster,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error", "warning", "info"
}

// RasterValidator checks the three inputs before they reach the engine
type RasterValidator struct {
	maxPixels int64
}

// NewRasterValidator creates a validator; maxPixels <= 0 disables the size check
func NewRasterValidator(maxPixels int64) *RasterValidator {
	return &RasterValidator{maxPixels: maxPixels}
}

// Validate reports issues for a before/after/current triple. Only
// error-severity issues stop an analysis: a current raster of a different
// shape is allowed because the mask is computed on current alone.
func (rv *RasterValidator) Validate(before, after, current *raster.Raster) []RasterIssue {
	var issues []RasterIssue

	named := []struct {
		name string
		r    *raster.Raster
	}{{"before", before}, {"after", after}, {"current", current}}

	for _, n := range named {
		if n.r.Empty() {
			issues = append(issues, RasterIssue{
				Type:     "empty",
				Raster:   n.name,
				Message:  fmt.Sprintf("%s raster has no pixels", n.name),
				Severity: SeverityError,
			})
			continue
		}
		if rv.maxPixels > 0 && int64(n.r.Len()) > rv.maxPixels {
			issues = append(issues, RasterIssue{
				Type:     "too_large",
				Raster:   n.name,
				Message:  fmt.Sprintf("%s raster has %d pixels, limit is %d", n.name, n.r.Len(), rv.maxPixels),
				Severity: SeverityError,
			})
		}
	}
	if HasCriticalIssues(issues) {
		return issues
	}

	if !before.SameShape(after) {
		issues = append(issues, RasterIssue{
			Type:     "shape_mismatch",
			Message:  fmt.Sprintf("before is %v but after is %v", before, after),
			Severity: SeverityError,
		})
	}
	if !current.SameShape(before) {
		issues = append(issues, RasterIssue{
			Type:     "current_shape",
			Raster:   "current",
			Message:  fmt.Sprintf("current is %v, reference rasters are %v", current, before),
			Severity: SeverityWarning,
		})
	}

	lo, hi := current.MinMax()
	switch {
	case lo == hi:
		issues = append(issues, RasterIssue{
			Type:     "flat",
			Raster:   "current",
			Message:  "current raster is uniform and will be classified as permanent water",
			Severity: SeverityWarning,
		})
	case hi > 255:
		issues = append(issues, RasterIssue{
			Type:     "rescaled",
			Raster:   "current",
			Message:  fmt.Sprintf("current raster range [%g, %g] will be rescaled to 8 bits", lo, hi),
			Severity: SeverityInfo,
		})
	case lo < 0:
		issues = append(issues, RasterIssue{
			Type:     "negative",
			Raster:   "current",
			Message:  "current raster has negative samples which wrap when cast to 8 bits",
			Severity: SeverityWarning,
		})
	}

	return issues
}

// HasCriticalIssues checks if there are any error severity issues
func HasCriticalIssues(issues []RasterIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Warnings returns the messages of every non-error issue
func Warnings(issues []RasterIssue) []string {
	var out []string
	for _, issue := range issues {
		if issue.Severity != SeverityError {
			out = append(out, issue.Message)
		}
	}
	return out
}

// FirstError returns the first error severity issue
func FirstError(issues []RasterIssue) (RasterIssue, bool) {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return issue, true
		}
	}
	return RasterIssue{}, false
}
