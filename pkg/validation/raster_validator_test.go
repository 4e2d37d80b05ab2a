package validation

import (
	"testing"

	"github.com/anime-shed/flood-inspector-go/internal/raster"
)

func issueTypes(issues []RasterIssue) map[string]string {
	out := make(map[string]string)
	for _, i := range issues {
		out[i.Type] = i.Severity
	}
	return out
}

func TestRasterValidator_Valid(t *testing.T) {
	rv := NewRasterValidator(0)
	current := raster.Filled(4, 4, 100)
	current.Set(0, 0, 120)

	issues := rv.Validate(raster.Filled(4, 4, 1), raster.Filled(4, 4, 2), current)
	if len(issues) != 0 {
		t.Errorf("Expected no issues, got %v", issues)
	}
}

func TestRasterValidator_Errors(t *testing.T) {
	rv := NewRasterValidator(20)

	tests := []struct {
		name                   string
		before, after, current *raster.Raster
		wantType               string
	}{
		{"empty before", raster.New(0, 0), raster.Filled(2, 2, 1), raster.Filled(2, 2, 1), "empty"},
		{"nil current", raster.Filled(2, 2, 1), raster.Filled(2, 2, 1), nil, "empty"},
		{"too large", raster.Filled(5, 5, 1), raster.Filled(5, 5, 1), raster.Filled(2, 2, 1), "too_large"},
		{"shape mismatch", raster.Filled(2, 3, 1), raster.Filled(3, 2, 1), raster.Filled(2, 3, 1), "shape_mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := rv.Validate(tt.before, tt.after, tt.current)
			if !HasCriticalIssues(issues) {
				t.Fatalf("Expected a critical issue, got %v", issues)
			}
			first, ok := FirstError(issues)
			if !ok || first.Type != tt.wantType {
				t.Errorf("Expected first error %q, got %+v", tt.wantType, first)
			}
		})
	}
}

func TestRasterValidator_Warnings(t *testing.T) {
	rv := NewRasterValidator(0)
	ref := raster.Filled(4, 4, 1)

	issues := rv.Validate(ref, ref, raster.Filled(2, 2, 0))
	types := issueTypes(issues)
	if types["current_shape"] != SeverityWarning {
		t.Errorf("Expected current_shape warning, got %v", issues)
	}
	if types["flat"] != SeverityWarning {
		t.Errorf("Expected flat warning, got %v", issues)
	}
	if HasCriticalIssues(issues) {
		t.Error("Expected warnings only")
	}
	if len(Warnings(issues)) != 2 {
		t.Errorf("Expected 2 warning messages, got %v", Warnings(issues))
	}

	wide := raster.Filled(4, 4, 0)
	wide.Set(1, 1, 4000)
	if issueTypes(rv.Validate(ref, ref, wide))["rescaled"] != SeverityInfo {
		t.Error("Expected rescaled info issue for a 16-bit raster")
	}

	negative := raster.Filled(4, 4, 10)
	negative.Set(2, 2, -5)
	if issueTypes(rv.Validate(ref, ref, negative))["negative"] != SeverityWarning {
		t.Error("Expected negative sample warning")
	}
}
