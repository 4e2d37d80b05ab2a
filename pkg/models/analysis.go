package models

// FloodDetectionResponse is the result of one flood detection request.
// Field names follow the dashboard contract: the diagnostic figure is a
// base64 PNG under "plot".
type FloodDetectionResponse struct {
	RequestID        string   `json:"request_id,omitempty"`
	FloodDetected    bool     `json:"flood_detected"`
	FloodRatio       float64  `json:"flood_ratio"`
	Plot             string   `json:"plot"`
	FloodThreshold   float64  `json:"flood_threshold"`
	AreaThreshold    float64  `json:"flood_area_threshold"`
	Coverage         Coverage `json:"coverage"`
	Rescaled         bool     `json:"rescaled"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	Timestamp        string   `json:"timestamp"`

	// Warnings carries non-fatal input issues
	Warnings    []string `json:"warnings,omitempty"`
	RenderError string   `json:"render_error,omitempty"`
}

// Coverage breaks the mask down by pixel state
type Coverage struct {
	FloodPixels int `json:"flood_pixels"`
	RiverPixels int `json:"river_pixels"`
	TotalPixels int `json:"total_pixels"`
}

// Thresholds reports the parameters a request is analysed with
type Thresholds struct {
	FloodAreaThreshold float64 `json:"flood_area_threshold"`
	RiverCutoff        float64 `json:"river_cutoff"`
	DiskRadius         int     `json:"disk_radius"`
}
