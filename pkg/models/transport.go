package models

// DetectFromSourcesRequest names the three rasters by URL
type DetectFromSourcesRequest struct {
	BeforeURL  string `json:"before_url" binding:"required"`
	AfterURL   string `json:"after_url" binding:"required"`
	CurrentURL string `json:"current_url" binding:"required"`

	// FloodAreaThreshold overrides the configured ratio threshold
	FloodAreaThreshold *float64 `json:"flood_area_threshold,omitempty"`
	SkipPlot           bool     `json:"skip_plot,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Type      string `json:"type,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status     string     `json:"status"`
	Version    string     `json:"version"`
	Time       string     `json:"time"`
	Workers    int        `json:"workers"`
	QueuedJobs int64      `json:"queued_jobs"`
	Thresholds Thresholds `json:"thresholds"`
}
