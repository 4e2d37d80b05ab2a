package analyzer

import (
	"time"

	"github.com/anime-shed/flood-inspector-go/internal/flood"
)

// AnalysisResult wraps the engine result with timing information
type AnalysisResult struct {
	*flood.Result

	Timestamp      time.Time
	ProcessingTime time.Duration
	Options        AnalysisOptions
}
