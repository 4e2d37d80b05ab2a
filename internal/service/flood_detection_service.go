package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/anime-shed/flood-inspector-go/internal/analyzer"
	apperrors "github.com/anime-shed/flood-inspector-go/internal/errors"
	"github.com/anime-shed/flood-inspector-go/internal/flood"
	"github.com/anime-shed/flood-inspector-go/internal/logger"
	"github.com/anime-shed/flood-inspector-go/internal/observer"
	"github.com/anime-shed/flood-inspector-go/internal/raster"
	"github.com/anime-shed/flood-inspector-go/internal/repository"
	"github.com/anime-shed/flood-inspector-go/internal/storage"
	"github.com/anime-shed/flood-inspector-go/pkg/models"
	"github.com/anime-shed/flood-inspector-go/pkg/validation"
)

// Input roles, also used as upload field names
const (
	RoleBefore  = "before"
	RoleAfter   = "after"
	RoleCurrent = "current"
)

var roles = [3]string{RoleBefore, RoleAfter, RoleCurrent}

// RasterUploads carries the three uploaded raster streams
type RasterUploads struct {
	Before  io.Reader
	After   io.Reader
	Current io.Reader
}

func (u RasterUploads) readers() [3]io.Reader {
	return [3]io.Reader{u.Before, u.After, u.Current}
}

// DetectOptions are the per-request overrides
type DetectOptions struct {
	RequestID          string
	FloodAreaThreshold *float64
	SkipPlot           bool
}

// FloodDetectionService runs flood detection for uploaded or remote rasters
type FloodDetectionService interface {
	DetectFromUploads(ctx context.Context, uploads RasterUploads, opts DetectOptions) (*models.FloodDetectionResponse, error)
	DetectFromSources(ctx context.Context, req models.DetectFromSourcesRequest, requestID string) (*models.FloodDetectionResponse, error)
	Thresholds() models.Thresholds
	Stats() analyzer.PoolStats
}

// Dependencies groups the collaborators of the service
type Dependencies struct {
	Repository repository.RasterRepository
	Analyzer   analyzer.FloodAnalyzer
	Uploads    *storage.UploadStore
	Validator  *validation.RasterValidator
	Events     observer.Subject
	MaxPixels  int64
}

type floodDetectionService struct {
	repo      repository.RasterRepository
	analyzer  analyzer.FloodAnalyzer
	uploads   *storage.UploadStore
	validator *validation.RasterValidator
	events    observer.Subject
	maxPixels int64
}

// NewFloodDetectionService creates a new flood detection service
func NewFloodDetectionService(deps Dependencies) FloodDetectionService {
	s := &floodDetectionService{
		repo:      deps.Repository,
		analyzer:  deps.Analyzer,
		uploads:   deps.Uploads,
		validator: deps.Validator,
		events:    deps.Events,
		maxPixels: deps.MaxPixels,
	}
	if s.uploads == nil {
		s.uploads = storage.NewUploadStore("", 0)
	}
	if s.validator == nil {
		s.validator = validation.NewRasterValidator(deps.MaxPixels)
	}
	return s
}

func (s *floodDetectionService) Thresholds() models.Thresholds {
	d := s.analyzer.Defaults()
	return models.Thresholds{
		FloodAreaThreshold: d.FloodAreaThreshold,
		RiverCutoff:        float64(d.RiverCutoff),
		DiskRadius:         d.DiskRadius,
	}
}

func (s *floodDetectionService) Stats() analyzer.PoolStats {
	return s.analyzer.Stats()
}

// DetectFromUploads spools the uploads to a scratch directory, decodes them
// concurrently and analyses them. The scratch files are removed on every path.
func (s *floodDetectionService) DetectFromUploads(ctx context.Context, uploads RasterUploads, opts DetectOptions) (*models.FloodDetectionResponse, error) {
	readers := uploads.readers()
	for i, r := range readers {
		if r == nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("missing %s raster", roles[i]), nil)
		}
	}

	var resp *models.FloodDetectionResponse
	err := s.uploads.WithSession(func(session *storage.UploadSession) error {
		var paths [3]string
		for i, r := range readers {
			p, err := session.Save(roles[i], r)
			if err != nil {
				return err
			}
			paths[i] = p
		}

		var rasters [3]*raster.Raster
		g, gctx := errgroup.WithContext(ctx)
		for i := range paths {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				r, err := raster.DecodeFile(paths[i], s.maxPixels)
				if err != nil {
					return fmt.Errorf("%s: %w", roles[i], err)
				}
				rasters[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		var err error
		resp, err = s.analyze(ctx, rasters, opts, "upload")
		return err
	})
	if err != nil {
		return nil, apperrors.FromAnalysisError(err)
	}
	return resp, nil
}

// DetectFromSources fetches the three rasters concurrently from their URLs
func (s *floodDetectionService) DetectFromSources(ctx context.Context, req models.DetectFromSourcesRequest, requestID string) (*models.FloodDetectionResponse, error) {
	if s.repo == nil {
		return nil, apperrors.NewInternalError("no raster repository configured", nil)
	}
	sources := [3]string{req.BeforeURL, req.AfterURL, req.CurrentURL}
	for i, src := range sources {
		if err := s.repo.ValidateSource(src); err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("invalid %s source", roles[i]), err)
		}
	}

	var rasters [3]*raster.Raster
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			start := time.Now()
			r, err := s.repo.FetchRaster(gctx, src)
			event := observer.AnalysisEvent{
				RequestID:      requestID,
				Source:         src,
				ProcessingTime: time.Since(start),
				Metadata:       map[string]interface{}{"role": roles[i]},
			}
			if err != nil {
				event.EventType = observer.RasterFetchFailed
				event.ErrorMessage = err.Error()
				s.publish(ctx, event)
				return fmt.Errorf("%s: %w", roles[i], err)
			}
			event.EventType = observer.RasterFetched
			event.Success = true
			s.publish(ctx, event)
			rasters[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.FromAnalysisError(err)
	}

	resp, err := s.analyze(ctx, rasters, DetectOptions{
		RequestID:          requestID,
		FloodAreaThreshold: req.FloodAreaThreshold,
		SkipPlot:           req.SkipPlot,
	}, "sources")
	if err != nil {
		return nil, apperrors.FromAnalysisError(err)
	}
	return resp, nil
}

func (s *floodDetectionService) analyze(ctx context.Context, rasters [3]*raster.Raster, opts DetectOptions, source string) (*models.FloodDetectionResponse, error) {
	before, after, current := rasters[0], rasters[1], rasters[2]
	log := logger.WithRequestID(opts.RequestID).WithField("source", source)

	issues := s.validator.Validate(before, after, current)
	if issue, ok := validation.FirstError(issues); ok {
		return nil, issueError(issue)
	}

	options, err := s.options(opts)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, observer.AnalysisEvent{
		EventType: observer.AnalysisStarted,
		RequestID: opts.RequestID,
		Source:    source,
	})

	result, err := s.analyzer.Analyze(ctx, before, after, current, options)
	if err != nil {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:    observer.AnalysisFailed,
			RequestID:    opts.RequestID,
			Source:       source,
			ErrorMessage: err.Error(),
		})
		return nil, err
	}

	if result.RenderError != nil {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:    observer.DiagnosticFailed,
			RequestID:    opts.RequestID,
			Source:       source,
			ErrorMessage: result.RenderError.Error(),
		})
	}
	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		RequestID:      opts.RequestID,
		Source:         source,
		ProcessingTime: result.ProcessingTime,
		Success:        true,
		FloodDetected:  result.FloodDetected,
		FloodRatio:     result.FloodRatio,
	})

	log.WithFields(logrus.Fields{
		"flood_detected":  result.FloodDetected,
		"flood_ratio":     result.FloodRatio,
		"flood_threshold": result.FloodThreshold,
		"warnings":        len(validation.Warnings(issues)),
	}).Debug("Flood detection finished")

	return buildResponse(opts.RequestID, result, issues), nil
}

func (s *floodDetectionService) options(opts DetectOptions) (analyzer.AnalysisOptions, error) {
	options := s.analyzer.Defaults()
	if opts.FloodAreaThreshold != nil {
		t := *opts.FloodAreaThreshold
		if t < 0 || t > 1 {
			return options, fmt.Errorf("%w: flood_area_threshold %v outside [0, 1]", flood.ErrInvalidOptions, t)
		}
		options = options.WithFloodAreaThreshold(t)
	}
	if opts.SkipPlot {
		options = options.WithoutDiagnostic()
	}
	return options, nil
}

func (s *floodDetectionService) publish(ctx context.Context, event observer.AnalysisEvent) {
	if s.events == nil {
		return
	}
	s.events.NotifyObservers(ctx, event)
}

// issueError maps a blocking validation issue onto the engine error it
// would otherwise surface as.
func issueError(issue validation.RasterIssue) error {
	var sentinel error
	switch issue.Type {
	case "shape_mismatch":
		sentinel = flood.ErrInputShape
	case "empty":
		sentinel = flood.ErrEmptyRaster
	case "too_large":
		sentinel = raster.ErrTooLarge
	default:
		return apperrors.NewValidationError(issue.Message, nil)
	}
	return fmt.Errorf("%w: %s", sentinel, issue.Message)
}

func buildResponse(requestID string, result *analyzer.AnalysisResult, issues []validation.RasterIssue) *models.FloodDetectionResponse {
	resp := &models.FloodDetectionResponse{
		RequestID:      requestID,
		FloodDetected:  result.FloodDetected,
		FloodRatio:     result.FloodRatio,
		FloodThreshold: result.FloodThreshold,
		AreaThreshold:  result.Options.FloodAreaThreshold,
		Coverage: models.Coverage{
			FloodPixels: result.Coverage.Flood,
			RiverPixels: result.Coverage.River,
			TotalPixels: result.Coverage.Total,
		},
		Rescaled:         result.Rescaled,
		ProcessingTimeMs: result.ProcessingTime.Milliseconds(),
		Timestamp:        result.Timestamp.UTC().Format(time.RFC3339),
		Warnings:         validation.Warnings(issues),
	}
	if len(result.DiagnosticImage) > 0 {
		resp.Plot = base64.StdEncoding.EncodeToString(result.DiagnosticImage)
	}
	if result.RenderError != nil {
		resp.RenderError = result.RenderError.Error()
	}
	return resp
}

// IsClientError reports whether err was caused by the request rather than the server
func IsClientError(err error) bool {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode >= 400 && appErr.StatusCode < 500
	}
	return false
}
