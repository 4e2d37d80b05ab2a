package transport

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/flood-inspector-go/internal/config"
	apperrors "github.com/anime-shed/flood-inspector-go/internal/errors"
	"github.com/anime-shed/flood-inspector-go/internal/logger"
	"github.com/anime-shed/flood-inspector-go/internal/observer"
	"github.com/anime-shed/flood-inspector-go/internal/service"
	"github.com/anime-shed/flood-inspector-go/pkg/models"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	// uploads beyond this spill to temporary files
	multipartMemory = 32 << 20
)

// MetricsSource exposes collected analysis metrics
type MetricsSource interface {
	GetMetrics() observer.Metrics
}

type handler struct {
	svc     service.FloodDetectionService
	metrics MetricsSource
	cfg     *config.Config
}

// NewHandler builds the gin router and wraps it in the CORS policy
func NewHandler(svc service.FloodDetectionService, metrics MetricsSource, cfg *config.Config) http.Handler {
	h := &handler{svc: svc, metrics: metrics, cfg: cfg}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", h.healthCheck)
	r.GET("/metrics", h.getMetrics)
	r.POST("/detect-flood/", h.detectFlood)
	r.POST("/detect-flood/sources", h.detectFloodFromSources)

	return handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSAllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
	)(r)
}

// detectFlood handles the multipart upload of before, after and current
func (h *handler) detectFlood(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		respondError(c, formError("", err))
		return
	}
	defer c.Request.MultipartForm.RemoveAll()

	opts := service.DetectOptions{RequestID: c.GetString(requestIDKey)}
	if v := strings.TrimSpace(c.PostForm("flood_area_threshold")); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(c, apperrors.NewValidationError("flood_area_threshold must be a number", err))
			return
		}
		opts.FloodAreaThreshold = &t
	}
	if v := c.PostForm("skip_plot"); v != "" {
		skip, err := strconv.ParseBool(v)
		if err != nil {
			respondError(c, apperrors.NewValidationError("skip_plot must be a boolean", err))
			return
		}
		opts.SkipPlot = skip
	}

	var files [3]multipart.File
	defer func() {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
	}()
	for i, field := range []string{service.RoleBefore, service.RoleAfter, service.RoleCurrent} {
		fh, err := c.FormFile(field)
		if err != nil {
			respondError(c, formError(field, err))
			return
		}
		f, err := fh.Open()
		if err != nil {
			respondError(c, apperrors.NewInternalError(fmt.Sprintf("cannot open %s upload", field), err))
			return
		}
		files[i] = f
	}

	resp, err := h.svc.DetectFromUploads(ctx, service.RasterUploads{
		Before:  files[0],
		After:   files[1],
		Current: files[2],
	}, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// detectFloodFromSources handles a JSON request naming the rasters by URL
func (h *handler) detectFloodFromSources(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	var req models.DetectFromSourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isBodyTooLarge(err) {
			respondError(c, apperrors.NewPayloadTooLargeError("request body too large", err))
			return
		}
		respondError(c, apperrors.NewValidationError("invalid request format", err))
		return
	}

	resp, err := h.svc.DetectFromSources(ctx, req, c.GetString(requestIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) healthCheck(c *gin.Context) {
	stats := h.svc.Stats()
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:     "available",
		Version:    Version,
		Time:       time.Now().UTC().Format(time.RFC3339),
		Workers:    stats.Workers,
		QueuedJobs: int64(stats.QueuedJobs),
		Thresholds: h.svc.Thresholds(),
	})
}

func (h *handler) getMetrics(c *gin.Context) {
	body := gin.H{"pool": h.svc.Stats()}
	if h.metrics != nil {
		body["analyses"] = h.metrics.GetMetrics()
	}
	c.JSON(http.StatusOK, body)
}

// formError classifies a failure to read a multipart field
func formError(field string, err error) error {
	switch {
	case isBodyTooLarge(err):
		return apperrors.NewPayloadTooLargeError("request body too large", err)
	case errors.Is(err, http.ErrMissingFile):
		return apperrors.NewValidationError(fmt.Sprintf("missing %s file", field), err)
	default:
		return apperrors.NewValidationError("invalid multipart form", err)
	}
}

// isBodyTooLarge detects the body limit even when a parser flattened the error
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

// Middleware and helper functions
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger.WithRequestID(c.GetString(requestIDKey)).
			WithField("path", c.Request.URL.Path).
			Debug("Request started")
		c.Next()

		entry := logger.WithRequestID(c.GetString(requestIDKey)).WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request completed with server error")
			return
		}
		entry.Info("Request completed")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func respondError(c *gin.Context, err error) {
	appErr := apperrors.FromAnalysisError(err)
	code := apperrors.GetStatusCode(appErr)

	entry := logger.WithRequestID(c.GetString(requestIDKey)).WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"error_type":  appErr.Type,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	switch {
	case apperrors.IsType(appErr, apperrors.ErrorTypeTimeout):
		entry.Warn("Request timed out")
	case service.IsClientError(appErr):
		entry.Warn("Request rejected")
	default:
		entry.Error("Request failed")
	}

	message := appErr.Message
	if appErr.Cause != nil {
		message = fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
	}
	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:     http.StatusText(code),
		Message:   message,
		Type:      string(appErr.Type),
		RequestID: c.GetString(requestIDKey),
	})
}
