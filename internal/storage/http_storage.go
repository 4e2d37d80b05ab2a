package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anime-shed/flood-inspector-go/internal/raster"
)

// RasterFetcher retrieves and decodes a raster from a source location
type RasterFetcher interface {
	FetchRaster(ctx context.Context, source string) (*raster.Raster, error)
}

// StatusError reports a non-200 response from a raster source
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return fmt.Sprintf("client error: status code %d", e.StatusCode)
	}
	return fmt.Sprintf("server error: status code %d", e.StatusCode)
}

// Retryable reports whether the request may succeed if repeated
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500
}

const maxFetchAttempts = 3

// HTTPRasterFetcher implements RasterFetcher over plain HTTP(S)
type HTTPRasterFetcher struct {
	client    *http.Client
	maxBytes  int64
	maxPixels int64
	backoff   time.Duration
}

// HTTPOption customises an HTTPRasterFetcher
type HTTPOption func(*HTTPRasterFetcher)

// WithTimeout sets the per-request client timeout
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPRasterFetcher) {
		h.client.Timeout = d
	}
}

// WithLimits caps the downloaded body size and the decoded pixel count
func WithLimits(maxBytes, maxPixels int64) HTTPOption {
	return func(h *HTTPRasterFetcher) {
		h.maxBytes = maxBytes
		h.maxPixels = maxPixels
	}
}

// WithBackoff sets the base delay between retries; attempt n waits n*d
func WithBackoff(d time.Duration) HTTPOption {
	return func(h *HTTPRasterFetcher) {
		h.backoff = d
	}
}

// NewHTTPRasterFetcher creates an HTTP raster fetcher
func NewHTTPRasterFetcher(opts ...HTTPOption) *HTTPRasterFetcher {
	// Rasters are large single downloads, so keep few idle connections
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	h := &HTTPRasterFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// FetchRaster downloads source and decodes its first band. Network errors and
// 5xx responses are retried up to three attempts; 4xx responses are not.
func (h *HTTPRasterFetcher) FetchRaster(ctx context.Context, source string) (*raster.Raster, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req.Header.Set("Accept", "image/tiff, image/png, image/jpeg, image/gif, */*")
	req.Header.Set("User-Agent", "Flood-Inspector/1.0")

	var lastErr error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * h.backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch cancelled after %d attempts: %w", attempt, ctx.Err())
			}
		}

		data, err := h.get(req)
		if err == nil {
			return raster.DecodeBytes(data, h.maxPixels)
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			break
		}
		if errors.Is(err, raster.ErrTooLarge) {
			return nil, err
		}
		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("failed to fetch raster: %w", lastErr)
}

// get performs one attempt and returns the full body of a 200 response
func (h *HTTPRasterFetcher) get(req *http.Request) ([]byte, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	if h.maxBytes > 0 && resp.ContentLength > h.maxBytes {
		return nil, fmt.Errorf("%w: body is %d bytes, limit is %d", raster.ErrTooLarge, resp.ContentLength, h.maxBytes)
	}

	return readLimited(resp.Body, h.maxBytes)
}

// readLimited reads at most maxBytes from r and fails with raster.ErrTooLarge
// when more is available. maxBytes <= 0 reads everything.
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", raster.ErrTooLarge, maxBytes)
	}
	return data, nil
}
