package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/anime-shed/flood-inspector-go/internal/raster"
)

// ErrOutsideRoot indicates a local path escapes the configured raster root
var ErrOutsideRoot = errors.New("path is outside the raster root")

type localStorage struct {
	root      string
	maxPixels int64
}

// NewLocalStorage serves rasters from files below root
func NewLocalStorage(root string, maxPixels int64) (RasterFetcher, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage: raster root not configured")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local storage: %s is not a directory", abs)
	}
	return &localStorage{root: abs, maxPixels: maxPixels}, nil
}

// FetchRaster accepts file:// URLs or paths relative to the root
func (s *localStorage) FetchRaster(ctx context.Context, source string) (*raster.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.resolve(source)
	if err != nil {
		return nil, err
	}

	r, err := raster.DecodeFile(path, s.maxPixels)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}
	return r, err
}

func (s *localStorage) resolve(source string) (string, error) {
	p := source
	if strings.HasPrefix(source, "file://") {
		u, err := url.Parse(source)
		if err != nil {
			return "", fmt.Errorf("invalid file URL: %w", err)
		}
		p = u.Path
	}

	if !filepath.IsAbs(p) {
		p = filepath.Join(s.root, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, source)
	}
	return p, nil
}
