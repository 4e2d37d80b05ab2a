package factory

import (
	"fmt"

	"github.com/anime-shed/flood-inspector-go/internal/analyzer"
	"github.com/anime-shed/flood-inspector-go/internal/config"
	"github.com/anime-shed/flood-inspector-go/internal/storage"
)

// AnalyzerType represents different analyzer profiles
type AnalyzerType string

const (
	// StandardAnalyzer renders the diagnostic figure
	StandardAnalyzer AnalyzerType = "standard"
	// FastAnalyzer skips the diagnostic figure
	FastAnalyzer AnalyzerType = "fast"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based raster fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// AnalyzerFactory creates flood analyzers
type AnalyzerFactory interface {
	CreateAnalyzer(analyzerType AnalyzerType) (analyzer.FloodAnalyzer, error)
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.RasterFetcher, error)
}

// analyzerFactory implements AnalyzerFactory
type analyzerFactory struct {
	cfg *config.Config
}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory(cfg *config.Config) AnalyzerFactory {
	return &analyzerFactory{cfg: cfg}
}

// DefaultAnalysisOptions derives analyzer defaults from configuration
func DefaultAnalysisOptions(cfg *config.Config) analyzer.AnalysisOptions {
	return analyzer.DefaultOptions().
		WithFloodAreaThreshold(cfg.FloodAreaThreshold).
		WithRiverCutoff(cfg.RiverCutoff).
		WithDiskRadius(cfg.DiskRadius).
		WithTimeout(cfg.AnalysisTimeout)
}

// CreateAnalyzer creates an analyzer based on the specified type
func (f *analyzerFactory) CreateAnalyzer(analyzerType AnalyzerType) (analyzer.FloodAnalyzer, error) {
	defaults := DefaultAnalysisOptions(f.cfg)
	switch analyzerType {
	case StandardAnalyzer:
	case FastAnalyzer:
		defaults = defaults.WithoutDiagnostic()
	default:
		return nil, fmt.Errorf("unsupported analyzer type: %s", analyzerType)
	}
	return analyzer.NewFloodAnalyzer(
		analyzer.WithWorkers(f.cfg.Workers),
		analyzer.WithDefaults(defaults),
	)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.RasterFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPRasterFetcher(
			storage.WithTimeout(f.cfg.RasterFetchTimeout),
			storage.WithLimits(f.cfg.MaxRequestBodySize, f.cfg.MaxRasterPixels),
		), nil
	case AzureStorage:
		if !f.cfg.AzureEnabled() {
			return nil, fmt.Errorf("azure storage requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		return storage.NewAzureStorage(f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey, f.cfg.MaxRequestBodySize, f.cfg.MaxRasterPixels)
	case LocalStorage:
		return storage.NewLocalStorage(f.cfg.RasterRootDir, f.cfg.MaxRasterPixels)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	AnalyzerFactory AnalyzerFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		AnalyzerFactory: NewAnalyzerFactory(cfg),
		StorageFactory:  NewStorageFactory(cfg),
	}
}
