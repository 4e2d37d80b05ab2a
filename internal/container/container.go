package container

import (
	"fmt"
	"net/http"

	"github.com/anime-shed/flood-inspector-go/internal/analyzer"
	"github.com/anime-shed/flood-inspector-go/internal/config"
	"github.com/anime-shed/flood-inspector-go/internal/factory"
	"github.com/anime-shed/flood-inspector-go/internal/logger"
	"github.com/anime-shed/flood-inspector-go/internal/observer"
	"github.com/anime-shed/flood-inspector-go/internal/repository"
	"github.com/anime-shed/flood-inspector-go/internal/service"
	"github.com/anime-shed/flood-inspector-go/internal/storage"
	"github.com/anime-shed/flood-inspector-go/internal/transport"
	"github.com/anime-shed/flood-inspector-go/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config           *config.Config
	floodAnalyzer    analyzer.FloodAnalyzer
	rasterRepository repository.RasterRepository
	publisher        *observer.EventPublisher
	metrics          *observer.MetricsObserver
	floodService     service.FloodDetectionService
	handler          http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	components := factory.NewComponentFactory(cfg)

	backends, schemes, err := buildBackends(cfg, components.StorageFactory)
	if err != nil {
		return nil, err
	}
	rasterRepository := repository.NewRasterRepository(
		backends,
		validation.NewURLValidatorWithOptions(schemes, cfg.AllowedSourceHosts),
	)

	floodAnalyzer, err := components.AnalyzerFactory.CreateAnalyzer(factory.StandardAnalyzer)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	floodService := service.NewFloodDetectionService(service.Dependencies{
		Repository: rasterRepository,
		Analyzer:   floodAnalyzer,
		Uploads:    storage.NewUploadStore(cfg.UploadTempDir, cfg.MaxRequestBodySize),
		Validator:  validation.NewRasterValidator(cfg.MaxRasterPixels),
		Events:     publisher,
		MaxPixels:  cfg.MaxRasterPixels,
	})
	handler := transport.NewHandler(floodService, metrics, cfg)

	logger.WithField("backends", schemes).
		WithField("azure", backends.Azure != nil).
		WithField("workers", floodAnalyzer.Stats().Workers).
		Info("Container initialised")

	return &Container{
		config:           cfg,
		floodAnalyzer:    floodAnalyzer,
		rasterRepository: rasterRepository,
		publisher:        publisher,
		metrics:          metrics,
		floodService:     floodService,
		handler:          handler,
	}, nil
}

// buildBackends creates the raster fetchers the configuration enables and
// returns the URL schemes they serve.
func buildBackends(cfg *config.Config, storageFactory factory.StorageFactory) (repository.Backends, []string, error) {
	var backends repository.Backends
	schemes := []string{"http", "https"}

	httpFetcher, err := storageFactory.CreateStorage(factory.HTTPStorage)
	if err != nil {
		return backends, nil, fmt.Errorf("failed to create http storage: %w", err)
	}
	backends.HTTP = httpFetcher

	if cfg.AzureEnabled() {
		azureFetcher, err := storageFactory.CreateStorage(factory.AzureStorage)
		if err != nil {
			return backends, nil, fmt.Errorf("failed to create azure storage: %w", err)
		}
		backends.Azure = azureFetcher
	}

	if cfg.RasterRootDir != "" {
		localFetcher, err := storageFactory.CreateStorage(factory.LocalStorage)
		if err != nil {
			return backends, nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		backends.Local = localFetcher
		schemes = append(schemes, "file")
	}
	return backends, schemes, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the flood detection service
func (c *Container) Service() service.FloodDetectionService {
	return c.floodService
}

// Metrics returns the analysis metrics collector
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// Close stops the worker pool and flushes pending events
func (c *Container) Close() error {
	err := c.floodAnalyzer.Close()
	c.publisher.Wait()
	return err
}
