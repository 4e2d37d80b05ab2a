package config

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service settings. Values come from an optional YAML file
// named by CONFIG_FILE, then environment variables override them.
type Config struct {
	Host               string        `yaml:"host"`
	Port               string        `yaml:"port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	RasterFetchTimeout time.Duration `yaml:"raster_fetch_timeout"`
	AnalysisTimeout    time.Duration `yaml:"analysis_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`
	MaxRasterPixels    int64         `yaml:"max_raster_pixels"`
	Workers            int           `yaml:"workers"`

	// Engine parameters
	FloodAreaThreshold float64 `yaml:"flood_area_threshold"`
	RiverCutoff        int     `yaml:"river_cutoff"`
	DiskRadius         int     `yaml:"disk_radius"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	AllowedSourceHosts []string `yaml:"allowed_source_hosts"`
	RasterRootDir      string   `yaml:"raster_root_dir"`
	UploadTempDir      string   `yaml:"upload_temp_dir"`

	AzureStorageAccount string `yaml:"azure_storage_account"`
	AzureStorageKey     string `yaml:"azure_storage_key"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether blob credentials are configured
func (c *Config) AzureEnabled() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != ""
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               "8080",
		RequestTimeout:     60 * time.Second,
		RasterFetchTimeout: 30 * time.Second,
		AnalysisTimeout:    45 * time.Second,
		MaxRequestBodySize: 100 * 1024 * 1024, // 100MB, three rasters per request
		MaxRasterPixels:    50_000_000,
		Workers:            runtime.NumCPU(),
		FloodAreaThreshold: 0.15,
		RiverCutoff:        50,
		DiskRadius:         2,
		CORSAllowedOrigins: []string{"*"},
		UploadTempDir:      os.TempDir(),
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

func LoadFromEnv() (*Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Host = getEnvOrDefault("HOST", cfg.Host)
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.RasterFetchTimeout = parseDurationOrDefault("RASTER_FETCH_TIMEOUT", cfg.RasterFetchTimeout)
	cfg.AnalysisTimeout = parseDurationOrDefault("ANALYSIS_TIMEOUT", cfg.AnalysisTimeout)
	cfg.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", cfg.MaxRequestBodySize)
	cfg.MaxRasterPixels = parseIntOrDefault("MAX_RASTER_PIXELS", cfg.MaxRasterPixels)
	cfg.Workers = int(parseIntOrDefault("WORKERS", int64(cfg.Workers)))
	cfg.FloodAreaThreshold = parseFloatOrDefault("FLOOD_AREA_THRESHOLD", cfg.FloodAreaThreshold)
	cfg.RiverCutoff = int(parseIntOrDefault("RIVER_CUTOFF", int64(cfg.RiverCutoff)))
	cfg.DiskRadius = int(parseIntOrDefault("DISK_RADIUS", int64(cfg.DiskRadius)))
	cfg.CORSAllowedOrigins = parseListOrDefault("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.AllowedSourceHosts = parseListOrDefault("ALLOWED_SOURCE_HOSTS", cfg.AllowedSourceHosts)
	cfg.RasterRootDir = getEnvOrDefault("RASTER_ROOT_DIR", cfg.RasterRootDir)
	cfg.UploadTempDir = getEnvOrDefault("UPLOAD_TEMP_DIR", cfg.UploadTempDir)
	cfg.AzureStorageAccount = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", cfg.AzureStorageAccount)
	cfg.AzureStorageKey = getEnvOrDefault("AZURE_STORAGE_KEY", cfg.AzureStorageKey)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and required relationships between settings
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxRasterPixels <= 0 {
		return fmt.Errorf("MAX_RASTER_PIXELS must be > 0 (got %d)", c.MaxRasterPixels)
	}
	if c.RequestTimeout <= 0 || c.RasterFetchTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			c.RequestTimeout, c.RasterFetchTimeout, c.AnalysisTimeout)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be > 0 (got %d)", c.Workers)
	}
	if c.FloodAreaThreshold < 0 || c.FloodAreaThreshold > 1 {
		return fmt.Errorf("FLOOD_AREA_THRESHOLD must be within [0, 1] (got %v)", c.FloodAreaThreshold)
	}
	if c.RiverCutoff < 0 || c.RiverCutoff > 256 {
		return fmt.Errorf("RIVER_CUTOFF must be within [0, 256] (got %d)", c.RiverCutoff)
	}
	if c.DiskRadius < 0 || c.DiskRadius > 64 {
		return fmt.Errorf("DISK_RADIUS must be within [0, 64] (got %d)", c.DiskRadius)
	}
	if (c.AzureStorageAccount == "") != (c.AzureStorageKey == "") {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY must be set together")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse yaml: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// parseListOrDefault splits a comma separated value, dropping empty items
func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
