package container

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/flood-inspector-go/internal/config"
	"github.com/anime-shed/flood-inspector-go/internal/factory"
)

func TestNewContainer(t *testing.T) {
	cfg := config.Defaults()
	cfg.Workers = 1
	cfg.UploadTempDir = t.TempDir()

	c, err := NewContainer(cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.Same(t, cfg, c.Config())
	assert.NotNil(t, c.Service())
	assert.Equal(t, 1, c.Service().Stats().Workers)
	assert.Equal(t, cfg.FloodAreaThreshold, c.Service().Thresholds().FloodAreaThreshold)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildBackends(t *testing.T) {
	cfg := config.Defaults()
	backends, schemes, err := buildBackends(cfg, factory.NewStorageFactory(cfg))
	require.NoError(t, err)
	assert.NotNil(t, backends.HTTP)
	assert.Nil(t, backends.Azure)
	assert.Nil(t, backends.Local)
	assert.Equal(t, []string{"http", "https"}, schemes)

	cfg.RasterRootDir = t.TempDir()
	cfg.AzureStorageAccount = "floodscenes"
	cfg.AzureStorageKey = "c2hhcmVkLWtleQ=="
	backends, schemes, err = buildBackends(cfg, factory.NewStorageFactory(cfg))
	require.NoError(t, err)
	assert.NotNil(t, backends.Azure)
	assert.NotNil(t, backends.Local)
	assert.Equal(t, []string{"http", "https", "file"}, schemes)
}

func TestClose_Idempotent(t *testing.T) {
	cfg := config.Defaults()
	cfg.Workers = 1
	c, err := NewContainer(cfg)
	require.NoError(t, err)

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
