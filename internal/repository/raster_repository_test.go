package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/anime-shed/flood-inspector-go/internal/errors"
	"github.com/anime-shed/flood-inspector-go/internal/raster"
	"github.com/anime-shed/flood-inspector-go/internal/storage"
	"github.com/anime-shed/flood-inspector-go/pkg/validation"
)

type fakeFetcher struct {
	name  string
	err   error
	calls []string
}

func (f *fakeFetcher) FetchRaster(ctx context.Context, source string) (*raster.Raster, error) {
	f.calls = append(f.calls, source)
	if f.err != nil {
		return nil, f.err
	}
	return raster.Filled(2, 2, 1), nil
}

func TestRasterRepository_Routing(t *testing.T) {
	httpF := &fakeFetcher{name: "http"}
	azureF := &fakeFetcher{name: "azure"}
	localF := &fakeFetcher{name: "local"}
	repo := NewRasterRepository(
		Backends{HTTP: httpF, Azure: azureF, Local: localF},
		validation.NewURLValidatorWithOptions([]string{"http", "https", "file"}, nil),
	)
	ctx := context.Background()

	tests := []struct {
		source string
		want   *fakeFetcher
	}{
		{"https://example.com/before.tif", httpF},
		{"https://acct.blob.core.windows.net/scenes/after.tif", azureF},
		{"https://acct.blob.core.windows.net/scenes/after.tif?sv=2024&sig=abc", httpF},
		{"file:///data/current.tif", localF},
	}
	for _, tt := range tests {
		_, err := repo.FetchRaster(ctx, tt.source)
		require.NoError(t, err, tt.source)
		assert.Contains(t, tt.want.calls, tt.source, "expected %s backend", tt.want.name)
	}
}

func TestRasterRepository_BlobWithoutAzureUsesHTTP(t *testing.T) {
	httpF := &fakeFetcher{}
	repo := NewRasterRepository(Backends{HTTP: httpF}, validation.NewURLValidator())

	_, err := repo.FetchRaster(context.Background(), "https://acct.blob.core.windows.net/scenes/a.tif")
	require.NoError(t, err)
	assert.Len(t, httpF.calls, 1)
}

func TestRasterRepository_Unsupported(t *testing.T) {
	repo := NewRasterRepository(
		Backends{HTTP: &fakeFetcher{}},
		validation.NewURLValidatorWithOptions([]string{"http", "https", "file"}, nil),
	)

	_, err := repo.FetchRaster(context.Background(), "file:///data/a.tif")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestRasterRepository_InvalidSource(t *testing.T) {
	httpF := &fakeFetcher{}
	repo := NewRasterRepository(Backends{HTTP: httpF}, validation.NewURLValidator())

	_, err := repo.FetchRaster(context.Background(), "ftp://example.com/a.tif")
	assert.ErrorIs(t, err, ErrInvalidSourceURL)
	assert.Equal(t, http.StatusBadRequest, apperrors.GetStatusCode(err))
	assert.Empty(t, httpF.calls)
}

func TestRasterRepository_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantIs     error
	}{
		{"not found status", fmt.Errorf("failed: %w", &storage.StatusError{StatusCode: 404}), http.StatusNotFound, nil},
		{"missing blob", storage.ErrSourceNotFound, http.StatusNotFound, storage.ErrSourceNotFound},
		{"server error", &storage.StatusError{StatusCode: 503}, http.StatusBadGateway, ErrRepositoryUnavailable},
		{"decode", fmt.Errorf("x: %w", raster.ErrDecode), http.StatusInternalServerError, raster.ErrDecode},
		{"deadline", context.DeadlineExceeded, http.StatusInternalServerError, context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewRasterRepository(Backends{HTTP: &fakeFetcher{err: tt.err}}, nil)
			_, err := repo.FetchRaster(context.Background(), "https://example.com/a.tif")
			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, apperrors.GetStatusCode(err))
			if tt.wantIs != nil {
				assert.True(t, errors.Is(err, tt.wantIs), "got %v", err)
			}
		})
	}
}

func TestRasterRepository_NilValidator(t *testing.T) {
	repo := NewRasterRepository(Backends{HTTP: &fakeFetcher{}}, nil)
	assert.ErrorIs(t, repo.ValidateSource("  "), ErrInvalidSourceURL)
	assert.NoError(t, repo.ValidateSource("https://example.com/a.tif"))
}
