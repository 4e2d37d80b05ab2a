package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/anime-shed/flood-inspector-go/internal/raster"
)

// ErrSourceNotFound indicates the raster does not exist at its source
var ErrSourceNotFound = errors.New("raster source not found")

type azureStorage struct {
	client    *azblob.Client
	maxBytes  int64
	maxPixels int64
}

// NewAzureStorage creates a blob-backed fetcher for the given storage account.
// Blobs larger than maxBytes are rejected without being buffered.
func NewAzureStorage(accountName, accountKey string, maxBytes, maxPixels int64) (RasterFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		AccountURL(accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &azureStorage{client: client, maxBytes: maxBytes, maxPixels: maxPixels}, nil
}

// AccountURL returns the blob endpoint of a storage account
func AccountURL(accountName string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
}

// FetchRaster downloads the blob named by blobURL and decodes it
func (s *azureStorage) FetchRaster(ctx context.Context, blobURL string) (*raster.Raster, error) {
	containerName, blobName, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrSourceNotFound, containerName, blobName)
		}
		return nil, fmt.Errorf("download failed: %w", err)
	}

	defer resp.Body.Close()

	if s.maxBytes > 0 && resp.ContentLength != nil && *resp.ContentLength > s.maxBytes {
		return nil, fmt.Errorf("%w: blob is %d bytes, limit is %d", raster.ErrTooLarge, *resp.ContentLength, s.maxBytes)
	}
	return decodeLimited(resp.Body, s.maxBytes, s.maxPixels)
}

// decodeLimited decodes a raster stream under a byte budget
func decodeLimited(r io.Reader, maxBytes, maxPixels int64) (*raster.Raster, error) {
	data, err := readLimited(r, maxBytes)
	if err != nil {
		return nil, err
	}
	return raster.DecodeBytes(data, maxPixels)
}

// ParseBlobURL splits a blob URL into container and blob name. Both the path
// form (/container/dir/blob.tif) and the query form (/container?blob=name)
// are accepted.
func ParseBlobURL(blobURL string) (string, string, error) {
	parsedURL, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}

	path := strings.Trim(parsedURL.Path, "/")
	if blob := parsedURL.Query().Get("blob"); blob != "" {
		if path == "" || strings.Contains(path, "/") {
			return "", "", fmt.Errorf("invalid blob URL: container missing in %q", blobURL)
		}
		return path, blob, nil
	}

	containerName, blobName, ok := strings.Cut(path, "/")
	if !ok || containerName == "" || blobName == "" {
		return "", "", fmt.Errorf("invalid blob URL: expected /container/blob in %q", blobURL)
	}
	return containerName, blobName, nil
}

// IsBlobHost reports whether host is an Azure blob endpoint
func IsBlobHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), ".blob.core.windows.net")
}
