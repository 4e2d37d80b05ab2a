package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_FetchRaster(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scenes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "scenes", "before.png"), grayPNG(t, 3, 2), 0o600))

	s, err := NewLocalStorage(root, 0)
	require.NoError(t, err)

	r, err := s.FetchRaster(context.Background(), "scenes/before.png")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Width)
	assert.Equal(t, 2, r.Height)

	r, err = s.FetchRaster(context.Background(), "file://"+filepath.Join(root, "scenes", "before.png"))
	require.NoError(t, err)
	assert.Equal(t, 6, r.Len())
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root, 0)
	require.NoError(t, err)

	for _, source := range []string{
		"../secret.png",
		"scenes/../../secret.png",
		"/etc/passwd",
		"file:///etc/passwd",
	} {
		_, err := s.FetchRaster(context.Background(), source)
		assert.True(t, errors.Is(err, ErrOutsideRoot), "%s: got %v", source, err)
	}
}

func TestLocalStorage_Missing(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = s.FetchRaster(context.Background(), "nope.tif")
	assert.True(t, errors.Is(err, ErrSourceNotFound), "got %v", err)
}

func TestNewLocalStorage_Invalid(t *testing.T) {
	_, err := NewLocalStorage("", 0)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	_, err = NewLocalStorage(file, 0)
	assert.Error(t, err)
}

func TestParseBlobURL(t *testing.T) {
	tests := []struct {
		url       string
		container string
		blob      string
		wantErr   bool
	}{
		{url: "https://acct.blob.core.windows.net/scenes/2024/before.tif", container: "scenes", blob: "2024/before.tif"},
		{url: "https://acct.blob.core.windows.net/scenes?blob=after.tif", container: "scenes", blob: "after.tif"},
		{url: "https://acct.blob.core.windows.net/scenes", wantErr: true},
		{url: "https://acct.blob.core.windows.net/", wantErr: true},
		{url: "https://acct.blob.core.windows.net/a/b?blob=c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			c, b, err := ParseBlobURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.container, c)
			assert.Equal(t, tt.blob, b)
		})
	}
}

func TestIsBlobHost(t *testing.T) {
	assert.True(t, IsBlobHost("acct.blob.core.windows.net"))
	assert.True(t, IsBlobHost("ACCT.BLOB.CORE.WINDOWS.NET"))
	assert.False(t, IsBlobHost("example.com"))
	assert.False(t, IsBlobHost("blob.core.windows.net.evil.com"))
	assert.Equal(t, "https://acct.blob.core.windows.net", AccountURL("acct"))
	assert.True(t, strings.HasPrefix(AccountURL("x"), "https://"))
}

func TestUploadStore_WithSessionCleansUp(t *testing.T) {
	store := NewUploadStore(t.TempDir(), 0)

	var dir, path string
	err := store.WithSession(func(s *UploadSession) error {
		dir = s.Dir()
		var err error
		path, err = s.Save("before", strings.NewReader("data"))
		require.NoError(t, err)
		got, ok := s.Path("before")
		assert.True(t, ok)
		assert.Equal(t, path, got)
		return errors.New("analysis failed")
	})
	assert.EqualError(t, err, "analysis failed")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "upload file should be removed")
	_, statErr = os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "session dir should be removed")
}

func TestUploadStore_CleansUpOnPanic(t *testing.T) {
	store := NewUploadStore(t.TempDir(), 0)

	var dir string
	assert.Panics(t, func() {
		_ = store.WithSession(func(s *UploadSession) error {
			dir = s.Dir()
			_, _ = s.Save("current", strings.NewReader("x"))
			panic("boom")
		})
	})
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUploadSession_SizeLimitAndNames(t *testing.T) {
	store := NewUploadStore(t.TempDir(), 4)
	s, err := store.Open()
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Save("big", strings.NewReader("12345"))
	assert.Error(t, err)

	path, err := s.Save("../../escape", strings.NewReader("ok"))
	require.NoError(t, err)
	assert.Equal(t, s.Dir(), filepath.Dir(path))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err = s.Save("after", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrSessionClosed)
}
