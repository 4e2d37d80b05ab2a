package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/anime-shed/flood-inspector-go/internal/raster"
)

// ErrSessionClosed is returned by Save after the session was released
var ErrSessionClosed = errors.New("upload session is closed")

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// UploadStore hands out per-request scratch directories for uploaded rasters
type UploadStore struct {
	dir      string
	maxBytes int64
}

// NewUploadStore creates a store rooted at dir; an empty dir uses the OS temp dir
func NewUploadStore(dir string, maxBytes int64) *UploadStore {
	if dir == "" {
		dir = os.TempDir()
	}
	return &UploadStore{dir: dir, maxBytes: maxBytes}
}

// UploadSession owns the files written for one request. Close removes all of them.
type UploadSession struct {
	dir      string
	maxBytes int64

	mu     sync.Mutex
	files  map[string]string
	closed bool
}

// Open creates a new session directory
func (s *UploadStore) Open() (*UploadSession, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload store: %w", err)
	}
	dir, err := os.MkdirTemp(s.dir, "flood-upload-*")
	if err != nil {
		return nil, fmt.Errorf("upload store: %w", err)
	}
	return &UploadSession{dir: dir, maxBytes: s.maxBytes, files: make(map[string]string)}, nil
}

// WithSession runs fn with a fresh session and removes its files on every
// exit path, including a panic in fn.
func (s *UploadStore) WithSession(fn func(*UploadSession) error) (err error) {
	session, err := s.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(session)
}

// Save writes r to a file named after field and returns its path
func (u *UploadSession) Save(field string, r io.Reader) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return "", ErrSessionClosed
	}

	path := filepath.Join(u.dir, unsafeName.ReplaceAllString(field, "_"))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", field, err)
	}
	u.files[field] = path

	src := r
	if u.maxBytes > 0 {
		src = io.LimitReader(r, u.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("save %s: %w", field, err)
	}
	if u.maxBytes > 0 && n > u.maxBytes {
		return "", fmt.Errorf("%w: upload %s exceeds %d bytes", raster.ErrTooLarge, field, u.maxBytes)
	}
	return path, nil
}

// Path returns the saved file for field
func (u *UploadSession) Path(field string) (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.files[field]
	return p, ok
}

// Dir is the session scratch directory
func (u *UploadSession) Dir() string {
	return u.dir
}

// Close deletes the session directory. It is safe to call more than once.
func (u *UploadSession) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true
	u.files = nil
	if err := os.RemoveAll(u.dir); err != nil {
		return fmt.Errorf("remove upload session: %w", err)
	}
	return nil
}
