package editor

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/conneroisu/exhibit/internal/errors"
)

// Surface is the editing surface an editor reads its content from. Its URI
// identifies the model to the compiler service.
type Surface interface {
	Value() (string, error)
	URI() *url.URL
	Dispose() error
}

// SurfaceCreator builds the surface for an editor during initialization.
type SurfaceCreator func(ctx context.Context, opts Options) (Surface, error)

// MemorySurface holds its content in memory. It is the default surface and
// the one remote clients edit.
type MemorySurface struct {
	uri      *url.URL
	value    string
	disposed bool
	mu       sync.RWMutex
}

// NewMemorySurface creates a surface seeded with value. The model URI has
// the form file:///<language>-<id>.ts.
func NewMemorySurface(language, value string) *MemorySurface {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return &MemorySurface{
		uri:   &url.URL{Scheme: "file", Path: fmt.Sprintf("/%s-%s.ts", language, id)},
		value: value,
	}
}

// DefaultSurfaceCreator creates a MemorySurface from the resolved options.
func DefaultSurfaceCreator(_ context.Context, opts Options) (Surface, error) {
	return NewMemorySurface(opts.Language, opts.Value), nil
}

// Value implements Surface.
func (s *MemorySurface) Value() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.disposed {
		return "", errors.ErrModelUnavailable
	}
	return s.value, nil
}

// SetValue replaces the content.
func (s *MemorySurface) SetValue(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return errors.ErrModelUnavailable
	}
	s.value = value
	return nil
}

// URI implements Surface.
func (s *MemorySurface) URI() *url.URL { return s.uri }

// Dispose implements Surface.
func (s *MemorySurface) Dispose() error {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()
	return nil
}

// FileSurface reads its content from a file on every Value call, so edits
// made on disk show up in the next preview update. Front matter is stripped.
type FileSurface struct {
	path     string
	uri      *url.URL
	disposed bool
	mu       sync.RWMutex
}

// NewFileSurface creates a surface for path.
func NewFileSurface(path string) (*FileSurface, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewResourceError(errors.ErrCodeModelUnavailable, "resolving editor file").
			WithCause(err).
			WithContext("path", path)
	}
	return &FileSurface{
		path: abs,
		uri:  &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)},
	}, nil
}

// FileSurfaceCreator returns a SurfaceCreator for path.
func FileSurfaceCreator(path string) SurfaceCreator {
	return func(context.Context, Options) (Surface, error) {
		return NewFileSurface(path)
	}
}

// Path returns the absolute file path.
func (s *FileSurface) Path() string { return s.path }

// Value implements Surface.
func (s *FileSurface) Value() (string, error) {
	s.mu.RLock()
	disposed := s.disposed
	s.mu.RUnlock()
	if disposed {
		return "", errors.ErrModelUnavailable
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		return "", errors.NewResourceError(errors.ErrCodeModelUnavailable, "reading editor file").
			WithCause(err).
			WithContext("path", s.path)
	}
	_, body, err := ParseFrontMatter(content)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// URI implements Surface.
func (s *FileSurface) URI() *url.URL { return s.uri }

// Dispose implements Surface.
func (s *FileSurface) Dispose() error {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()
	return nil
}
