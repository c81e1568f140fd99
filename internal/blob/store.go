// Package blob stores published preview documents behind revocable handles.
//
// A handle plays the role of a browser object URL: it names immutable content
// until it is revoked, after which the content is gone and the URL resolves
// to nothing.
package blob

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultPrefix is the URL path under which MemoryStore resources are served.
const DefaultPrefix = "/blob/"

// HTMLContentType is the content type of composed documents.
const HTMLContentType = "text/html;charset=utf-8"

// Handle names one published resource.
type Handle struct {
	ID  string
	URL string
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h.ID == ""
}

// Resource is the content behind a handle.
type Resource struct {
	Content     []byte
	ContentType string
	CreatedAt   time.Time
}

// Store creates and revokes handles.
type Store interface {
	Create(content []byte, contentType string) (Handle, error)
	Revoke(h Handle)
}

// MemoryStore is an in-process Store that can also serve its resources.
type MemoryStore struct {
	prefix    string
	resources map[string]Resource
	mutex     sync.RWMutex
}

// NewMemoryStore creates a store whose URLs start with prefix. An empty
// prefix selects DefaultPrefix.
func NewMemoryStore(prefix string) *MemoryStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &MemoryStore{
		prefix:    prefix,
		resources: make(map[string]Resource),
	}
}

// Create stores a copy of content under a fresh handle.
func (s *MemoryStore) Create(content []byte, contentType string) (Handle, error) {
	id := uuid.NewString()

	data := make([]byte, len(content))
	copy(data, content)

	s.mutex.Lock()
	s.resources[id] = Resource{
		Content:     data,
		ContentType: contentType,
		CreatedAt:   time.Now(),
	}
	s.mutex.Unlock()

	return Handle{ID: id, URL: s.prefix + id}, nil
}

// Revoke releases the resource behind h. Revoking twice is a no-op.
func (s *MemoryStore) Revoke(h Handle) {
	s.mutex.Lock()
	delete(s.resources, h.ID)
	s.mutex.Unlock()
}

// Get returns the resource for an id.
func (s *MemoryStore) Get(id string) (Resource, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	r, ok := s.resources[id]
	return r, ok
}

// Len returns the number of live resources.
func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.resources)
}

// Prefix returns the URL prefix of the store.
func (s *MemoryStore) Prefix() string {
	return s.prefix
}

// ServeHTTP serves live resources by id; revoked or unknown ids get 404.
func (s *MemoryStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, s.prefix)
	if _, err := uuid.Parse(id); err != nil {
		http.NotFound(w, r)
		return
	}

	res, ok := s.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(res.Content)
	}
}
