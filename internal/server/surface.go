package server

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/exhibit/internal/errors"
	"github.com/conneroisu/exhibit/internal/websocket"
)

// Broadcaster delivers messages to the browsers showing an exhibition.
type Broadcaster interface {
	Broadcast(msg websocket.UpdateMessage) error
}

// DefaultMeasureTimeout bounds how long ContentHeight waits for a browser to
// answer a measure request.
const DefaultMeasureTimeout = 2 * time.Second

// SocketSurface is a preview surface living in the browser. Sources and
// heights are pushed over the websocket; the browser reports back when a
// source has loaded and answers measure requests with the current content
// height.
type SocketSurface struct {
	name string
	out  Broadcaster

	// MeasureTimeout bounds ContentHeight. Zero selects DefaultMeasureTimeout.
	MeasureTimeout time.Duration

	mu      sync.Mutex
	source  string
	onLoad  func()
	loaded  bool
	height  int
	frame   int
	waiters []chan measurement
}

type measurement struct {
	height int
	err    error
}

// NewSocketSurface creates the surface of the named exhibition.
func NewSocketSurface(name string, out Broadcaster) *SocketSurface {
	return &SocketSurface{name: name, out: out}
}

// SetSource implements preview.Surface. Pending measurements of the previous
// source fail with ErrSurfaceUnavailable.
func (s *SocketSurface) SetSource(_ context.Context, url string) error {
	s.mu.Lock()
	s.source = url
	s.loaded = false
	s.release(measurement{err: errors.ErrSurfaceUnavailable})
	s.mu.Unlock()

	return s.out.Broadcast(websocket.UpdateMessage{
		Type:       websocket.MessageSource,
		Exhibition: s.name,
		Content:    url,
	})
}

// OnLoad implements preview.Surface. Only the latest callback is kept and it
// fires at most once.
func (s *SocketSurface) OnLoad(fn func()) {
	s.mu.Lock()
	s.onLoad = fn
	s.mu.Unlock()
}

// Loaded records a load reported by the browser. Reports for a source other
// than the current one are ignored; an empty source matches any.
func (s *SocketSurface) Loaded(source string) bool {
	s.mu.Lock()
	if !s.current(source) {
		s.mu.Unlock()
		return false
	}
	s.loaded = true
	fn := s.onLoad
	s.onLoad = nil
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

// Measured delivers a height measured by the browser to the pending
// ContentHeight calls. It reports whether any call was waiting.
func (s *SocketSurface) Measured(source string, height int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(source) || len(s.waiters) == 0 {
		return false
	}
	s.height = height
	s.release(measurement{height: height})
	return true
}

// ContentHeight implements preview.Surface. It asks the browser to measure
// the loaded document and waits for the answer.
func (s *SocketSurface) ContentHeight(ctx context.Context) (int, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return 0, errors.ErrSurfaceUnavailable
	}
	ch := make(chan measurement, 1)
	s.waiters = append(s.waiters, ch)
	source := s.source
	s.mu.Unlock()

	if err := s.out.Broadcast(websocket.UpdateMessage{
		Type:       websocket.MessageMeasure,
		Exhibition: s.name,
		Content:    source,
	}); err != nil {
		s.forget(ch)
		return 0, err
	}

	timeout := s.MeasureTimeout
	if timeout <= 0 {
		timeout = DefaultMeasureTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m := <-ch:
		return m.height, m.err
	case <-ctx.Done():
		s.forget(ch)
		return 0, ctx.Err()
	case <-timer.C:
		s.forget(ch)
		return 0, errors.NewTransientError(errors.ErrCodeSurfaceUnavailable, "browser did not answer the measure request", nil).
			WithContext("exhibition", s.name)
	}
}

// current must be called with mu held.
func (s *SocketSurface) current(source string) bool {
	return source == "" || source == s.source
}

// release must be called with mu held.
func (s *SocketSurface) release(m measurement) {
	for _, ch := range s.waiters {
		ch <- m
	}
	s.waiters = nil
}

func (s *SocketSurface) forget(ch chan measurement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.waiters {
		if w == ch {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

// SetHeight implements preview.Surface.
func (s *SocketSurface) SetHeight(_ context.Context, px int) error {
	s.mu.Lock()
	s.frame = px
	s.mu.Unlock()

	return s.out.Broadcast(websocket.UpdateMessage{
		Type:       websocket.MessageHeight,
		Exhibition: s.name,
		Height:     px,
	})
}

// Source returns the URL the surface currently shows.
func (s *SocketSurface) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// FrameHeight returns the last height applied with SetHeight.
func (s *SocketSurface) FrameHeight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}
