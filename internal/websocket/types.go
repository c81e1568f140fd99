package websocket

import (
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Outbound message types.
const (
	MessageSource  = "source"
	MessageHeight  = "height"
	// MessageMeasure asks the browser to measure the document in Content.
	MessageMeasure = "measure"
	MessageError   = "error"
)

// Inbound event types.
const (
	EventLoaded   = "loaded"
	EventMeasured = "measured"
	EventClick    = "click"
	EventEdit     = "edit"
)

// Client represents a WebSocket client connection
type Client struct {
	conn        *websocket.Conn
	send        chan []byte
	exhibition  string
	rateLimiter RateLimiter
}

// Exhibition returns the exhibition the client subscribed to. Empty means
// the client receives every broadcast.
func (c *Client) Exhibition() string {
	return c.exhibition
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type       string    `json:"type"`
	Exhibition string    `json:"exhibition"`
	Target     string    `json:"target,omitempty"`
	Content    string    `json:"content,omitempty"`
	Height     int       `json:"height,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event is a message received from the browser.
type Event struct {
	Type       string
	Exhibition string
	// ID names the clicked element for click events.
	ID string
	// Source names the document of loaded and measured events; Height is
	// the content height a measured event reports.
	Source string
	Height int
	// Editor and Value carry the new source for edit events.
	Editor string
	Value  string
}

// RateLimiter interface for WebSocket rate limiting
type RateLimiter interface {
	Allow() bool
	Reset()
}

// OriginValidator interface for WebSocket origin validation
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}

// OriginList allows origins whose host matches an entry. "*" allows all.
type OriginList []string

// IsAllowedOrigin implements OriginValidator.
func (l OriginList) IsAllowedOrigin(origin string) bool {
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	host = strings.TrimSuffix(host, "/")

	for _, allowed := range l {
		switch {
		case allowed == "*":
			return true
		case strings.EqualFold(allowed, origin), strings.EqualFold(allowed, host):
			return true
		case !strings.Contains(allowed, ":") && strings.EqualFold(allowed, hostname(host)):
			return true
		}
	}
	return false
}

func hostname(host string) string {
	if i := strings.LastIndex(host, ":"); i >= 0 {
		return host[:i]
	}
	return host
}

// WindowLimiter allows at most Limit calls per Window.
type WindowLimiter struct {
	Limit  int
	Window time.Duration

	mu    sync.Mutex
	start time.Time
	count int
	now   func() time.Time
}

// NewWindowLimiter creates a limiter allowing limit calls per window.
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{Limit: limit, Window: window, now: time.Now}
}

// Allow implements RateLimiter.
func (w *WindowLimiter) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if now.Sub(w.start) >= w.Window {
		w.start = now
		w.count = 0
	}
	if w.count >= w.Limit {
		return false
	}
	w.count++
	return true
}

// Reset implements RateLimiter.
func (w *WindowLimiter) Reset() {
	w.mu.Lock()
	w.count = 0
	w.start = time.Time{}
	w.mu.Unlock()
}
