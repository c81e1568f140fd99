// Package websocket carries preview updates to browsers and browser events
// back to the server.
//
// A single hub goroutine owns client registration and broadcasting. Clients
// may subscribe to one exhibition with the "exhibition" query parameter;
// broadcasts tagged with another exhibition are not delivered to them.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/tidwall/gjson"

	"github.com/conneroisu/exhibit/internal/errors"
	"github.com/conneroisu/exhibit/internal/logging"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// Handler receives decoded browser events.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event)

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) {
	f(ctx, ev)
}

type outbound struct {
	exhibition string
	data       []byte
}

// Manager handles WebSocket connection management and broadcasting.
//
// Invariants:
//   - clients map access always protected by clientsMutex
//   - a client's send channel is closed exactly once, by the hub
type Manager struct {
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex

	broadcast  chan outbound
	register   chan *Client
	unregister chan *websocket.Conn

	originValidator OriginValidator
	newLimiter      func() RateLimiter
	handler         Handler
	logger          logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	isShutdown   atomic.Bool
	done         chan struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithHandler sets the receiver of inbound events.
func WithHandler(h Handler) Option {
	return func(m *Manager) { m.handler = h }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = l.WithComponent("websocket") }
}

// WithClientRateLimit limits every client to limit messages per window.
func WithClientRateLimit(limit int, window time.Duration) Option {
	return func(m *Manager) {
		m.newLimiter = func() RateLimiter { return NewWindowLimiter(limit, window) }
	}
}

// NewManager creates a manager and starts its hub.
func NewManager(originValidator OriginValidator, opts ...Option) *Manager {
	if originValidator == nil {
		panic("websocket.NewManager: originValidator cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		clients:         make(map[*websocket.Conn]*Client),
		broadcast:       make(chan outbound, 256),
		register:        make(chan *Client, 32),
		unregister:      make(chan *websocket.Conn, 32),
		originValidator: originValidator,
		newLimiter:      func() RateLimiter { return NewWindowLimiter(100, time.Second) },
		logger:          logging.Nop(),
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.runHub()

	return m
}

// ServeHTTP upgrades the request and registers the client.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.isShutdown.Load() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	if origin := r.Header.Get("Origin"); origin != "" && !m.originValidator.IsAllowedOrigin(origin) {
		m.logger.Warn(r.Context(), nil, "WebSocket connection rejected: invalid origin",
			"origin", origin, "remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origins are checked above.
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionDisabled,
	})
	if err != nil {
		m.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	client := &Client{
		conn:        conn,
		send:        make(chan []byte, 256),
		exhibition:  strings.TrimSpace(r.URL.Query().Get("exhibition")),
		rateLimiter: m.newLimiter(),
	}

	select {
	case m.register <- client:
	case <-m.ctx.Done():
		_ = conn.Close(websocket.StatusServiceRestart, "Server shutting down")
		return
	}

	m.logger.Debug(r.Context(), "WebSocket client connected",
		"remote", r.RemoteAddr, "exhibition", client.exhibition)

	// The request context ends when ServeHTTP returns, so the client runs
	// on the manager's context.
	go m.handleClient(client)
}

func (m *Manager) runHub() {
	defer close(m.done)
	for {
		select {
		case client := <-m.register:
			m.clientsMutex.Lock()
			m.clients[client.conn] = client
			m.clientsMutex.Unlock()

		case conn := <-m.unregister:
			m.unregisterClient(conn)

		case msg := <-m.broadcast:
			m.broadcastToClients(msg)

		case <-m.ctx.Done():
			m.clientsMutex.Lock()
			for conn, client := range m.clients {
				close(client.send)
				_ = conn.Close(websocket.StatusGoingAway, "Server shutdown")
			}
			m.clients = make(map[*websocket.Conn]*Client)
			m.clientsMutex.Unlock()
			return
		}
	}
}

func (m *Manager) unregisterClient(conn *websocket.Conn) {
	m.clientsMutex.Lock()
	client, exists := m.clients[conn]
	if exists {
		delete(m.clients, conn)
		close(client.send)
	}
	m.clientsMutex.Unlock()

	if exists {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

func (m *Manager) broadcastToClients(msg outbound) {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	for conn, client := range m.clients {
		if client.exhibition != "" && msg.exhibition != "" && client.exhibition != msg.exhibition {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			// Slow client. The hub cannot block on itself, so hand the
			// unregister off.
			go m.requestUnregister(conn)
		}
	}
}

func (m *Manager) requestUnregister(conn *websocket.Conn) {
	select {
	case m.unregister <- conn:
	case <-m.ctx.Done():
	}
}

func (m *Manager) handleClient(client *Client) {
	defer m.requestUnregister(client.conn)

	go m.writeToClient(client)
	m.readFromClient(client)
}

func (m *Manager) readFromClient(client *Client) {
	for {
		ctx, cancel := context.WithTimeout(m.ctx, readTimeout)
		_, data, err := client.conn.Read(ctx)
		cancel()
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && m.ctx.Err() == nil {
				m.logger.Debug(m.ctx, "WebSocket read ended", "error", err.Error())
			}
			return
		}


		if client.rateLimiter != nil && !client.rateLimiter.Allow() {
			m.logger.Warn(m.ctx, nil, "WebSocket message rate limit exceeded")
			_ = client.conn.Close(websocket.StatusPolicyViolation, "rate limit exceeded")
			return
		}

		m.processClientMessage(client, data)
	}
}

func (m *Manager) writeToClient(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-client.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(m.ctx, writeTimeout)
			err := client.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				m.logger.Debug(m.ctx, "WebSocket write failed", "error", err.Error())
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(m.ctx, writeTimeout)
			err := client.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Manager) processClientMessage(client *Client, data []byte) {
	ev, err := ParseEvent(data)
	if err != nil {
		m.logger.Warn(m.ctx, err, "Dropping malformed WebSocket message", "bytes", len(data))
		return
	}
	if ev.Exhibition == "" {
		ev.Exhibition = client.exhibition
	}
	if m.handler != nil {
		m.handler.HandleEvent(m.ctx, ev)
	}
}

// ParseEvent decodes an inbound browser message.
func ParseEvent(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return Event{}, errors.ErrOption("message", "invalid JSON")
	}

	res := gjson.ParseBytes(data)
	ev := Event{
		Type:       res.Get("type").String(),
		Exhibition: res.Get("exhibition").String(),
	}

	switch ev.Type {
	case EventLoaded:
		ev.Source = res.Get("src").String()
	case EventMeasured:
		ev.Source = res.Get("src").String()
		height := res.Get("height")
		if !height.Exists() {
			return Event{}, errors.NewConfigError(errors.ErrCodeMissingOption, "measured event requires a height")
		}
		ev.Height = int(height.Int())
	case EventClick:
		ev.ID = res.Get("id").String()
		if ev.ID == "" {
			return Event{}, errors.NewConfigError(errors.ErrCodeMissingOption, "click event requires an id")
		}
	case EventEdit:
		ev.Editor = res.Get("editor").String()
		ev.Value = res.Get("value").String()
		if ev.Editor == "" {
			return Event{}, errors.NewConfigError(errors.ErrCodeMissingOption, "edit event requires an editor")
		}
	default:
		return Event{}, errors.ErrOption("type", ev.Type)
	}

	return ev, nil
}

// Broadcast queues msg for every client subscribed to msg.Exhibition.
func (m *Manager) Broadcast(msg UpdateMessage) error {
	if m.isShutdown.Load() {
		return errors.ErrDestroyed
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal broadcast message: %w", err)
	}

	select {
	case m.broadcast <- outbound{exhibition: msg.Exhibition, data: data}:
		return nil
	case <-m.ctx.Done():
		return errors.ErrDestroyed
	default:
		m.logger.Warn(m.ctx, nil, "Broadcast channel full, dropping message", "type", msg.Type)
		return errors.NewTransientError(errors.ErrCodeInternalError, "broadcast channel full", nil)
	}
}

// ConnectedClients returns the number of connected clients.
func (m *Manager) ConnectedClients() int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return len(m.clients)
}

// Shutdown closes every connection and stops the hub.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownOnce.Do(func() {
		m.isShutdown.Store(true)
		m.cancel()
	})

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsShutdown reports whether Shutdown has been called.
func (m *Manager) IsShutdown() bool {
	return m.isShutdown.Load()
}
