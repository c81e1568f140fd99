// Package server serves exhibitions over HTTP.
//
// The host page shows every configured exhibition with its markup and a
// preview frame. Frames load composed documents from the blob endpoint; a
// websocket pushes new sources and heights to the page and carries clicks,
// loads and edits back. File changes recompose the affected exhibitions.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/conneroisu/exhibit/internal/blob"
	"github.com/conneroisu/exhibit/internal/compiler"
	"github.com/conneroisu/exhibit/internal/config"
	"github.com/conneroisu/exhibit/internal/logging"
	"github.com/conneroisu/exhibit/internal/validation"
	"github.com/conneroisu/exhibit/internal/watcher"
	"github.com/conneroisu/exhibit/internal/websocket"
)

// Server serves exhibitions with live preview updates.
type Server struct {
	config   *config.Config
	logger   logging.Logger
	store    *blob.MemoryStore
	hub      *websocket.Manager
	compiler compiler.Service
	policy   compiler.Policy
	watcher  *watcher.FileWatcher

	exhibitions      []*entry
	exhibitionsMutex sync.RWMutex

	httpServer   *http.Server
	serverMutex  sync.Mutex
	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCompiler replaces the external compiler service built from the
// configuration.
func WithCompiler(svc compiler.Service) Option {
	return func(s *Server) { s.compiler = svc }
}

// New creates a server for cfg. Exhibitions are built by Start or Mount.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		config: cfg,
		logger: logging.Nop(),
		store:  blob.NewMemoryStore(cfg.Server.BlobPrefix),
		policy: policyFromConfig(cfg.Compiler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("server")

	if s.compiler == nil {
		s.compiler = compiler.NewExecService(cfg.Compiler.Command, cfg.Compiler.Args...)
	}

	origins := append(websocket.OriginList{cfg.Server.Host}, cfg.Server.AllowedOrigins...)
	s.hub = websocket.NewManager(origins,
		websocket.WithHandler(s),
		websocket.WithLogger(s.logger),
	)
	return s
}

// Mount starts the compiler and builds every configured exhibition.
func (s *Server) Mount(ctx context.Context) error {
	s.startCompiler(ctx)
	return s.mount(ctx)
}

func (s *Server) startCompiler(ctx context.Context) {
	starter, ok := s.compiler.(interface{ Start(context.Context) error })
	if !ok {
		return
	}
	if err := starter.Start(ctx); err != nil {
		// Typescript editors keep failing with "could not obtain worker"
		// until a compiler is installed.
		s.logger.Warn(ctx, err, "Compiler unavailable")
	}
}

// Start mounts the exhibitions, starts the file watcher and serves HTTP
// until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Mount(ctx); err != nil {
		return err
	}
	if err := s.setupFileWatcher(ctx); err != nil {
		s.logger.Warn(ctx, err, "File watcher disabled")
	}

	addr := s.config.Server.Address()
	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	if s.config.Server.Open {
		go s.openBrowser("http://" + addr)
	}

	s.logger.Info(ctx, "Serving exhibitions", "address", addr, "exhibitions", len(s.entries()))
	if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Handler returns the HTTP routes wrapped in the middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /exhibitions", s.handleExhibitions)
	mux.HandleFunc("POST /exhibitions/{name}/update", s.handleUpdate)
	mux.Handle(s.store.Prefix(), s.store)
	mux.Handle("/ws", s.hub)

	return s.addMiddleware(mux)
}

func (s *Server) setupFileWatcher(ctx context.Context) error {
	if !s.config.Watch.Enabled {
		return nil
	}

	var files []string
	for _, e := range s.entries() {
		files = append(files, e.files...)
	}
	if len(files) == 0 {
		return nil
	}

	fw, err := watcher.NewFileWatcher(s.config.Watch.Debounce, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	fw.AddFilter(watcher.NoTempFilter)
	fw.AddFilter(watcher.NoGitFilter)
	fw.AddFilter(watcher.IgnoreFilter(s.config.Watch.Ignore...))
	fw.AddHandler(s.handleFileChange)

	if err := fw.WatchFiles(files...); err != nil {
		_ = fw.Stop()
		return err
	}
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return err
	}
	s.watcher = fw
	return nil
}

// handleFileChange recomposes every exhibition using a changed file.
func (s *Server) handleFileChange(ctx context.Context, events []watcher.ChangeEvent) error {
	changed := make(map[string]bool, len(events))
	for _, ev := range events {
		s.logger.Debug(ctx, "File changed", "path", ev.Path, "type", ev.Type.String())
		changed[ev.Path] = true
	}

	var errs []error
	for _, e := range s.entries() {
		for _, f := range e.files {
			if !changed[f] {
				continue
			}
			if err := e.exhibition.UpdatePreview(ctx); err != nil {
				s.reportError(ctx, e.name, err)
				errs = append(errs, err)
			}
			break
		}
	}
	return stderrors.Join(errs...)
}

// reportError logs err and shows it on the exhibition's page section.
func (s *Server) reportError(ctx context.Context, name string, err error) {
	s.logger.Error(ctx, err, "Exhibition error", "exhibition", name)
	if berr := s.hub.Broadcast(websocket.UpdateMessage{
		Type:       websocket.MessageError,
		Exhibition: name,
		Content:    err.Error(),
	}); berr != nil {
		s.logger.Debug(ctx, "Error not delivered", "exhibition", name, "error", berr.Error())
	}
}

func (s *Server) openBrowser(target string) {
	time.Sleep(100 * time.Millisecond)

	u, err := validation.BrowserURL(target)
	if err != nil {
		s.logger.Warn(context.Background(), err, "Browser open failed due to invalid URL", "url", target)
		return
	}

	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", u.String()).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", u.String()).Start()
	case "darwin":
		err = exec.Command("open", u.String()).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	if err != nil {
		s.logger.Warn(context.Background(), err, "Failed to open browser")
	}
}

// Shutdown stops serving, destroys the exhibitions and closes every
// websocket connection.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	s.shutdownOnce.Do(func() {
		s.serverMutex.Lock()
		server := s.httpServer
		s.serverMutex.Unlock()
		if server != nil {
			if err := server.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}

		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				errs = append(errs, err)
			}
		}

		for _, e := range s.entries() {
			if err := e.exhibition.Destroy(); err != nil {
				errs = append(errs, fmt.Errorf("exhibition %s: %w", e.name, err))
			}
		}

		if err := s.hub.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}

		if stopper, ok := s.compiler.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	})

	return stderrors.Join(errs...)
}
