package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/exhibit/internal/editor"
	"github.com/conneroisu/exhibit/internal/errors"
	"github.com/conneroisu/exhibit/internal/websocket"
)

// ExhibitionInfo describes a mounted exhibition.
type ExhibitionInfo struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	State   string   `json:"state"`
	Source  string   `json:"source,omitempty"`
	Editors []string `json:"editors"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	entries := s.entries()
	sections := make([]pageSection, 0, len(entries))
	for _, e := range entries {
		markup, err := e.root.Render()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		sections = append(sections, pageSection{
			Name:   e.name,
			Title:  e.title,
			Markup: markup,
			Source: e.surface.Source(),
			Height: e.surface.FrameHeight(),
		})
	}

	templ.Handler(hostPage("Exhibit", sections)).ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"exhibitions": len(s.entries()),
		"clients":     s.hub.ConnectedClients(),
		"timestamp":   time.Now(),
	})
}

func (s *Server) handleExhibitions(w http.ResponseWriter, r *http.Request) {
	entries := s.entries()
	infos := make([]ExhibitionInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, s.info(e))
	}
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	e, ok := s.lookup(name)
	if !ok {
		s.writeError(w, r, errors.ErrExhibitionNotFound(name))
		return
	}

	if err := e.exhibition.UpdatePreview(r.Context()); err != nil {
		s.reportError(r.Context(), name, err)
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.info(e))
}

func (s *Server) info(e *entry) ExhibitionInfo {
	info := ExhibitionInfo{
		Name:    e.name,
		Title:   e.title,
		State:   e.exhibition.Status().State().String(),
		Source:  e.surface.Source(),
		Editors: []string{},
	}
	for _, p := range e.exhibition.Editors() {
		if named, ok := p.(interface{ Name() string }); ok {
			info.Editors = append(info.Editors, named.Name())
		}
	}
	return info
}

// HandleEvent implements websocket.Handler.
func (s *Server) HandleEvent(ctx context.Context, ev websocket.Event) {
	e, ok := s.lookup(ev.Exhibition)
	if !ok {
		s.logger.Warn(ctx, errors.ErrExhibitionNotFound(ev.Exhibition), "Dropping browser event", "type", ev.Type)
		return
	}

	switch ev.Type {
	case websocket.EventLoaded:
		e.surface.Loaded(ev.Source)
	case websocket.EventMeasured:
		e.surface.Measured(ev.Source, ev.Height)
	case websocket.EventClick:
		e.root.Click(ctx, ev.ID)
	case websocket.EventEdit:
		if err := s.edit(e, ev.Editor, ev.Value); err != nil {
			s.reportError(ctx, e.name, err)
		}
	}
}

// edit replaces the value of an in-memory editor. The preview changes on
// the next update.
func (s *Server) edit(e *entry, name, value string) error {
	for _, p := range e.exhibition.Editors() {
		ed, ok := p.(*editor.Editor)
		if !ok || ed.Name() != name {
			continue
		}
		surface, ok := ed.Surface().(*editor.MemorySurface)
		if !ok {
			return errors.NewConfigError(errors.ErrCodeInvalidOption, "editor "+name+" is read-only").
				WithComponent("server")
		}
		return surface.SetValue(value)
	}
	return errors.NewConfigError(errors.ErrCodeInvalidOption, "unknown editor: "+name).
		WithComponent("server")
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.HasCode(err, errors.ErrCodeExhibitionNotFound):
		return http.StatusNotFound
	case errors.IsConfigError(err):
		return http.StatusBadRequest
	case errors.IsLifecycleError(err):
		return http.StatusConflict
	case errors.IsRetryable(err), errors.IsResourceError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), err, "Request failed", "path", r.URL.Path)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn(context.Background(), err, "Failed to encode JSON response")
	}
}
