package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/exhibit/internal/compiler"
	"github.com/conneroisu/exhibit/internal/config"
	"github.com/conneroisu/exhibit/internal/editor"
	"github.com/conneroisu/exhibit/internal/exhibition"
	"github.com/conneroisu/exhibit/internal/options"
	"github.com/conneroisu/exhibit/internal/preview"
)

// defaultTemplate is used by exhibitions without a template file.
const defaultTemplate = `<button type="button" data-js-exhibition-updater>Update preview</button>`

// entry is one mounted exhibition.
type entry struct {
	name       string
	title      string
	root       *exhibition.HTMLRoot
	surface    *SocketSurface
	exhibition *exhibition.Exhibition
	// files holds the absolute paths of the file backed editors.
	files []string
}

// policyFromConfig overrides the default retry policy with the configured
// positive values. Zero keeps the default; negative values never get here
// because validation rejects them.
func policyFromConfig(c config.CompilerConfig) compiler.Policy {
	p := compiler.DefaultPolicy()
	if c.WorkerAttempts > 0 {
		p.WorkerAttempts = c.WorkerAttempts
	}
	if c.WorkerDelay > 0 {
		p.WorkerDelay = c.WorkerDelay
	}
	if c.ProbeAttempts > 0 {
		p.ProbeAttempts = c.ProbeAttempts
	}
	if c.ProbeDelay > 0 {
		p.ProbeDelay = c.ProbeDelay
	}
	return p
}

// exhibitionOptions maps the preview section of the configuration onto
// exhibition options.
func (s *Server) exhibitionOptions(name string) (exhibition.Options, error) {
	pc := s.config.Preview
	layer := options.Values{"update_preview_on_init": pc.UpdatePreviewOnInit}
	if pc.UpdaterSelector != "" {
		layer["updater_selector"] = pc.UpdaterSelector
	}
	opts, err := exhibition.ResolveOptions(layer)
	if err != nil {
		return exhibition.Options{}, err
	}

	opts.Preview.UpdateHeight = pc.UpdateHeight
	if pc.SettleDelay > 0 {
		opts.Preview.SettleDelay = pc.SettleDelay
	}
	opts.Preview.ErrorHandler = func(err error) { s.reportError(context.Background(), name, err) }
	opts.ErrorHandler = func(err error) { s.reportError(context.Background(), name, err) }
	opts.Logger = s.logger
	return opts, nil
}

func (s *Server) editorOptions() []editor.Option {
	return []editor.Option{
		editor.WithCompiler(s.compiler),
		editor.WithPolicy(s.policy),
		editor.WithLogger(s.logger),
	}
}

// editorSource builds the editors found in the template markup followed by
// the configured editor files.
func (s *Server) editorSource(xc config.ExhibitionConfig) exhibition.EditorSource {
	fromMarkup := exhibition.ElementEditors(nil, s.editorOptions()...)
	return func(ctx context.Context, root exhibition.Root) ([]exhibition.Provider, error) {
		providers, err := fromMarkup(ctx, root)
		if err != nil {
			return nil, err
		}
		for _, path := range xc.Editors {
			e, err := editor.NewFromFile(path, nil, s.editorOptions()...)
			if err != nil {
				return nil, fmt.Errorf("exhibition %s: %w", xc.Name, err)
			}
			providers = append(providers, e)
		}
		return providers, nil
	}
}

func loadTemplate(xc config.ExhibitionConfig) (string, error) {
	if xc.Template == "" {
		return defaultTemplate, nil
	}
	data, err := os.ReadFile(xc.Template)
	if err != nil {
		return "", fmt.Errorf("reading template for %s: %w", xc.Name, err)
	}
	return string(data), nil
}

// build creates and initializes one exhibition on surface.
func (s *Server) build(ctx context.Context, xc config.ExhibitionConfig, surface preview.Surface, updateOnInit bool) (*exhibition.Exhibition, *exhibition.HTMLRoot, error) {
	markup, err := loadTemplate(xc)
	if err != nil {
		return nil, nil, err
	}
	root, err := exhibition.NewHTMLRoot(xc.Name, markup)
	if err != nil {
		return nil, nil, err
	}
	opts, err := s.exhibitionOptions(xc.Name)
	if err != nil {
		return nil, nil, err
	}

	m := exhibition.NewMap(
		s.editorSource(xc),
		true,
		func(exhibition.Root) (preview.Surface, error) { return surface, nil },
		s.store,
		opts,
	)
	x, err := exhibition.Create(ctx, root, m, exhibition.InitRequest{Init: true, UpdatePreview: updateOnInit})
	if err != nil {
		return nil, nil, err
	}
	return x, root, nil
}

// mount builds every configured exhibition. On failure the exhibitions
// already built are destroyed.
func (s *Server) mount(ctx context.Context) error {
	entries := make([]*entry, 0, len(s.config.Exhibitions))
	for _, xc := range s.config.Exhibitions {
		surface := NewSocketSurface(xc.Name, s.hub)
		x, root, err := s.build(ctx, xc, surface, s.config.Preview.UpdatePreviewOnInit)
		if err != nil {
			for _, e := range entries {
				_ = e.exhibition.Destroy()
			}
			return err
		}

		files := make([]string, 0, len(xc.Editors))
		for _, path := range xc.Editors {
			if abs, err := filepath.Abs(path); err == nil {
				files = append(files, abs)
			}
		}
		entries = append(entries, &entry{
			name:       xc.Name,
			title:      displayTitle(xc.Name, xc.Title),
			root:       root,
			surface:    surface,
			exhibition: x,
			files:      files,
		})
		s.logger.Info(ctx, "Exhibition mounted", "exhibition", xc.Name, "editors", len(x.Editors()))
	}

	s.exhibitionsMutex.Lock()
	s.exhibitions = entries
	s.exhibitionsMutex.Unlock()
	return nil
}

func (s *Server) lookup(name string) (*entry, bool) {
	s.exhibitionsMutex.RLock()
	defer s.exhibitionsMutex.RUnlock()
	for _, e := range s.exhibitions {
		if e.name == name {
			return e, true
		}
	}
	return nil, false
}

func (s *Server) entries() []*entry {
	s.exhibitionsMutex.RLock()
	defer s.exhibitionsMutex.RUnlock()
	return append([]*entry(nil), s.exhibitions...)
}
