// Package editor adapts an editing surface into a document alterer provider.
//
// An Editor is built in two phases. New resolves and validates its options
// without touching the surface; Initialize creates the surface and checks the
// cross-field rules. The alterer appends the current content to a preview
// document either as inline markup or as one generated element, depending on
// the language.
package editor

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/conneroisu/exhibit/internal/compiler"
	"github.com/conneroisu/exhibit/internal/document"
	"github.com/conneroisu/exhibit/internal/errors"
	"github.com/conneroisu/exhibit/internal/lifecycle"
	"github.com/conneroisu/exhibit/internal/logging"
	"github.com/conneroisu/exhibit/internal/options"
	"github.com/conneroisu/exhibit/internal/preview"
)

const component = "editor"

// Editor provides a document alterer backed by a Surface.
type Editor struct {
	name    string
	opts    Options
	kind    ValueType
	status  *lifecycle.Status
	alterer *preview.Alterer

	createSurface SurfaceCreator
	compiler      compiler.Service
	policy        compiler.Policy
	logger        logging.Logger

	surface Surface
	mu      sync.RWMutex
}

// Option configures the collaborators of an Editor.
type Option func(*Editor)

// WithName sets the name the editor is addressed by. It defaults to the
// language.
func WithName(name string) Option {
	return func(e *Editor) { e.name = name }
}

// WithSurfaceCreator replaces DefaultSurfaceCreator.
func WithSurfaceCreator(fn SurfaceCreator) Option {
	return func(e *Editor) { e.createSurface = fn }
}

// WithCompiler sets the service used to transpile typescript.
func WithCompiler(svc compiler.Service) Option {
	return func(e *Editor) { e.compiler = svc }
}

// WithPolicy overrides compiler.DefaultPolicy.
func WithPolicy(p compiler.Policy) Option {
	return func(e *Editor) { e.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// New validates the options and returns an uninitialized editor. persisted
// values are overridden by explicit ones.
func New(explicit, persisted options.Values, opts ...Option) (*Editor, error) {
	resolved, err := ResolveOptions(persisted, explicit)
	if err != nil {
		return nil, err
	}
	kind, _ := TypeFromLanguage(resolved.Language)

	e := &Editor{
		name:          resolved.Language,
		opts:          resolved,
		kind:          kind,
		status:        lifecycle.NewStatus(),
		createSurface: DefaultSurfaceCreator,
		policy:        compiler.DefaultPolicy(),
		logger:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent(component).With("editor", e.name)
	e.alterer = preview.NewAlterer(e.alterDocument)
	return e, nil
}

// NewFromFile creates an editor reading its content from path. The language
// defaults to the one implied by the file extension and front matter forms
// the persisted option layer.
func NewFromFile(path string, explicit options.Values, opts ...Option) (*Editor, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewResourceError(errors.ErrCodeModelUnavailable, "reading editor file").
			WithCause(err).
			WithContext("path", path)
	}
	front, _, err := ParseFrontMatter(content)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidOption, "editor file "+path).WithCause(err)
	}

	persisted := options.Values{}
	if lang, ok := languageFromExtension(strings.ToLower(filepath.Ext(path))); ok {
		persisted["language"] = lang
	}
	for k, v := range front {
		persisted[k] = v
	}

	opts = append([]Option{
		WithName(filepath.Base(path)),
		WithSurfaceCreator(FileSurfaceCreator(path)),
	}, opts...)
	return New(explicit, persisted, opts...)
}

// Name returns the editor name.
func (e *Editor) Name() string { return e.name }

// Options returns the resolved options.
func (e *Editor) Options() Options { return e.opts }

// Priority returns the alterer priority.
func (e *Editor) Priority() int { return e.opts.Priority }

// Status returns the lifecycle status.
func (e *Editor) Status() *lifecycle.Status { return e.status }

// DocumentAlterer returns the editor's alterer. Every call returns the same
// token.
func (e *Editor) DocumentAlterer() *preview.Alterer { return e.alterer }

// Surface returns the editing surface, or nil before initialization.
func (e *Editor) Surface() Surface {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.surface
}

// Initialize creates the surface. Calling it a second time fails.
func (e *Editor) Initialize(ctx context.Context) error {
	if e.status.IsInitialized() || e.status.IsGettingInitialized() {
		return errors.ErrAlreadyInitializedFor(component)
	}
	if err := e.status.Transition(lifecycle.Initializing); err != nil {
		return err
	}

	if err := e.initialize(ctx); err != nil {
		_ = e.status.Transition(lifecycle.Uninitialized)
		return err
	}

	e.logger.Debug(ctx, "Editor initialized", "language", e.opts.Language, "uri", e.Surface().URI().String())
	return e.status.Transition(lifecycle.Initialized)
}

func (e *Editor) initialize(ctx context.Context) error {
	if e.opts.TrimDefaultValue && e.opts.Value != "" {
		e.opts.Value = TrimDefaultValue(e.opts.Value)
	}

	if err := e.validate(); err != nil {
		return err
	}

	surface, err := e.createSurface(ctx, e.opts)
	if err != nil {
		return err
	}
	if surface == nil {
		return errors.NewResourceError(errors.ErrCodeModelUnavailable, "surface creator returned no surface")
	}

	e.mu.Lock()
	e.surface = surface
	e.mu.Unlock()
	return nil
}

func (e *Editor) validate() error {
	if e.opts.Language == "" {
		return errors.NewConfigError(errors.ErrCodeMissingOption, "missing language").WithComponent(component)
	}
	if !e.kind.IsSingleTag() && e.opts.TagAttributes != nil {
		return errors.ErrTagAttributes
	}
	if e.opts.Language == "typescript" && e.compiler == nil {
		return errors.NewConfigError(errors.ErrCodeMissingOption, "typescript editors require a compiler").
			WithComponent(component)
	}
	return nil
}

// Destroy detaches the surface model from the compiler and disposes the
// surface. Only the first call has any effect.
func (e *Editor) Destroy() error {
	if e.status.IsDestroyed() || e.status.IsGettingDestroyed() {
		return nil
	}
	if err := e.status.Transition(lifecycle.Destroying); err != nil {
		return err
	}

	e.mu.Lock()
	surface := e.surface
	e.surface = nil
	e.mu.Unlock()

	var err error
	if surface != nil {
		if d, ok := e.compiler.(compiler.Detacher); ok {
			d.Detach(surface.URI().String())
		}
		err = surface.Dispose()
	}
	if terr := e.status.Transition(lifecycle.Destroyed); terr != nil && err == nil {
		err = terr
	}
	return err
}

// content returns the text appended to the document.
func (e *Editor) content(ctx context.Context, surface Surface) (string, error) {
	if e.opts.Language == "typescript" {
		return compiler.RetrieveOutput(ctx, e.compiler, surface, e.policy)
	}
	return surface.Value()
}

func (e *Editor) alterDocument(ctx context.Context, doc *document.Document) error {
	surface := e.Surface()
	if surface == nil {
		return errors.NewLifecycleError(errors.ErrCodeNotInitialized, "editor surface is not available; is the editor initialized?").
			WithComponent(component)
	}

	content, err := e.content(ctx, surface)
	if err != nil {
		return err
	}

	if !e.kind.IsSingleTag() {
		return doc.AppendInnerHTML(e.opts.Location, content)
	}

	el := doc.CreateElement(e.kind.Tag())
	keys := make([]string, 0, len(e.opts.TagAttributes))
	for k := range e.opts.TagAttributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		document.SetAttribute(el, k, e.opts.TagAttributes[k])
	}
	if err := document.SetElementInnerHTML(el, content); err != nil {
		return err
	}
	return doc.AppendChild(e.opts.Location, el)
}
