// Package exhibition coordinates editors and the preview composer.
//
// An Exhibition registers the alterer of every editor with its composer,
// initializes editors that are not yet initialized and binds update triggers
// found under its root. Destroy tears everything down and is terminal.
package exhibition

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/conneroisu/exhibit/internal/blob"
	"github.com/conneroisu/exhibit/internal/errors"
	"github.com/conneroisu/exhibit/internal/lifecycle"
	"github.com/conneroisu/exhibit/internal/logging"
	"github.com/conneroisu/exhibit/internal/preview"
)

const component = "exhibition"

// Provider contributes one alterer to an exhibition.
type Provider interface {
	DocumentAlterer() *preview.Alterer
	Priority() int
	Status() *lifecycle.Status
	Initialize(ctx context.Context) error
	Destroy() error
}

// Exhibition owns a composer and an ordered editor registry.
type Exhibition struct {
	root     Root
	composer *preview.Composer
	options  Options
	status   *lifecycle.Status
	logger   logging.Logger

	editors      []Provider
	editorsMutex sync.RWMutex

	unbind []func()
}

// New creates an uninitialized exhibition. The alterers of editors are
// registered immediately.
func New(root Root, surface preview.Surface, store blob.Store, opts Options, editors ...Provider) (*Exhibition, error) {
	if root == nil {
		return nil, errors.NewResourceError(errors.ErrCodeSurfaceUnavailable, "exhibition root is not available")
	}
	composer, err := preview.New(surface, store, opts.Preview)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	x := &Exhibition{
		root:     root,
		composer: composer,
		options:  opts,
		status:   lifecycle.NewStatus(),
		logger:   logger.WithComponent(component).With("exhibition", root.ID()),
	}
	for _, e := range editors {
		x.addEditor(e)
	}
	return x, nil
}

// Name returns the id of the root.
func (x *Exhibition) Name() string { return x.root.ID() }

// Status returns the lifecycle status.
func (x *Exhibition) Status() *lifecycle.Status { return x.status }

// Preview returns the composer.
func (x *Exhibition) Preview() *preview.Composer { return x.composer }

// Editors returns a snapshot of the registry.
func (x *Exhibition) Editors() []Provider {
	x.editorsMutex.RLock()
	defer x.editorsMutex.RUnlock()
	return append([]Provider(nil), x.editors...)
}

// Initialize initializes pending editors, registers their alterers, binds the
// update triggers and optionally publishes the first preview. When any step
// fails the exhibition is destroyed before the error is returned.
func (x *Exhibition) Initialize(ctx context.Context) (err error) {
	if x.status.IsInitialized() {
		return errors.ErrAlreadyInitializedFor(component)
	}
	if err := x.status.Transition(lifecycle.Initializing); err != nil {
		return err
	}

	op := logging.StartOperation(x.logger, "initialize")
	defer func() {
		if err != nil {
			op.EndWithError(ctx, err)
			if derr := x.Destroy(); derr != nil {
				x.logger.Warn(ctx, derr, "Destroy after failed initialization")
			}
			return
		}
		op.End(ctx)
	}()

	for _, e := range x.Editors() {
		st := e.Status()
		if !st.IsInitialized() && !st.IsGettingInitialized() {
			if err := e.Initialize(ctx); err != nil {
				return err
			}
		}
		if !x.composer.HasDocumentAlterer(e.DocumentAlterer()) {
			x.composer.AddDocumentAlterer(e.DocumentAlterer(), e.Priority())
		}
	}

	sel := x.options.UpdaterSelector
	if sel == "" {
		sel = DefaultUpdaterSelector
	}
	triggers, err := x.root.QuerySelectorAll(sel)
	if err != nil {
		return err
	}
	for _, t := range triggers {
		x.unbind = append(x.unbind, t.OnClick(x.onTrigger))
	}

	if x.options.UpdatePreviewOnInit {
		if err := x.composer.Update(ctx); err != nil {
			return err
		}
	}

	return x.status.Transition(lifecycle.Initialized)
}

func (x *Exhibition) onTrigger(ctx context.Context) {
	if err := x.UpdatePreview(ctx); err != nil {
		x.logger.Error(ctx, err, "Preview update failed")
		if x.options.ErrorHandler != nil {
			x.options.ErrorHandler(err)
		}
	}
}

// AddEditor registers an editor and its alterer. Editors added to an
// initialized exhibition are initialized here and only registered when that
// succeeds.
func (x *Exhibition) AddEditor(ctx context.Context, e Provider) error {
	if x.status.IsDestroyed() || x.status.IsGettingDestroyed() {
		return errors.ErrDestroyed
	}
	if x.status.IsInitialized() {
		st := e.Status()
		if !st.IsInitialized() && !st.IsGettingInitialized() {
			if err := e.Initialize(ctx); err != nil {
				return err
			}
		}
	}
	x.addEditor(e)
	return nil
}

func (x *Exhibition) addEditor(e Provider) {
	x.editorsMutex.Lock()
	defer x.editorsMutex.Unlock()

	for _, existing := range x.editors {
		if existing == e {
			return
		}
	}
	x.editors = append(x.editors, e)
	x.composer.AddDocumentAlterer(e.DocumentAlterer(), e.Priority())
}

// RemoveEditor unregisters an editor and its alterer. The editor is not
// destroyed.
func (x *Exhibition) RemoveEditor(e Provider) {
	x.editorsMutex.Lock()
	defer x.editorsMutex.Unlock()

	for i, existing := range x.editors {
		if existing == e {
			x.editors = append(x.editors[:i], x.editors[i+1:]...)
			break
		}
	}
	x.composer.RemoveDocumentAlterer(e.DocumentAlterer())
}

// HasEditor reports whether e is registered.
func (x *Exhibition) HasEditor(e Provider) bool {
	x.editorsMutex.RLock()
	defer x.editorsMutex.RUnlock()

	for _, existing := range x.editors {
		if existing == e {
			return true
		}
	}
	return false
}

// AddPreviewAlterer registers an alterer that does not belong to an editor.
func (x *Exhibition) AddPreviewAlterer(a *preview.Alterer, priority int) {
	x.composer.AddDocumentAlterer(a, priority)
}

// UpdatePreview recomposes and publishes the preview.
func (x *Exhibition) UpdatePreview(ctx context.Context) error {
	if x.status.IsDestroyed() || x.status.IsGettingDestroyed() {
		return errors.ErrDestroyed
	}
	if !x.status.IsInitialized() {
		return errors.NewLifecycleError(errors.ErrCodeNotInitialized, "exhibition is not initialized").
			WithComponent(component)
	}

	op := logging.StartOperation(x.logger, "update")
	if err := x.composer.Update(ctx); err != nil {
		op.EndWithError(ctx, err)
		return err
	}
	op.End(ctx)
	return nil
}

// Destroy unbinds the triggers, destroys every editor and closes the
// composer. Later calls do nothing.
func (x *Exhibition) Destroy() error {
	if x.status.IsDestroyed() || x.status.IsGettingDestroyed() {
		return nil
	}
	if err := x.status.Transition(lifecycle.Destroying); err != nil {
		return err
	}

	for _, unbind := range x.unbind {
		unbind()
	}
	x.unbind = nil

	var errs []error
	for _, e := range x.Editors() {
		if err := e.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	x.composer.Close()

	if err := x.status.Transition(lifecycle.Destroyed); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}
