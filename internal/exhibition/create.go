package exhibition

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/conneroisu/exhibit/internal/blob"
	"github.com/conneroisu/exhibit/internal/editor"
	"github.com/conneroisu/exhibit/internal/errors"
	"github.com/conneroisu/exhibit/internal/options"
	"github.com/conneroisu/exhibit/internal/preview"
)

// EditorSource builds the editors of an exhibition from its root.
type EditorSource func(ctx context.Context, root Root) ([]Provider, error)

// SurfaceSource creates the preview surface of an exhibition.
type SurfaceSource func(root Root) (preview.Surface, error)

// Map holds the dependencies Create wires into each exhibition.
type Map struct {
	// Editors is nil when editors are added by the caller.
	Editors EditorSource
	Surface SurfaceSource
	Store   blob.Store
	Options Options
}

// InitRequest controls what Create does after construction.
type InitRequest struct {
	Init          bool
	UpdatePreview bool
}

// Validate rejects an update request without initialization.
func (r InitRequest) Validate() error {
	if r.UpdatePreview && !r.Init {
		return errors.ErrInitRequest
	}
	return nil
}

// NewMap returns a map using source for editors. When initEditors is false
// the source is dropped and editors must be added with AddEditor.
func NewMap(source EditorSource, initEditors bool, surface SurfaceSource, store blob.Store, opts Options) Map {
	m := Map{Surface: surface, Store: store, Options: opts}
	if initEditors {
		m.Editors = source
	}
	return m
}

// MapWithEditors returns a map whose editors are built from the elements
// matching DefaultEditorSelector. Each element's JSON options attribute and
// text form the persisted layer; editorOpts is the explicit layer shared by
// all of them.
func MapWithEditors(editorOpts options.Values, initEditors bool, surface SurfaceSource, store blob.Store, opts Options, extra ...editor.Option) Map {
	return NewMap(ElementEditors(editorOpts, extra...), initEditors, surface, store, opts)
}

// ElementEditors builds editors from the editor elements under a root.
func ElementEditors(editorOpts options.Values, extra ...editor.Option) EditorSource {
	return func(ctx context.Context, root Root) ([]Provider, error) {
		elements, err := root.QuerySelectorAll(DefaultEditorSelector)
		if err != nil {
			return nil, err
		}

		out := make([]Provider, 0, len(elements))
		for _, el := range elements {
			persisted, err := elementOptions(el)
			if err != nil {
				return nil, err
			}
			opts := append([]editor.Option{editor.WithName(el.ID())}, extra...)
			e, err := editor.New(editorOpts, persisted, opts...)
			if err != nil {
				return nil, fmt.Errorf("editor %s: %w", el.ID(), err)
			}
			out = append(out, e)
		}
		return out, nil
	}
}

func elementOptions(el Element) (options.Values, error) {
	persisted := options.Values{}
	if text := el.Text(); strings.TrimSpace(text) != "" {
		persisted["value"] = text
	}

	raw, ok := el.Attribute(OptionsAttribute)
	if !ok || strings.TrimSpace(raw) == "" {
		return persisted, nil
	}
	if !gjson.Valid(raw) {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidOption, "invalid JSON in "+OptionsAttribute).
			WithContext("element", el.ID())
	}
	parsed, ok := gjson.Parse(raw).Value().(map[string]interface{})
	if !ok {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidOption, OptionsAttribute+" must hold an object").
			WithContext("element", el.ID())
	}
	for k, v := range parsed {
		persisted[k] = v
	}
	return persisted, nil
}

// Create builds an exhibition on root and, when requested, initializes it.
// With Init set, req.UpdatePreview decides whether initialization publishes
// the first preview.
func Create(ctx context.Context, root Root, m Map, req InitRequest) (*Exhibition, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return create(ctx, root, m, req)
}

func create(ctx context.Context, root Root, m Map, req InitRequest) (*Exhibition, error) {
	if m.Surface == nil {
		return nil, errors.ErrSurfaceUnavailable
	}
	surface, err := m.Surface(root)
	if err != nil {
		return nil, err
	}

	var editors []Provider
	if m.Editors != nil {
		if editors, err = m.Editors(ctx, root); err != nil {
			return nil, err
		}
	}

	opts := m.Options
	if req.Init {
		opts.UpdatePreviewOnInit = req.UpdatePreview
	}

	x, err := New(root, surface, m.Store, opts, editors...)
	if err != nil {
		return nil, err
	}
	if req.Init {
		if err := x.Initialize(ctx); err != nil {
			return nil, err
		}
	}
	return x, nil
}

// CreateMultiple creates an exhibition for every element under root carrying
// attribute. If one fails, the ones already created are destroyed.
func CreateMultiple(ctx context.Context, root *HTMLRoot, attribute string, m Map, req InitRequest) ([]*Exhibition, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if attribute == "" {
		attribute = DefaultAttribute
	}

	scopes, err := root.Scope("[" + attribute + "]")
	if err != nil {
		return nil, err
	}

	out := make([]*Exhibition, 0, len(scopes))
	for _, scope := range scopes {
		x, err := create(ctx, scope, m, req)
		if err != nil {
			for _, created := range out {
				_ = created.Destroy()
			}
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}
