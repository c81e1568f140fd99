// Package preview composes the preview document from registered alterers and
// publishes it to a render surface.
//
// Each Update builds a fresh document, runs every alterer in priority order
// (higher priority first, stable for equal priorities), renders the result and
// publishes it through a new blob handle. The previous handle is revoked once
// the new one exists, so at most one handle is live per composer.
package preview

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/exhibit/internal/blob"
	"github.com/conneroisu/exhibit/internal/document"
	"github.com/conneroisu/exhibit/internal/errors"
)

// AltererFunc mutates the supplied document in place.
type AltererFunc func(ctx context.Context, doc *document.Document) error

// Alterer is a registration token wrapping an AltererFunc. Composers compare
// alterers by pointer, so registering the same token twice has no effect
// while two tokens wrapping the same function are distinct.
type Alterer struct {
	fn AltererFunc
}

// NewAlterer wraps fn in a new token.
func NewAlterer(fn AltererFunc) *Alterer {
	return &Alterer{fn: fn}
}

// Alter runs the wrapped function.
func (a *Alterer) Alter(ctx context.Context, doc *document.Document) error {
	if a == nil || a.fn == nil {
		return nil
	}
	return a.fn(ctx, doc)
}

type altererRecord struct {
	alterer  *Alterer
	priority int
}

// Surface is the display that shows published documents.
type Surface interface {
	// SetSource points the surface at a new resource URL.
	SetSource(ctx context.Context, url string) error
	// OnLoad registers a one-shot callback fired when the surface has
	// loaded the most recent source.
	OnLoad(fn func())
	// ContentHeight returns the rendered content height in pixels.
	ContentHeight(ctx context.Context) (int, error)
	// SetHeight resizes the surface.
	SetHeight(ctx context.Context, px int) error
}

// Composer owns the alterer records and the live render handle.
type Composer struct {
	surface Surface
	store   blob.Store
	options Options

	records      []altererRecord
	recordsMutex sync.RWMutex

	// updateMutex serialises Update so alterers never run concurrently.
	updateMutex sync.Mutex

	current     blob.Handle
	settleTimer *time.Timer
	stateMutex  sync.Mutex
}

// New creates a composer publishing to surface through store.
func New(surface Surface, store blob.Store, opts Options) (*Composer, error) {
	if surface == nil {
		return nil, errors.ErrSurfaceUnavailable
	}
	if store == nil {
		return nil, errors.NewResourceError(errors.ErrCodeSurfaceUnavailable, "resource store is not available")
	}
	if opts.DocumentFactory == nil {
		opts.DocumentFactory = document.DefaultFactory
	}

	return &Composer{
		surface: surface,
		store:   store,
		options: opts,
	}, nil
}

// AddDocumentAlterer registers an alterer. Registering a token that is
// already present is a no-op and keeps the original priority.
func (c *Composer) AddDocumentAlterer(a *Alterer, priority int) {
	if a == nil {
		return
	}

	c.recordsMutex.Lock()
	defer c.recordsMutex.Unlock()

	for _, r := range c.records {
		if r.alterer == a {
			return
		}
	}
	c.records = append(c.records, altererRecord{alterer: a, priority: priority})
}

// HasDocumentAlterer reports whether the token is registered.
func (c *Composer) HasDocumentAlterer(a *Alterer) bool {
	c.recordsMutex.RLock()
	defer c.recordsMutex.RUnlock()

	for _, r := range c.records {
		if r.alterer == a {
			return true
		}
	}
	return false
}

// RemoveDocumentAlterer removes every record of the token.
func (c *Composer) RemoveDocumentAlterer(a *Alterer) {
	c.recordsMutex.Lock()
	defer c.recordsMutex.Unlock()

	kept := c.records[:0]
	for _, r := range c.records {
		if r.alterer != a {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < len(c.records); i++ {
		c.records[i] = altererRecord{}
	}
	c.records = kept
}

// Len returns the number of registered alterers.
func (c *Composer) Len() int {
	c.recordsMutex.RLock()
	defer c.recordsMutex.RUnlock()
	return len(c.records)
}

// sortedRecords sorts the records by descending priority and returns a copy
// so alterers may register or remove tokens while an update runs.
func (c *Composer) sortedRecords() []altererRecord {
	c.recordsMutex.Lock()
	defer c.recordsMutex.Unlock()

	sort.SliceStable(c.records, func(i, j int) bool {
		return c.records[i].priority > c.records[j].priority
	})

	out := make([]altererRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Update composes a fresh document and publishes it. When an alterer fails
// the error is returned and nothing is published; the previous handle stays
// live.
func (c *Composer) Update(ctx context.Context) error {
	c.updateMutex.Lock()
	defer c.updateMutex.Unlock()

	doc, err := c.options.DocumentFactory()
	if err != nil {
		return errors.NewResourceError(errors.ErrCodeSurfaceUnavailable, "creating document").WithCause(err)
	}

	for i, r := range c.sortedRecords() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.alterer.Alter(ctx, doc); err != nil {
			return fmt.Errorf("document alterer %d (priority %d): %w", i, r.priority, err)
		}
	}

	markup, err := doc.Render()
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeCompositionFailed, "rendering preview document", err)
	}

	handle, err := c.store.Create([]byte(markup), blob.HTMLContentType)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeCompositionFailed, "publishing preview document", err)
	}

	c.stateMutex.Lock()
	previous := c.current
	c.current = handle
	if c.settleTimer != nil {
		c.settleTimer.Stop()
		c.settleTimer = nil
	}
	c.stateMutex.Unlock()

	if !previous.IsZero() {
		c.store.Revoke(previous)
	}

	c.surface.OnLoad(c.onSurfaceLoad)
	return c.surface.SetSource(ctx, handle.URL)
}

// onSurfaceLoad waits for the settle delay and then fits the surface to
// its content.
func (c *Composer) onSurfaceLoad() {
	if !c.options.UpdateHeight {
		return
	}

	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()

	if c.settleTimer != nil {
		c.settleTimer.Stop()
	}
	c.settleTimer = time.AfterFunc(c.options.SettleDelay, func() {
		ctx := context.Background()
		var err error
		if c.options.HeightUpdater != nil {
			err = c.options.HeightUpdater(ctx, c)
		} else {
			err = c.UpdateHeight(ctx)
		}
		if err != nil && c.options.ErrorHandler != nil {
			c.options.ErrorHandler(err)
		}
	})
}

// UpdateHeight resizes the surface to the height of its rendered content.
func (c *Composer) UpdateHeight(ctx context.Context) error {
	height, err := c.surface.ContentHeight(ctx)
	if err != nil {
		return err
	}
	return c.surface.SetHeight(ctx, height)
}

// CurrentHandle returns the live handle, or the zero handle before the first
// successful update.
func (c *Composer) CurrentHandle() blob.Handle {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	return c.current
}

// Close stops any pending height update and revokes the live handle.
func (c *Composer) Close() {
	c.stateMutex.Lock()
	current := c.current
	c.current = blob.Handle{}
	if c.settleTimer != nil {
		c.settleTimer.Stop()
		c.settleTimer = nil
	}
	c.stateMutex.Unlock()

	if !current.IsZero() {
		c.store.Revoke(current)
	}
}
