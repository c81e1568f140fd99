package exhibition

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/conneroisu/exhibit/internal/document"
	"github.com/conneroisu/exhibit/internal/errors"
)

// Root is the markup an exhibition is mounted on.
type Root interface {
	// ID names the root.
	ID() string
	// QuerySelectorAll returns the descendants matching selector in
	// document order.
	QuerySelectorAll(selector string) ([]Element, error)
}

// Element is one node found under a Root.
type Element interface {
	ID() string
	Attribute(key string) (string, bool)
	// Text returns the concatenated text content.
	Text() string
	// OnClick binds fn to clicks on the element and returns a function
	// removing the binding.
	OnClick(fn func(ctx context.Context)) (unbind func())
}

// HTMLRoot is a Root over an x/net/html tree. Clicks are delivered with
// Click, addressed by element id; elements without an id get one when they
// are first bound.
type HTMLRoot struct {
	node *html.Node
	id   string
	d    *dispatcher
}

type binding struct {
	fn func(ctx context.Context)
}

// dispatcher is shared by a root and every scope taken from it.
type dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]*binding
	nextID   int
}

// ParseHTMLRoot parses a full document or a fragment.
func ParseHTMLRoot(r io.Reader) (*HTMLRoot, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidOption, "parsing root markup").WithCause(err)
	}
	return &HTMLRoot{
		node: doc,
		d:    &dispatcher{handlers: make(map[string][]*binding)},
	}, nil
}

// NewHTMLRoot parses markup and names the root id.
func NewHTMLRoot(id, markup string) (*HTMLRoot, error) {
	r, err := ParseHTMLRoot(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	r.id = id
	return r, nil
}

// ID implements Root.
func (r *HTMLRoot) ID() string { return r.id }

// QuerySelectorAll implements Root.
func (r *HTMLRoot) QuerySelectorAll(sel string) ([]Element, error) {
	nodes, err := r.query(sel)
	if err != nil {
		return nil, err
	}
	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = &htmlElement{node: n, d: r.d}
	}
	return out, nil
}

// Scope returns a root for every element matching sel, named by the element
// id. Scopes share the click dispatcher of r.
func (r *HTMLRoot) Scope(sel string) ([]*HTMLRoot, error) {
	nodes, err := r.query(sel)
	if err != nil {
		return nil, err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	out := make([]*HTMLRoot, len(nodes))
	for i, n := range nodes {
		id := (&htmlElement{node: n, d: r.d}).ensureID()
		out[i] = &HTMLRoot{node: n, id: id, d: r.d}
	}
	return out, nil
}

func (r *HTMLRoot) query(sel string) ([]*html.Node, error) {
	group, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidOption, "invalid selector").WithCause(err)
	}
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return cascadia.QueryAll(r.node, group), nil
}

// Click runs the handlers bound to the element with the given id and
// reports whether there were any.
func (r *HTMLRoot) Click(ctx context.Context, id string) bool {
	r.d.mu.RLock()
	bound := append([]*binding(nil), r.d.handlers[id]...)
	r.d.mu.RUnlock()

	for _, b := range bound {
		b.fn(ctx)
	}
	return len(bound) > 0
}

// Render serialises the root. A document root renders the children of its
// body so that it can be embedded into a host page.
func (r *HTMLRoot) Render() (string, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var buf bytes.Buffer
	if r.node.Type != html.DocumentNode {
		if err := html.Render(&buf, r.node); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	body := findBody(r.node)
	if body == nil {
		return "", nil
	}
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

type htmlElement struct {
	node *html.Node
	d    *dispatcher
}

func (e *htmlElement) ID() string {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return e.ensureID()
}

// ensureID must be called with the dispatcher lock held.
func (e *htmlElement) ensureID() string {
	if id, ok := document.GetAttribute(e.node, "id"); ok && id != "" {
		return id
	}
	e.d.nextID++
	id := fmt.Sprintf("exhibit-el-%d", e.d.nextID)
	document.SetAttribute(e.node, "id", id)
	return id
}

func (e *htmlElement) Attribute(key string) (string, bool) {
	e.d.mu.RLock()
	defer e.d.mu.RUnlock()
	return document.GetAttribute(e.node, key)
}

func (e *htmlElement) Text() string {
	e.d.mu.RLock()
	defer e.d.mu.RUnlock()

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return sb.String()
}

func (e *htmlElement) OnClick(fn func(ctx context.Context)) func() {
	b := &binding{fn: fn}

	e.d.mu.Lock()
	id := e.ensureID()
	e.d.handlers[id] = append(e.d.handlers[id], b)
	e.d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.d.mu.Lock()
			defer e.d.mu.Unlock()
			kept := e.d.handlers[id][:0]
			for _, other := range e.d.handlers[id] {
				if other != b {
					kept = append(kept, other)
				}
			}
			if len(kept) == 0 {
				delete(e.d.handlers, id)
			} else {
				e.d.handlers[id] = kept
			}
		})
	}
}
