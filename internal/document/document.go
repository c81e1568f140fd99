// Package document provides the in-memory HTML document that alterers mutate
// during a preview update.
//
// A Document always has html, head and body elements. It is built on the
// golang.org/x/net/html node tree so that markup fragments are parsed with the
// same rules a browser applies to innerHTML assignments.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Doctype is prepended to every rendered document.
const Doctype = "<!DOCTYPE html>\n"

// Location names a document section that content can be inserted into.
type Location string

const (
	Head Location = "head"
	Body Location = "body"
)

// Valid reports whether l names a known section.
func (l Location) Valid() bool {
	return l == Head || l == Body
}

// Document is a mutable HTML document.
type Document struct {
	root *html.Node
	html *html.Node
	head *html.Node
	body *html.Node
}

// Factory creates the empty documents used by each preview update.
type Factory func() (*Document, error)

// DefaultFactory returns New.
func DefaultFactory() (*Document, error) {
	return New(), nil
}

// New returns an empty document: <html><head></head><body></body></html>.
func New() *Document {
	root := &html.Node{Type: html.DocumentNode}
	htmlEl := newElement("html")
	head := newElement("head")
	body := newElement("body")

	root.AppendChild(htmlEl)
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)

	return &Document{root: root, html: htmlEl, head: head, body: body}
}

// Section returns the head or body element.
func (d *Document) Section(loc Location) (*html.Node, error) {
	switch loc {
	case Head:
		return d.head, nil
	case Body:
		return d.body, nil
	default:
		return nil, fmt.Errorf("unknown document location %q", loc)
	}
}

// Head returns the head element.
func (d *Document) Head() *html.Node { return d.head }

// Body returns the body element.
func (d *Document) Body() *html.Node { return d.body }

// CreateElement returns a detached element with the given tag name.
func (d *Document) CreateElement(tag string) *html.Node {
	return newElement(strings.ToLower(tag))
}

// SetAttribute sets or replaces an attribute on an element.
func SetAttribute(el *html.Node, key, value string) {
	for i := range el.Attr {
		if el.Attr[i].Namespace == "" && el.Attr[i].Key == key {
			el.Attr[i].Val = value
			return
		}
	}
	el.Attr = append(el.Attr, html.Attribute{Key: key, Val: value})
}

// GetAttribute returns the value of an attribute and whether it was present.
func GetAttribute(el *html.Node, key string) (string, bool) {
	for _, a := range el.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetElementInnerHTML replaces the children of el. Raw text elements such as
// script and style receive the markup verbatim as a single text node.
func SetElementInnerHTML(el *html.Node, markup string) error {
	removeChildren(el)

	if isRawText(el) {
		if markup != "" {
			el.AppendChild(&html.Node{Type: html.TextNode, Data: markup})
		}
		return nil
	}

	nodes, err := html.ParseFragment(strings.NewReader(markup), el)
	if err != nil {
		return fmt.Errorf("parsing fragment: %w", err)
	}
	for _, n := range nodes {
		el.AppendChild(n)
	}
	return nil
}

// ElementInnerHTML serialises the children of el.
func ElementInnerHTML(el *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// SetInnerHTML replaces the content of a section.
func (d *Document) SetInnerHTML(loc Location, markup string) error {
	section, err := d.Section(loc)
	if err != nil {
		return err
	}
	return SetElementInnerHTML(section, markup)
}

// InnerHTML serialises the content of a section.
func (d *Document) InnerHTML(loc Location) (string, error) {
	section, err := d.Section(loc)
	if err != nil {
		return "", err
	}
	return ElementInnerHTML(section)
}

// AppendInnerHTML behaves like `section.innerHTML += markup`: the existing
// content is serialised, concatenated with markup and parsed again.
func (d *Document) AppendInnerHTML(loc Location, markup string) error {
	current, err := d.InnerHTML(loc)
	if err != nil {
		return err
	}
	return d.SetInnerHTML(loc, current+markup)
}

// AppendChild appends a detached node to a section.
func (d *Document) AppendChild(loc Location, n *html.Node) error {
	section, err := d.Section(loc)
	if err != nil {
		return err
	}
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	section.AppendChild(n)
	return nil
}

// Render serialises the whole document including the doctype.
func (d *Document) Render() (string, error) {
	var buf bytes.Buffer
	buf.WriteString(Doctype)
	if err := html.Render(&buf, d.html); err != nil {
		return "", fmt.Errorf("rendering document: %w", err)
	}
	return buf.String(), nil
}

func newElement(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func isRawText(n *html.Node) bool {
	return n.DataAtom == atom.Script || n.DataAtom == atom.Style
}
