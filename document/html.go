package document

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLDocument is an in-memory Document over a parsed HTML tree. Element
// identities live in a side table keyed by node, so queried elements are
// never modified. Entries are dropped when their node leaves the tree
// through Remove or SetText. It is safe for concurrent use.
type HTMLDocument struct {
	mu      sync.Mutex
	doc     *goquery.Document
	ids     map[*html.Node]string
	nodes   map[string]*html.Node
	markers map[string]*html.Node
	events  []string
	seq     uint64
}

// NewHTMLDocument parses r into an HTMLDocument.
func NewHTMLDocument(r io.Reader) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("document: parse: %w", err)
	}
	return &HTMLDocument{
		doc:     doc,
		ids:     make(map[*html.Node]string),
		nodes:   make(map[string]*html.Node),
		markers: make(map[string]*html.Node),
	}, nil
}

// ParseHTML is NewHTMLDocument over a string.
func ParseHTML(s string) (*HTMLDocument, error) {
	return NewHTMLDocument(strings.NewReader(s))
}

func (d *HTMLDocument) Query(_ context.Context, selector string) ([]Element, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("document: selector %q: %w", selector, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Element
	d.doc.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
		if _, isMarker := s.Attr(MarkerAttr); isMarker {
			return
		}
		outer, _ := goquery.OuterHtml(s)
		out = append(out, Element{
			ID:   d.identify(s.Get(0)),
			Text: strings.TrimSpace(s.Text()),
			HTML: outer,
		})
	})
	return out, nil
}

// identify returns the node's identity, assigning one on first sight.
// Caller must hold d.mu.
func (d *HTMLDocument) identify(n *html.Node) string {
	if id, ok := d.ids[n]; ok {
		return id
	}
	d.seq++
	id := "n" + strconv.FormatUint(d.seq, 10)
	d.ids[n] = id
	d.nodes[id] = n
	return id
}

func (d *HTMLDocument) RootAttr(_ context.Context, name string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	root := d.doc.Find("html").First()
	if root.Length() == 0 {
		return "", false, fmt.Errorf("%w: document element", ErrNotFound)
	}
	v, ok := root.Attr(name)
	return v, ok, nil
}

func (d *HTMLDocument) SetRootAttr(_ context.Context, name, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	root := d.doc.Find("html").First()
	if root.Length() == 0 {
		return fmt.Errorf("%w: document element", ErrNotFound)
	}
	root.SetAttr(name, value)
	return nil
}

func (d *HTMLDocument) InsertMarker(_ context.Context, parentID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	parent, ok := d.nodes[parentID]
	if !ok || !d.attached(parent) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, parentID)
	}

	id := uuid.NewString()
	marker := &html.Node{
		Type:     html.ElementNode,
		Data:     "span",
		DataAtom: atom.Span,
		Attr: []html.Attribute{
			{Key: MarkerAttr, Val: id},
			{Key: "style", Val: MarkerStyle},
		},
	}
	marker.AppendChild(&html.Node{Type: html.TextNode, Data: " "})
	parent.AppendChild(marker)
	d.markers[id] = marker
	return id, nil
}

func (d *HTMLDocument) RemoveMarker(_ context.Context, markerID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	marker, ok := d.markers[markerID]
	if !ok {
		return nil
	}
	delete(d.markers, markerID)
	if marker.Parent != nil {
		marker.Parent.RemoveChild(marker)
	}
	return nil
}

func (d *HTMLDocument) DispatchEvent(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, name)
	return nil
}

// attached reports whether n is still reachable from the document root.
// Caller must hold d.mu.
func (d *HTMLDocument) attached(n *html.Node) bool {
	root := d.doc.Get(0)
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// Append parses fragment and appends it to the first element matching
// parentSelector, the way new timeline content arrives. It reports how many
// top-level nodes were added and how many of those are elements.
func (d *HTMLDocument) Append(parentSelector, fragment string) (nodes, elements int, err error) {
	sel, err := cascadia.Compile(parentSelector)
	if err != nil {
		return 0, 0, fmt.Errorf("document: selector %q: %w", parentSelector, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	parent := d.doc.FindMatcher(sel).First()
	if parent.Length() == 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrNotFound, parentSelector)
	}
	ctxNode := parent.Get(0)
	added, err := html.ParseFragment(strings.NewReader(fragment), ctxNode)
	if err != nil {
		return 0, 0, fmt.Errorf("document: parse fragment: %w", err)
	}
	for _, n := range added {
		ctxNode.AppendChild(n)
		nodes++
		if n.Type == html.ElementNode {
			elements++
		}
	}
	return nodes, elements, nil
}

// Remove detaches every element matching selector and reports how many
// were removed.
func (d *HTMLDocument) Remove(selector string) (int, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return 0, fmt.Errorf("document: selector %q: %w", selector, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	matches := d.doc.FindMatcher(sel)
	n := matches.Length()
	for _, node := range matches.Nodes {
		d.forget(node)
	}
	matches.Remove()
	return n, nil
}

// forget drops n and its descendants from the side tables. Identities are
// never reassigned, so a stale id only stops resolving. Caller must hold
// d.mu.
func (d *HTMLDocument) forget(n *html.Node) {
	if id, ok := d.ids[n]; ok {
		delete(d.ids, n)
		delete(d.nodes, id)
	}
	for _, a := range n.Attr {
		if a.Key == MarkerAttr {
			delete(d.markers, a.Val)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.forget(c)
	}
}

// SetText replaces the text of every element matching selector.
func (d *HTMLDocument) SetText(selector, text string) error {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return fmt.Errorf("document: selector %q: %w", selector, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	matches := d.doc.FindMatcher(sel)
	for _, node := range matches.Nodes {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			d.forget(c)
		}
	}
	matches.SetText(text)
	return nil
}

// Markers returns how many inserted markers have not been removed.
func (d *HTMLDocument) Markers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.markers)
}

// Tracked returns how many elements currently hold an identity.
func (d *HTMLDocument) Tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.nodes)
}

// Events returns the synthetic events dispatched so far, in order.
func (d *HTMLDocument) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

// HTML renders the current tree.
func (d *HTMLDocument) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Html()
}
