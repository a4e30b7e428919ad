package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/google/uuid"
	"github.com/ysmood/gson"

	"github.com/garyohosu/translate-nudge/document"
)

// runtimeJS is an expression yielding the in-page identity table. Elements
// get ids through a WeakMap, so no attribute is written onto them, and ids
// resolve back through WeakRefs so removed elements can be collected.
const runtimeJS = `(window.__nudge ||= (() => {
	const ids = new WeakMap();
	const refs = new Map();
	let seq = 0;
	return {
		id(el) {
			let id = ids.get(el);
			if (!id) {
				id = 'n' + (++seq);
				ids.set(el, id);
				refs.set(id, new WeakRef(el));
			}
			return id;
		},
		get(id) {
			const ref = refs.get(id);
			const el = ref && ref.deref();
			if (!el) {
				refs.delete(id);
				return null;
			}
			return el.isConnected ? el : null;
		},
	};
})())`

var (
	queryJS = `(sel, attr) => {
		const rt = ` + runtimeJS + `;
		return Array.from(document.querySelectorAll(sel))
			.filter(el => !el.hasAttribute(attr))
			.map(el => ({ id: rt.id(el), text: el.innerText ?? el.textContent ?? '', html: el.outerHTML }));
	}`

	rootAttrJS = `(name) => {
		const v = document.documentElement.getAttribute(name);
		return v === null ? { ok: false, value: '' } : { ok: true, value: v };
	}`

	setRootAttrJS = `(name, value) => { document.documentElement.setAttribute(name, value); }`

	insertMarkerJS = `(parentID, markerID, attr, style) => {
		const parent = ` + runtimeJS + `.get(parentID);
		if (!parent) return false;
		const m = document.createElement('span');
		m.setAttribute(attr, markerID);
		m.style.cssText = style;
		m.textContent = ' ';
		parent.appendChild(m);
		return true;
	}`

	removeMarkerJS = `(markerID, attr) => {
		const m = document.querySelector('[' + attr + '="' + CSS.escape(markerID) + '"]');
		if (m) m.remove();
	}`

	dispatchEventJS = `(name) => { window.dispatchEvent(new Event(name)); }`
)

// Document is a document.Document backed by a live rod page.
type Document struct {
	page *rod.Page
}

var _ document.Document = (*Document)(nil)

// NewDocument wraps page.
func NewDocument(page *rod.Page) *Document {
	return &Document{page: page}
}

func (d *Document) eval(ctx context.Context, js string, args ...any) (gson.JSON, error) {
	res, err := d.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return gson.JSON{}, err
	}
	return res.Value, nil
}

// Query implements document.Document.
func (d *Document) Query(ctx context.Context, selector string) ([]document.Element, error) {
	v, err := d.eval(ctx, queryJS, selector, document.MarkerAttr)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	return decodeElements(v), nil
}

// decodeElements converts the query result array.
func decodeElements(v gson.JSON) []document.Element {
	arr := v.Arr()
	out := make([]document.Element, 0, len(arr))
	for _, item := range arr {
		id := item.Get("id")
		if id.Nil() || id.Str() == "" {
			continue
		}
		out = append(out, document.Element{
			ID:   id.Str(),
			Text: item.Get("text").Str(),
			HTML: item.Get("html").Str(),
		})
	}
	return out
}

// RootAttr implements document.Document.
func (d *Document) RootAttr(ctx context.Context, name string) (string, bool, error) {
	v, err := d.eval(ctx, rootAttrJS, name)
	if err != nil {
		return "", false, fmt.Errorf("browser: read root %s: %w", name, err)
	}
	return v.Get("value").Str(), v.Get("ok").Bool(), nil
}

// SetRootAttr implements document.Document.
func (d *Document) SetRootAttr(ctx context.Context, name, value string) error {
	if _, err := d.eval(ctx, setRootAttrJS, name, value); err != nil {
		return fmt.Errorf("browser: set root %s: %w", name, err)
	}
	return nil
}

// InsertMarker implements document.Document.
func (d *Document) InsertMarker(ctx context.Context, parentID string) (string, error) {
	markerID := uuid.NewString()
	v, err := d.eval(ctx, insertMarkerJS, parentID, markerID, document.MarkerAttr, document.MarkerStyle)
	if err != nil {
		return "", fmt.Errorf("browser: insert marker: %w", err)
	}
	if !v.Bool() {
		return "", fmt.Errorf("browser: insert marker into %s: %w", parentID, document.ErrNotFound)
	}
	return markerID, nil
}

// RemoveMarker implements document.Document.
func (d *Document) RemoveMarker(ctx context.Context, markerID string) error {
	if _, err := d.eval(ctx, removeMarkerJS, markerID, document.MarkerAttr); err != nil {
		return fmt.Errorf("browser: remove marker: %w", err)
	}
	return nil
}

// DispatchEvent implements document.Document.
func (d *Document) DispatchEvent(ctx context.Context, name string) error {
	if _, err := d.eval(ctx, dispatchEventJS, name); err != nil {
		return fmt.Errorf("browser: dispatch %s: %w", name, err)
	}
	return nil
}
