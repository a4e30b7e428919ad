// Package document defines the narrow contract the action layer uses to
// read and perturb a live document, plus an in-memory implementation.
package document

import (
	"context"
	"errors"
)

// MarkerAttr tags marker nodes inserted by perturbations. Signal sources
// ignore mutations made of marker nodes only.
const MarkerAttr = "data-nudge-marker"

// MarkerStyle keeps a marker invisible and out of the way of input.
const MarkerStyle = "position:absolute;opacity:0;pointer-events:none;"

// ErrNotFound is returned when an identity no longer refers to an element
// attached to the document.
var ErrNotFound = errors.New("document: element not found")

// Element is a snapshot of one candidate element.
type Element struct {
	// ID is a stable identity assigned by the document the first time the
	// element is queried. It never changes for the element's lifetime.
	ID   string `json:"id"`
	Text string `json:"text"`
	HTML string `json:"-"`
}

// Document is everything the action layer may do to a document. Writes are
// limited to one root attribute, marker nodes, and synthetic events.
type Document interface {
	// Query returns a snapshot of the elements matching selector.
	Query(ctx context.Context, selector string) ([]Element, error)

	// RootAttr reads an attribute of the document element.
	RootAttr(ctx context.Context, name string) (value string, ok bool, err error)

	// SetRootAttr writes an attribute of the document element.
	SetRootAttr(ctx context.Context, name, value string) error

	// InsertMarker appends an invisible marker inside the element with the
	// given identity and returns the marker's identity.
	InsertMarker(ctx context.Context, parentID string) (markerID string, err error)

	// RemoveMarker removes a marker. Removing a marker that is already gone
	// (for example because its parent was removed) is not an error.
	RemoveMarker(ctx context.Context, markerID string) error

	// DispatchEvent fires a synthetic event on the window.
	DispatchEvent(ctx context.Context, name string) error
}
