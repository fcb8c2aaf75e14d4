// api/schemas/browser.go
// Browser-facing contracts. The concrete implementation lives in
// internal/browser (chromedp); tests substitute fakes.
package schemas

import "context"

// DragEventKind names one synthetic drag event type.
type DragEventKind string

const (
	DragEnter DragEventKind = "dragenter"
	DragOver  DragEventKind = "dragover"
	Drop      DragEventKind = "drop"
	DragLeave DragEventKind = "dragleave"
)

// Control describes one currently-visible interactive control. Visibility
// means the element had a rendered layout box when enumerated.
type Control struct {
	// Selector uniquely targets the control for focus/dispatch.
	Selector string
	// TagName is the upper-cased element tag, e.g. "BUTTON".
	TagName string
	// Role is the ARIA role attribute, if any.
	Role string
	// Text is the trimmed rendered text content.
	Text string
	// Classes are the element's style class names.
	Classes []string
}

// Page is the minimal surface the upload pipeline needs from the target
// document. Every method takes the operational context and may be called
// only while the underlying session is alive.
type Page interface {
	// Location returns the document's current URL.
	Location(ctx context.Context) (string, error)

	// SnapshotHTML returns the serialized outer HTML of the document.
	SnapshotHTML(ctx context.Context) (string, error)

	// ElementExists reports whether a node matching the CSS selector
	// exists in the document right now.
	ElementExists(ctx context.Context, selector string) (bool, error)

	// ElementHasClass reports whether the first node matching the selector
	// currently carries the given class marker.
	ElementHasClass(ctx context.Context, selector, class string) (bool, error)

	// VisibleControls enumerates the interactive controls that currently
	// have a rendered layout box, in document order.
	VisibleControls(ctx context.Context) ([]Control, error)

	// PrepareDropPayload installs the materialized file in the page so
	// subsequent drag events can reference it.
	PrepareDropPayload(ctx context.Context, payload DropPayload) error

	// DispatchDragEvent dispatches one synthetic drag event carrying the
	// prepared payload on the element matching selector. When
	// suppressDefault is set, default handling is cancelled so the step
	// takes effect.
	DispatchDragEvent(ctx context.Context, selector string, kind DragEventKind, suppressDefault bool) error

	// Focus moves document focus to the element matching selector.
	Focus(ctx context.Context, selector string) error

	// DispatchKey sends a keydown/keyup pair for the named key to the
	// focused element.
	DispatchKey(ctx context.Context, key string) error
}

// MutationKind classifies one change notification.
type MutationKind string

const (
	// MutationChildAdded reports a structural insertion.
	MutationChildAdded MutationKind = "child_added"
	// MutationChildRemoved reports a structural removal.
	MutationChildRemoved MutationKind = "child_removed"
	// MutationAttribute reports an attribute value change.
	MutationAttribute MutationKind = "attribute"
)

// Mutation is one change notification from the observed document.
type Mutation struct {
	Kind MutationKind
	// Attribute is the changed attribute name for MutationAttribute.
	Attribute string
	// Value is the new attribute value, if applicable.
	Value string
}

// MutationScope restricts which notifications a subscription receives.
type MutationScope struct {
	// Selector roots the observation; empty observes the whole document.
	Selector string
	// Subtree watches descendants, not just the root node.
	Subtree bool
	// Structural includes insertions and removals.
	Structural bool
	// Attributes is an allow-list of attribute names to watch; empty with
	// Structural unset watches nothing and is invalid.
	Attributes []string
}

// MutationSource delivers change-notification batches for a scope.
// Subscribe returns a release function that must be called exactly once;
// after release no further batches are delivered.
type MutationSource interface {
	Subscribe(scope MutationScope, fn func(batch []Mutation)) (release func(), err error)
}
