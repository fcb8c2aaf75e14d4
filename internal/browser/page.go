// internal/browser/page.go
// schemas.Page implementation over chromedp. Synthetic drag events are
// dispatched in-page: CDP input events cannot carry an in-memory file, so
// the payload is materialized into a DataTransfer once and referenced by
// every subsequent drag event.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/chatdrop/chatdrop/api/schemas"
)

const (
	evalTimeout     = 20 * time.Second
	dispatchTimeout = 10 * time.Second
)

// transferSlot is the window property holding the prepared DataTransfer.
const transferSlot = "__chatdropTransfer"

// Location returns the document's current URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, evalTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("reading location: %w", err)
	}
	return loc, nil
}

// SnapshotHTML returns the serialized outer HTML of the document.
func (s *Session) SnapshotHTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, evalTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading document snapshot: %w", err)
	}
	return html, nil
}

// ElementExists reports whether a node matching the selector exists.
func (s *Session) ElementExists(ctx context.Context, selector string) (bool, error) {
	script := fmt.Sprintf(`document.querySelector(%s) !== null`, jsonEncode(selector))
	var exists bool
	if err := s.evaluate(ctx, script, &exists); err != nil {
		return false, fmt.Errorf("probing selector %q: %w", selector, err)
	}
	return exists, nil
}

// ElementHasClass reports whether the first node matching the selector
// carries the given class marker.
func (s *Session) ElementHasClass(ctx context.Context, selector, class string) (bool, error) {
	script := fmt.Sprintf(`(function(sel, cls) {
		const el = document.querySelector(sel);
		return !!el && el.classList.contains(cls);
	})(%s, %s)`, jsonEncode(selector), jsonEncode(class))
	var has bool
	if err := s.evaluate(ctx, script, &has); err != nil {
		return false, fmt.Errorf("probing class %q on %q: %w", class, selector, err)
	}
	return has, nil
}

// VisibleControls enumerates interactive controls that currently have a
// rendered layout box, in document order. Each control is stamped with a
// stable marker attribute so it can be targeted later.
func (s *Session) VisibleControls(ctx context.Context) ([]schemas.Control, error) {
	script := `(function() {
		const out = [];
		let seq = 0;
		for (const el of document.querySelectorAll('button, [role="button"]')) {
			const rect = el.getBoundingClientRect();
			const style = window.getComputedStyle(el);
			const visible = rect.width > 0 && rect.height > 0 &&
				style.display !== 'none' && style.visibility !== 'hidden';
			if (!visible) continue;
			if (!el.hasAttribute('data-chatdrop-id')) {
				el.setAttribute('data-chatdrop-id', String(seq));
			}
			seq++;
			out.push({
				selector: '[data-chatdrop-id="' + el.getAttribute('data-chatdrop-id') + '"]',
				tagName: el.tagName,
				role: el.getAttribute('role') || '',
				text: (el.innerText || '').trim(),
				classes: Array.from(el.classList)
			});
		}
		return out;
	})()`

	var raw []struct {
		Selector string   `json:"selector"`
		TagName  string   `json:"tagName"`
		Role     string   `json:"role"`
		Text     string   `json:"text"`
		Classes  []string `json:"classes"`
	}
	if err := s.evaluate(ctx, script, &raw); err != nil {
		return nil, fmt.Errorf("enumerating controls: %w", err)
	}

	controls := make([]schemas.Control, 0, len(raw))
	for _, c := range raw {
		controls = append(controls, schemas.Control{
			Selector: c.Selector,
			TagName:  c.TagName,
			Role:     c.Role,
			Text:     c.Text,
			Classes:  c.Classes,
		})
	}
	return controls, nil
}

// PrepareDropPayload reconstructs the file inside the page and parks it in
// a DataTransfer for the drag events to reference.
func (s *Session) PrepareDropPayload(ctx context.Context, payload schemas.DropPayload) error {
	script := fmt.Sprintf(`(function(b64, name, type, modified) {
		const bin = atob(b64);
		const bytes = new Uint8Array(bin.length);
		for (let i = 0; i < bin.length; i++) bytes[i] = bin.charCodeAt(i);
		const file = new File([bytes], name, { type: type, lastModified: modified });
		const dt = new DataTransfer();
		dt.items.add(file);
		window[%s] = dt;
		return dt.files.length === 1;
	})(%s, %s, %s, %d)`,
		jsonEncode(transferSlot),
		jsonEncode(payload.Base64),
		jsonEncode(payload.Filename),
		jsonEncode(payload.MimeType),
		payload.Modified.UnixMilli())

	var ok bool
	if err := s.evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("installing drop payload: %w", err)
	}
	if !ok {
		return fmt.Errorf("drop payload did not materialize into a file")
	}
	s.logger.Debug("Drop payload prepared.", zap.String("filename", payload.Filename), zap.Int("size", payload.Size))
	return nil
}

// DispatchDragEvent dispatches one synthetic drag event carrying the
// prepared DataTransfer on the first node matching selector.
func (s *Session) DispatchDragEvent(ctx context.Context, selector string, kind schemas.DragEventKind, suppressDefault bool) error {
	script := fmt.Sprintf(`(function(sel, kind, suppress) {
		const el = document.querySelector(sel);
		if (!el) return false;
		const dt = window[%s];
		if (!dt) return false;
		const ev = new DragEvent(kind, { bubbles: true, cancelable: true, dataTransfer: dt });
		if (suppress) ev.preventDefault();
		el.dispatchEvent(ev);
		return true;
	})(%s, %s, %v)`,
		jsonEncode(transferSlot), jsonEncode(selector), jsonEncode(string(kind)), suppressDefault)

	var dispatched bool
	if err := s.evaluate(ctx, script, &dispatched); err != nil {
		return fmt.Errorf("dispatching %s on %q: %w", kind, selector, err)
	}
	if !dispatched {
		return fmt.Errorf("%s target %q or drop payload missing", kind, selector)
	}
	s.logger.Debug("Drag event dispatched.", zap.String("kind", string(kind)), zap.String("selector", selector))
	return nil
}

// Focus moves document focus to the first node matching selector.
func (s *Session) Focus(ctx context.Context, selector string) error {
	if err := s.run(ctx, dispatchTimeout, chromedp.Focus(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("focusing %q: %w", selector, err)
	}
	return nil
}

// DispatchKey sends a keydown/keyup pair for the named key to the focused
// element via raw CDP input events.
func (s *Session) DispatchKey(ctx context.Context, key string) error {
	keyDown := input.DispatchKeyEvent(input.KeyDown).WithKey(key)
	keyUp := input.DispatchKeyEvent(input.KeyUp).WithKey(key)

	if err := s.run(ctx, dispatchTimeout, keyDown, keyUp); err != nil {
		return fmt.Errorf("dispatching key %q: %w", key, err)
	}
	return nil
}

// evaluate runs a script and decodes its return value into out.
func (s *Session) evaluate(ctx context.Context, script string, out any) error {
	var raw json.RawMessage
	err := s.run(ctx, evalTimeout,
		chromedp.Evaluate(script, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
		}),
	)
	if err != nil {
		return err
	}
	if out == nil || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding script result: %w (payload: %s)", err, string(raw))
	}
	return nil
}

// jsonEncode safely encodes a value for embedding in a script.
func jsonEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
