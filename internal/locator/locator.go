// internal/locator/locator.go
// Finds the interaction surface and the confirm/send control in a document
// whose exact markup is not under our control. Candidates are tried in
// order; classification fallbacks are explicit; failures carry diagnostics.
package locator

import (
	"context"
	"fmt"
	"strings"

	"github.com/chatdrop/chatdrop/api/schemas"
	"go.uber.org/zap"
)

// Locator resolves candidate sets against the live document.
type Locator struct {
	page   schemas.Page
	logger *zap.Logger
}

// New builds a Locator over the given page.
func New(page schemas.Page, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{page: page, logger: logger.Named("locator")}
}

// LocateSurface tries each candidate selector in order against the current
// document and returns the first that matches an existing node. No match is
// a KindNotFound error; there is nothing to interact with.
func (l *Locator) LocateSurface(ctx context.Context, candidates []string) (string, error) {
	for _, selector := range candidates {
		ok, err := l.page.ElementExists(ctx, selector)
		if err != nil {
			return "", fmt.Errorf("probing surface candidate %q: %w", selector, err)
		}
		if ok {
			l.logger.Debug("Drop surface located.", zap.String("selector", selector))
			return selector, nil
		}
	}
	return "", schemas.NewError(schemas.KindNotFound,
		"no drop surface found; tried candidates %v", candidates)
}

// LocateControl finds the one control representing confirm/send. It
// enumerates currently-visible controls, keeps those whose text equals
// textMatch case-insensitively, then applies the classifiers in order as
// successive fallbacks. The first classifier yielding at least one match
// wins; ties within a classification break by document order. No match is
// a KindNotFound error carrying a listing of every visible control.
func (l *Locator) LocateControl(ctx context.Context, textMatch string, classifiers []Classifier) (schemas.Control, error) {
	controls, err := l.page.VisibleControls(ctx)
	if err != nil {
		return schemas.Control{}, fmt.Errorf("enumerating visible controls: %w", err)
	}

	var textMatched []schemas.Control
	for _, c := range controls {
		if strings.EqualFold(strings.TrimSpace(c.Text), textMatch) {
			textMatched = append(textMatched, c)
		}
	}

	for _, classifier := range classifiers {
		for _, c := range textMatched {
			if classifier.Match(c) {
				l.logger.Debug("Control located.",
					zap.String("text", textMatch),
					zap.String("classification", classifier.Name),
					zap.String("selector", c.Selector))
				return c, nil
			}
		}
	}

	return schemas.Control{}, schemas.NewError(schemas.KindNotFound,
		"no control with text %q matched any classification; visible controls: %s",
		textMatch, describeControls(controls))
}

// ControlAvailable reports whether LocateControl would currently succeed.
// It backs the orchestrator's bounded wait for the send control to render.
func (l *Locator) ControlAvailable(ctx context.Context, textMatch string, classifiers []Classifier) (bool, error) {
	_, err := l.LocateControl(ctx, textMatch, classifiers)
	if err != nil {
		if schemas.IsKind(err, schemas.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// describeControls renders the diagnostic listing attached to NotFound
// failures: every visible control's text and style markers.
func describeControls(controls []schemas.Control) string {
	if len(controls) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(controls))
	for _, c := range controls {
		parts = append(parts, fmt.Sprintf("%s[text=%q classes=%s role=%q]",
			c.TagName, c.Text, strings.Join(c.Classes, "."), c.Role))
	}
	return strings.Join(parts, ", ")
}
