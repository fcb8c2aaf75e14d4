// internal/activate/activate.go
package activate

import (
	"context"
	"fmt"

	"github.com/chatdrop/chatdrop/api/schemas"
	"go.uber.org/zap"
)

// confirmKey is the key representing "confirm" on the located control.
const confirmKey = "Enter"

// Performer activates a located control by focusing it and sending the
// confirm key as a keydown/keyup pair.
type Performer struct {
	page   schemas.Page
	logger *zap.Logger
}

// New builds a Performer over the given page.
func New(page schemas.Page, logger *zap.Logger) *Performer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Performer{page: page, logger: logger.Named("activate")}
}

// Activate focuses the control and dispatches the confirm key pair. A
// dispatch failure is returned for the caller to record; whether the
// activation actually took effect is decided by subsequent observation of
// the document, not by the dispatch outcome.
func (p *Performer) Activate(ctx context.Context, control schemas.Control) error {
	p.logger.Debug("Activating control.", zap.String("selector", control.Selector), zap.String("text", control.Text))

	if err := p.page.Focus(ctx, control.Selector); err != nil {
		return fmt.Errorf("focusing control %q: %w", control.Selector, err)
	}
	if err := p.page.DispatchKey(ctx, confirmKey); err != nil {
		return fmt.Errorf("dispatching %s on control %q: %w", confirmKey, control.Selector, err)
	}
	return nil
}
