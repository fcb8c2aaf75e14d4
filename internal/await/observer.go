// internal/await/observer.go
package await

import (
	"context"
	"fmt"
	"time"

	"github.com/chatdrop/chatdrop/api/schemas"
	"go.uber.org/zap"
)

// Observer resolves predicates off change notifications instead of polling.
// A timeout still bounds every wait: the watched document may simply never
// produce the expected mutation (incompatible markup version, for one).
type Observer struct {
	src    schemas.MutationSource
	logger *zap.Logger
}

// NewObserver builds an Observer over the given notification source.
func NewObserver(src schemas.MutationSource, logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{src: src, logger: logger.Named("observer")}
}

// Wait resolves the first time pred reports true, re-evaluating it on each
// notification batch for scope. If pred is already true at call time it
// resolves immediately without subscribing. The subscription is released
// exactly once on every exit path.
func (o *Observer) Wait(ctx context.Context, scope schemas.MutationScope, pred Predicate, timeout time.Duration) error {
	if timeout <= 0 {
		return schemas.NewError(schemas.KindValidation, "wait timeout must be > 0, got %v", timeout)
	}
	if !scope.Structural && len(scope.Attributes) == 0 {
		return schemas.NewError(schemas.KindValidation, "mutation scope watches nothing")
	}

	ok, err := pred()
	if err != nil {
		return fmt.Errorf("observe predicate failed: %w", err)
	}
	if ok {
		return nil
	}

	// Coalescing signal: batches arriving while a predicate check is in
	// flight collapse into one pending re-check.
	notify := make(chan struct{}, 1)
	release, err := o.src.Subscribe(scope, func(batch []schemas.Mutation) {
		if len(batch) == 0 {
			return
		}
		select {
		case notify <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to change notifications: %w", err)
	}
	defer release()

	// A batch may have landed between the first check and the subscribe;
	// re-check so it cannot be missed.
	ok, err = pred()
	if err != nil {
		return fmt.Errorf("observe predicate failed: %w", err)
	}
	if ok {
		return nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return schemas.NewError(schemas.KindTimeout, "no matching change within %v", timeout)
		case <-notify:
			ok, err := pred()
			if err != nil {
				return fmt.Errorf("observe predicate failed: %w", err)
			}
			if ok {
				return nil
			}
		}
	}
}

// ElementAppearance resolves once a node matching selector exists in the
// document, driven by structural notifications over the whole subtree.
func (o *Observer) ElementAppearance(ctx context.Context, page schemas.Page, selector string, timeout time.Duration) error {
	o.logger.Debug("Waiting for element to appear.", zap.String("selector", selector), zap.Duration("timeout", timeout))
	scope := schemas.MutationScope{Subtree: true, Structural: true}
	return o.Wait(ctx, scope, func() (bool, error) {
		return page.ElementExists(ctx, selector)
	}, timeout)
}

// ClassAppearance resolves once the node matching selector carries the
// given class marker, driven by class attribute notifications on that node.
func (o *Observer) ClassAppearance(ctx context.Context, page schemas.Page, selector, class string, timeout time.Duration) error {
	o.logger.Debug("Waiting for class marker.", zap.String("selector", selector), zap.String("class", class), zap.Duration("timeout", timeout))
	scope := schemas.MutationScope{Selector: selector, Attributes: []string{"class"}}
	return o.Wait(ctx, scope, func() (bool, error) {
		return page.ElementHasClass(ctx, selector, class)
	}, timeout)
}
