// internal/sequencer/sequencer.go
// Emits the synthetic event sequence a real file drag-and-drop would
// produce, advancing between stages on observed document changes instead of
// fixed sleeps.
package sequencer

import (
	"context"
	"fmt"

	"github.com/chatdrop/chatdrop/api/schemas"
	"github.com/chatdrop/chatdrop/internal/await"
	"github.com/chatdrop/chatdrop/internal/config"
	"github.com/chatdrop/chatdrop/internal/locator"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// State names one stage of the drag-and-drop protocol.
type State string

const (
	StateIdle                 State = "idle"
	StateLocatingSurface      State = "locating_surface"
	StateEnteringSurface      State = "entering_surface"
	StateAwaitingRefinedTarget State = "awaiting_refined_target"
	StateHovering             State = "hovering"
	StateDropping             State = "dropping"
	StateCleanup              State = "cleanup"
	StateConfirmed            State = "confirmed"
)

// Sequencer drives the drag-and-drop state machine against one page.
type Sequencer struct {
	page     schemas.Page
	locator  *locator.Locator
	observer *await.Observer
	cfg      config.UploadConfig
	logger   *zap.Logger

	state State
}

// New builds a Sequencer. The payload must already be prepared on the page
// (schemas.Page.PrepareDropPayload) before Run is called.
func New(page schemas.Page, loc *locator.Locator, obs *await.Observer, cfg config.UploadConfig, logger *zap.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{
		page:     page,
		locator:  loc,
		observer: obs,
		cfg:      cfg,
		logger:   logger.Named("sequencer"),
		state:    StateIdle,
	}
}

// State returns the current stage.
func (s *Sequencer) State() State { return s.state }

func (s *Sequencer) transition(next State) {
	s.logger.Debug("Sequencer transition.", zap.String("from", string(s.state)), zap.String("to", string(next)))
	s.state = next
}

// Run executes the full sequence: locate the drop surface, enter it with
// the payload, optionally narrow to a refined drop target, sustain a hover,
// drop, leave, and wait for the confirmation overlay. A missing refined
// target is an optimization that never fails the run; a missing
// confirmation overlay means the drop was not accepted and is fatal.
func (s *Sequencer) Run(ctx context.Context) error {
	// Locate the drop surface. Nothing to interact with is fatal.
	s.transition(StateLocatingSurface)
	surface, err := s.locator.LocateSurface(ctx, s.cfg.SurfaceCandidates)
	if err != nil {
		return err
	}

	// Announce the drag to the surface.
	s.transition(StateEnteringSurface)
	if err := s.page.DispatchDragEvent(ctx, surface, schemas.DragEnter, true); err != nil {
		return fmt.Errorf("dispatching dragenter on %q: %w", surface, err)
	}

	// The page may reveal a narrower drop indicator in response to the
	// enter. Waiting for it is best-effort: on timeout the original
	// surface keeps serving as the target.
	s.transition(StateAwaitingRefinedTarget)
	target := surface
	if s.cfg.RefinedTargetSelector != "" {
		err := s.observer.ElementAppearance(ctx, s.page, s.cfg.RefinedTargetSelector, s.cfg.RefinedTargetTimeout)
		switch {
		case err == nil:
			target = s.cfg.RefinedTargetSelector
			s.logger.Debug("Refined drop target appeared.", zap.String("selector", target))
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			s.logger.Debug("Refined drop target did not appear; continuing on the surface.",
				zap.String("selector", s.cfg.RefinedTargetSelector), zap.Error(err))
		}
	}

	// Sustained hover: some targets only accept a drop after repeated
	// dragover events. Spacing comes from the limiter, not sleeps.
	s.transition(StateHovering)
	limiter := rate.NewLimiter(rate.Every(s.cfg.HoverInterval), 1)
	for i := 0; i < s.cfg.HoverEventCount; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := s.page.DispatchDragEvent(ctx, target, schemas.DragOver, true); err != nil {
			return fmt.Errorf("dispatching dragover %d/%d on %q: %w", i+1, s.cfg.HoverEventCount, target, err)
		}
	}

	s.transition(StateDropping)
	if err := s.page.DispatchDragEvent(ctx, target, schemas.Drop, true); err != nil {
		return fmt.Errorf("dispatching drop on %q: %w", target, err)
	}

	s.transition(StateCleanup)
	if err := s.page.DispatchDragEvent(ctx, target, schemas.DragLeave, false); err != nil {
		return fmt.Errorf("dispatching dragleave on %q: %w", target, err)
	}

	// Absence of the confirmation overlay means the drop was rejected.
	if err := s.observer.ElementAppearance(ctx, s.page, s.cfg.DialogSelector, s.cfg.ConfirmTimeout); err != nil {
		if schemas.IsKind(err, schemas.KindTimeout) {
			return schemas.WrapError(schemas.KindTimeout, err,
				"confirmation surface %q did not appear after drop", s.cfg.DialogSelector)
		}
		return fmt.Errorf("waiting for confirmation surface: %w", err)
	}

	s.transition(StateConfirmed)
	return nil
}
