// File: internal/orchestrator/orchestrator.go
// Description: Top-level state machine for one photo upload. It owns the
// job for the duration of the run, executes every step strictly in
// sequence, and converts every fatal failure into a structured result; no
// error escapes this boundary.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/chatdrop/chatdrop/api/schemas"
	"github.com/chatdrop/chatdrop/internal/activate"
	"github.com/chatdrop/chatdrop/internal/await"
	"github.com/chatdrop/chatdrop/internal/config"
	"github.com/chatdrop/chatdrop/internal/locator"
	"github.com/chatdrop/chatdrop/internal/payload"
	"github.com/chatdrop/chatdrop/internal/sequencer"
)

// Orchestrator runs upload jobs against one target document. At most one
// job is in flight at a time; the admission gate rejects the rest.
type Orchestrator struct {
	cfg         config.UploadConfig
	page        schemas.Page
	source      schemas.MutationSource
	locator     *locator.Locator
	observer    *await.Observer
	performer   *activate.Performer
	classifiers []locator.Classifier
	gate        *semaphore.Weighted
	logger      *zap.Logger
}

// New wires an Orchestrator from its collaborators. The classifier order is
// the fallback order: primary/affirmative styling first, then anything that
// renders as a plain button.
func New(cfg config.UploadConfig, page schemas.Page, source schemas.MutationSource, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("orchestrator")
	return &Orchestrator{
		cfg:       cfg,
		page:      page,
		source:    source,
		locator:   locator.New(page, logger),
		observer:  await.NewObserver(source, logger),
		performer: activate.New(page, logger),
		classifiers: []locator.Classifier{
			locator.PrimaryClassifier(cfg.PrimaryMarkers),
			locator.GenericClassifier(cfg.GenericMarkers),
		},
		gate:   semaphore.NewWeighted(1),
		logger: logger,
	}
}

// Upload runs one job to completion and returns its result. Duration is
// measured from job receipt to return on every outcome.
func (o *Orchestrator) Upload(ctx context.Context, job schemas.UploadJob) schemas.UploadResult {
	started := time.Now()
	log := o.logger.With(zap.String("job_id", job.ID), zap.String("filename", job.Filename))

	fail := func(err error) schemas.UploadResult {
		log.Warn("Upload failed.", zap.String("kind", string(schemas.KindOf(err))), zap.Error(err))
		return schemas.UploadResult{Success: false, Error: err.Error(), Duration: time.Since(started)}
	}

	// Single-slot admission gate: a second job is rejected, not queued,
	// while one is mutating the document.
	if !o.gate.TryAcquire(1) {
		return fail(schemas.NewError(schemas.KindBusy, "an upload is already in flight"))
	}
	defer o.gate.Release(1)

	log.Info("Upload started.", zap.Int("size", len(job.Content)), zap.String("mime_type", job.MimeType))

	// 1. Environment precondition. Fails before any synthetic event is
	// dispatched; no partial side effects.
	if err := o.checkEnvironment(ctx); err != nil {
		return fail(err)
	}

	// 2. Materialize the payload and install it in the page.
	drop, err := payload.Materialize(job.Content, job.Filename, job.MimeType, o.cfg.MaxPayloadBytes)
	if err != nil {
		return fail(err)
	}
	if err := o.page.PrepareDropPayload(ctx, drop); err != nil {
		return fail(schemas.WrapError(schemas.KindConversion, err, "installing drop payload in page"))
	}

	// 3. Drag-and-drop sequence, confirmed by the overlay appearing.
	seq := sequencer.New(o.page, o.locator, o.observer, o.cfg, o.logger)
	if err := seq.Run(ctx); err != nil {
		return fail(err)
	}

	// 4. The overlay is up; wait for an activatable send control to render.
	err = await.Condition(ctx, func() (bool, error) {
		return o.locator.ControlAvailable(ctx, o.cfg.SendControlText, o.classifiers)
	}, o.cfg.ControlTimeout, o.cfg.PollInterval)
	if err != nil {
		if schemas.IsKind(err, schemas.KindTimeout) {
			return fail(schemas.WrapError(schemas.KindNotFound, err,
				"confirmation surface appeared but no %q control became activatable", o.cfg.SendControlText))
		}
		return fail(err)
	}

	// 5. Re-locate: the visible-control set may have shifted since the
	// wait's predicate last held.
	control, err := o.locator.LocateControl(ctx, o.cfg.SendControlText, o.classifiers)
	if err != nil {
		return fail(err)
	}

	// 6. Activate. A dispatch failure is recorded, not fatal; step 7's
	// observation of the document decides what actually happened.
	if err := o.performer.Activate(ctx, control); err != nil {
		log.Warn("Activation dispatch failed; relying on document state.", zap.Error(err))
	}

	// 7. Best-effort confirmation: the overlay closing means the send went
	// through. Not seeing it close does not fail the run.
	err = await.Condition(ctx, func() (bool, error) {
		open, err := o.page.ElementExists(ctx, o.cfg.DialogSelector)
		return !open, err
	}, o.cfg.CloseTimeout, o.cfg.PollInterval)
	if err != nil {
		log.Warn("Confirmation surface still visible after activation; reporting success without close confirmation.", zap.Error(err))
	}

	duration := time.Since(started)
	log.Info("Upload complete.", zap.Duration("duration", duration))
	return schemas.UploadResult{Success: true, Duration: duration}
}

// checkEnvironment verifies the document is the expected application with
// an active conversation: the location must contain the host marker and
// the snapshot must match at least one chat marker.
func (o *Orchestrator) checkEnvironment(ctx context.Context) error {
	location, err := o.page.Location(ctx)
	if err != nil {
		return schemas.WrapError(schemas.KindInvalidEnvironment, err, "reading document location")
	}
	if !strings.Contains(location, o.cfg.HostMarker) {
		return schemas.NewError(schemas.KindInvalidEnvironment,
			"invalid environment: location %q does not contain host marker %q", location, o.cfg.HostMarker)
	}

	snapshot, err := o.page.SnapshotHTML(ctx)
	if err != nil {
		return schemas.WrapError(schemas.KindInvalidEnvironment, err, "reading document snapshot")
	}
	doc, err := htmlquery.Parse(strings.NewReader(snapshot))
	if err != nil {
		return schemas.WrapError(schemas.KindInvalidEnvironment, err, "parsing document snapshot")
	}
	for _, marker := range o.cfg.ChatMarkers {
		nodes, err := htmlquery.QueryAll(doc, marker)
		if err != nil {
			o.logger.Warn("Skipping malformed chat marker.", zap.String("marker", marker), zap.Error(err))
			continue
		}
		if len(nodes) > 0 {
			return nil
		}
	}
	return schemas.NewError(schemas.KindInvalidEnvironment,
		"invalid environment: no active conversation marker matched the document")
}
