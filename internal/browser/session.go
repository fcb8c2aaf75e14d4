// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatdrop/chatdrop/api/schemas"
	"github.com/chatdrop/chatdrop/internal/config"
)

// Session owns one chromedp browser context for the lifetime of the bridge.
// It implements schemas.Page and schemas.MutationSource.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    config.BrowserConfig

	mu          sync.Mutex
	nextSubID   int
	subscribers map[int]subscription

	closeOnce sync.Once
}

var (
	_ schemas.Page           = (*Session)(nil)
	_ schemas.MutationSource = (*Session)(nil)
)

type subscription struct {
	scope schemas.MutationScope
	fn    func([]schemas.Mutation)
}

// NewSession attaches to a running browser when cfg.AttachURL is set, or
// launches one otherwise, and starts forwarding DOM change notifications.
func NewSession(parentCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()
	log := logger.Named("browser").With(zap.String("session_id", sessionID))

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.AttachURL != "" {
		log.Info("Attaching to running browser.", zap.String("url", cfg.AttachURL))
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(parentCtx, cfg.AttachURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
		)
		if cfg.UserDataDir != "" {
			opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
		}
		for _, arg := range cfg.Args {
			opts = append(opts, chromedp.Flag(arg, true))
		}
		log.Info("Launching browser.", zap.Bool("headless", cfg.Headless))
		allocCtx, allocCancel = chromedp.NewExecAllocator(parentCtx, opts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		browserCancel()
		allocCancel()
	}

	s := &Session{
		id:          sessionID,
		ctx:         browserCtx,
		cancel:      cancel,
		logger:      log,
		cfg:         cfg,
		subscribers: make(map[int]subscription),
	}

	// Enable the DOM domain and request the full piercing document so the
	// agent pushes structural and attribute events.
	if err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := dom.Enable().Do(ctx); err != nil {
				return err
			}
			_, err := dom.GetDocument().WithDepth(-1).WithPierce(true).Do(ctx)
			return err
		}),
	); err != nil {
		cancel()
		return nil, fmt.Errorf("enabling DOM notifications: %w", err)
	}

	s.listen()
	return s, nil
}

// Navigate loads the target application and waits for the body to render.
func (s *Session) Navigate(ctx context.Context, url string) error {
	timeout := s.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	s.logger.Info("Navigating.", zap.String("url", url))
	err := s.run(ctx, timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Close tears the browser context down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing browser session.")
		s.cancel()
	})
}

// run executes chromedp actions with a timeout, honoring both the
// operational context and the session context. The combined context derives
// from the session's (it carries the CDP target) and dies with either.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	combined, cancel := combineContext(s.ctx, ctx)
	defer cancel()
	runCtx, runCancel := context.WithTimeout(combined, timeout)
	defer runCancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.ctx.Err() != nil {
			return fmt.Errorf("browser session closed: %w", s.ctx.Err())
		}
		if runCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("browser action timed out after %v: %w", timeout, runCtx.Err())
		}
	}
	return err
}

// combineContext derives a context from primary (carrying CDP values) that
// is also canceled when secondary is.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
