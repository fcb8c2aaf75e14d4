// -- cmd/serve.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chatdrop/chatdrop/internal/browser"
	"github.com/chatdrop/chatdrop/internal/bus"
	"github.com/chatdrop/chatdrop/internal/observability"
	"github.com/chatdrop/chatdrop/internal/orchestrator"
)

var serveNavigateURL string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload bridge until interrupted.",
	Long: `Attaches to (or launches) a browser, optionally navigates to the target
application, and serves the request/response bridge until SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		session, err := browser.NewSession(ctx, cfg.Browser, logger)
		if err != nil {
			return fmt.Errorf("starting browser session: %w", err)
		}
		defer session.Close()

		if serveNavigateURL != "" {
			if err := session.Navigate(ctx, serveNavigateURL); err != nil {
				return err
			}
		}

		orch := orchestrator.New(cfg.Upload, session, session, logger)
		server := &http.Server{
			Addr:    cfg.Bridge.ListenAddr,
			Handler: bus.NewServer(orch, Version, logger).Handler(),
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Bridge listening.", zap.String("addr", cfg.Bridge.ListenAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("bridge server failed: %w", err)
		case <-ctx.Done():
		}

		logger.Info("Shutting down bridge.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Bridge.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Bridge shutdown was not clean.", zap.Error(err))
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveNavigateURL, "navigate", "", "URL to open before serving (empty keeps the current tab)")
	rootCmd.AddCommand(serveCmd)
}
