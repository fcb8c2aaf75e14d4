// -- cmd/upload.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chatdrop/chatdrop/api/schemas"
	"github.com/chatdrop/chatdrop/internal/browser"
	"github.com/chatdrop/chatdrop/internal/observability"
	"github.com/chatdrop/chatdrop/internal/orchestrator"
	"github.com/chatdrop/chatdrop/internal/payload"
)

var uploadMimeType string

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload one local photo into the active conversation.",
	Long: `Reads a local image, attaches to the browser, and runs a single upload
against the currently open conversation. The MIME type is inferred from the
file extension unless --mime-type is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		path := args[0]

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		filename := filepath.Base(path)
		mimeType := uploadMimeType
		if mimeType == "" {
			mimeType = payload.DetectMimeType(filename)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		session, err := browser.NewSession(ctx, cfg.Browser, logger)
		if err != nil {
			return fmt.Errorf("starting browser session: %w", err)
		}
		defer session.Close()

		orch := orchestrator.New(cfg.Upload, session, session, logger)
		result := orch.Upload(ctx, schemas.UploadJob{
			ID:       uuid.New().String(),
			Content:  content,
			Filename: filename,
			MimeType: mimeType,
		})

		if !result.Success {
			return fmt.Errorf("upload failed after %v: %s", result.Duration, result.Error)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s in %v\n", filename, result.Duration)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadMimeType, "mime-type", "", "MIME type of the file (default inferred from extension)")
	rootCmd.AddCommand(uploadCmd)
}
