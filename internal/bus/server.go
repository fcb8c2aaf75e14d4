// internal/bus/server.go
// HTTP request/response bridge. Every request gets exactly one response,
// on every path, including panics and malformed input.
package bus

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/chatdrop/chatdrop/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Uploader runs one upload job to completion. Implemented by the
// orchestrator; replaced by fakes in tests.
type Uploader interface {
	Upload(ctx context.Context, job schemas.UploadJob) schemas.UploadResult
}

// Server serves the bridge protocol over HTTP.
type Server struct {
	logger   *zap.Logger
	uploader Uploader
	version  string
}

// NewServer builds a bridge Server around the given uploader.
func NewServer(uploader Uploader, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger:   logger.Named("bus"),
		uploader: uploader,
		version:  version,
	}
}

// Handler returns the HTTP handler for the bridge endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{"status": "ok", "version": s.version})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	// The bridge contract is one response per request, no exceptions:
	// an internal panic still answers.
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Recovered from panic in RPC handler.", zap.Any("panic", rec))
			s.respond(w, http.StatusInternalServerError, schemas.Response{
				Success: false,
				Error:   fmt.Sprintf("internal error: %v", rec),
			})
		}
	}()

	if r.Method != http.MethodPost {
		s.respond(w, http.StatusMethodNotAllowed, schemas.Response{
			Success: false,
			Error:   "rpc requires POST",
		})
		return
	}

	var req schemas.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, schemas.Response{
			Success: false,
			Error:   fmt.Sprintf("malformed request: %v", err),
		})
		return
	}

	s.logger.Debug("Bridge request.", zap.String("action", req.Action))

	switch req.Action {
	case schemas.ActionPing:
		s.respond(w, http.StatusOK, schemas.Response{
			Success: true,
			Message: "chatdrop bridge " + s.version,
		})

	case schemas.ActionUploadPhoto:
		s.handleUploadPhoto(w, r, req)

	default:
		s.respond(w, http.StatusOK, schemas.Response{
			Success: false,
			Error:   "Unknown action: " + req.Action,
		})
	}
}

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request, req schemas.Request) {
	var data schemas.UploadPhotoData
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &data); err != nil {
			s.respond(w, http.StatusBadRequest, schemas.Response{
				Success: false,
				Error:   fmt.Sprintf("malformed uploadPhoto data: %v", err),
			})
			return
		}
	}
	if err := validateUpload(data); err != nil {
		s.respond(w, http.StatusBadRequest, schemas.Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	job := schemas.UploadJob{
		ID:       uuid.New().String(),
		Content:  data.ArrayBuffer,
		Filename: data.Filename,
		MimeType: data.MimeType,
	}
	s.logger.Info("Dispatching upload job.", zap.String("job_id", job.ID), zap.String("filename", job.Filename))

	result := s.uploader.Upload(r.Context(), job)
	s.respond(w, http.StatusOK, schemas.ResultResponse(result))
}

func validateUpload(data schemas.UploadPhotoData) error {
	if len(data.ArrayBuffer) == 0 {
		return schemas.NewError(schemas.KindValidation, "uploadPhoto requires a non-empty arrayBuffer")
	}
	if strings.TrimSpace(data.Filename) == "" {
		return schemas.NewError(schemas.KindValidation, "uploadPhoto requires a filename")
	}
	return nil
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode bridge response.", zap.Error(err))
	}
}
