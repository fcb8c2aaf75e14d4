// api/schemas/job.go
package schemas

import "time"

// UploadJob is one photo-upload request. It is immutable once created and
// consumed entirely within a single orchestration run; nothing is persisted.
type UploadJob struct {
	// ID identifies the job in logs and bus responses.
	ID string
	// Content is the raw binary file content.
	Content []byte
	// Filename is the name the file carries into the page.
	Filename string
	// MimeType is the declared media type, e.g. "image/jpeg".
	MimeType string
}

// UploadResult is the terminal value of one orchestration run. It is
// returned exactly once per job and never partially filled.
type UploadResult struct {
	Success bool
	// Error holds a human-readable description when Success is false.
	Error string
	// Duration is measured from job receipt to return, on every outcome.
	Duration time.Duration
}

// DropPayload is the materialized, transferable form of an UploadJob's
// content, ready to ride a synthetic drag-and-drop into the page.
type DropPayload struct {
	Filename string
	MimeType string
	// Base64 is the standard-encoded file content.
	Base64 string
	// Size is the decoded content length in bytes.
	Size int
	// Modified is the timestamp the synthetic File will carry.
	Modified time.Time
}
