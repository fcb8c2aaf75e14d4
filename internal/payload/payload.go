// internal/payload/payload.go
// Materializes an UploadJob's binary content into the transferable form a
// synthetic drag-and-drop can carry into the page.
package payload

import (
	"encoding/base64"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/chatdrop/chatdrop/api/schemas"
)

// Materialize wraps binary content plus metadata into a DropPayload with a
// current timestamp. It is a pure function: no page, no session, no
// external state. Content is encoded whole; nothing is truncated.
func Materialize(content []byte, filename, mimeType string, maxBytes int) (schemas.DropPayload, error) {
	if len(content) == 0 {
		return schemas.DropPayload{}, schemas.NewError(schemas.KindConversion, "cannot materialize empty content for %q", filename)
	}
	if maxBytes > 0 && len(content) > maxBytes {
		return schemas.DropPayload{}, schemas.NewError(schemas.KindConversion,
			"content for %q is %d bytes, exceeding the %d byte limit", filename, len(content), maxBytes)
	}
	if strings.TrimSpace(filename) == "" {
		return schemas.DropPayload{}, schemas.NewError(schemas.KindConversion, "filename must not be empty")
	}
	if mimeType == "" {
		mimeType = DetectMimeType(filename)
	}

	return schemas.DropPayload{
		Filename: filename,
		MimeType: mimeType,
		Base64:   base64.StdEncoding.EncodeToString(content),
		Size:     len(content),
		Modified: time.Now().UTC(),
	}, nil
}

// DetectMimeType infers a media type from the filename extension, falling
// back to a generic binary type.
func DetectMimeType(filename string) string {
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}
