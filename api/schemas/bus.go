// api/schemas/bus.go
// Wire types for the request/response bridge protocol.
package schemas

import jsoniter "github.com/json-iterator/go"

// Bus action names.
const (
	ActionPing        = "ping"
	ActionUploadPhoto = "uploadPhoto"
)

// Request is the envelope for one bridge request.
type Request struct {
	Action string              `json:"action"`
	Data   jsoniter.RawMessage `json:"data,omitempty"`
}

// UploadPhotoData is the payload of an uploadPhoto request. ArrayBuffer is
// standard base64 on the wire.
type UploadPhotoData struct {
	ArrayBuffer []byte `json:"arrayBuffer"`
	Filename    string `json:"filename"`
	MimeType    string `json:"mimeType"`
}

// Response is the envelope for one bridge response. Exactly one response is
// produced per request, on every path.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	// DurationMs is the orchestration elapsed time for uploadPhoto.
	DurationMs int64 `json:"duration,omitempty"`
}

// ResultResponse converts an UploadResult into its wire form.
func ResultResponse(res UploadResult) Response {
	return Response{
		Success:    res.Success,
		Error:      res.Error,
		DurationMs: res.Duration.Milliseconds(),
	}
}
