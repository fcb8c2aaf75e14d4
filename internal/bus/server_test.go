// internal/bus/server_test.go
package bus_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chatdrop/chatdrop/api/schemas"
	"github.com/chatdrop/chatdrop/internal/bus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type fakeUploader struct {
	jobs   []schemas.UploadJob
	result schemas.UploadResult
	panics bool
}

func (f *fakeUploader) Upload(_ context.Context, job schemas.UploadJob) schemas.UploadResult {
	if f.panics {
		panic("uploader exploded")
	}
	f.jobs = append(f.jobs, job)
	return f.result
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, schemas.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp schemas.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "every request must get a decodable response")
	return rec, resp
}

func newHandler(t *testing.T, up *fakeUploader) http.Handler {
	t.Helper()
	return bus.NewServer(up, "1.2.3", zaptest.NewLogger(t)).Handler()
}

func TestRPC_Ping(t *testing.T) {
	rec, resp := post(t, newHandler(t, &fakeUploader{}), `{"action":"ping"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "1.2.3")
}

func TestRPC_UnknownAction(t *testing.T) {
	rec, resp := post(t, newHandler(t, &fakeUploader{}), `{"action":"foo"}`)

	assert.Equal(t, http.StatusOK, rec.Code, "an unknown action is still a well-formed exchange")
	assert.False(t, resp.Success)
	assert.Equal(t, "Unknown action: foo", resp.Error)
}

func TestRPC_MalformedJSON(t *testing.T) {
	rec, resp := post(t, newHandler(t, &fakeUploader{}), `{"action":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "malformed")
}

func TestRPC_RequiresPost(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/rpc", nil)
	rec := httptest.NewRecorder()
	newHandler(t, &fakeUploader{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRPC_UploadPhoto(t *testing.T) {
	up := &fakeUploader{result: schemas.UploadResult{Success: true, Duration: 1500 * time.Millisecond}}
	content := []byte{0x01, 0x02, 0x03}
	body := `{"action":"uploadPhoto","data":{"arrayBuffer":"` +
		base64.StdEncoding.EncodeToString(content) +
		`","filename":"cat.jpg","mimeType":"image/jpeg"}}`

	rec, resp := post(t, newHandler(t, up), body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(1500), resp.DurationMs)

	require.Len(t, up.jobs, 1)
	job := up.jobs[0]
	assert.Equal(t, content, job.Content)
	assert.Equal(t, "cat.jpg", job.Filename)
	assert.Equal(t, "image/jpeg", job.MimeType)
	assert.NotEmpty(t, job.ID)
}

func TestRPC_UploadPhotoFailureResult(t *testing.T) {
	up := &fakeUploader{result: schemas.UploadResult{Success: false, Error: "no drop surface found", Duration: 80 * time.Millisecond}}
	body := `{"action":"uploadPhoto","data":{"arrayBuffer":"AQ==","filename":"cat.jpg"}}`

	rec, resp := post(t, newHandler(t, up), body)

	assert.Equal(t, http.StatusOK, rec.Code, "an orchestration failure is a valid exchange")
	assert.False(t, resp.Success)
	assert.Equal(t, "no drop surface found", resp.Error)
	assert.Equal(t, int64(80), resp.DurationMs)
}

func TestRPC_UploadPhotoMissingFields(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no data", `{"action":"uploadPhoto"}`},
		{"empty buffer", `{"action":"uploadPhoto","data":{"arrayBuffer":"","filename":"cat.jpg"}}`},
		{"no filename", `{"action":"uploadPhoto","data":{"arrayBuffer":"AQ==","filename":"  "}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			up := &fakeUploader{}
			rec, resp := post(t, newHandler(t, up), tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
			assert.Empty(t, up.jobs, "invalid requests must not reach the uploader")
		})
	}
}

func TestRPC_PanicStillAnswers(t *testing.T) {
	up := &fakeUploader{panics: true}
	body := `{"action":"uploadPhoto","data":{"arrayBuffer":"AQ==","filename":"cat.jpg"}}`

	rec, resp := post(t, newHandler(t, up), body)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "internal error")
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	newHandler(t, &fakeUploader{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1.2.3")
}
