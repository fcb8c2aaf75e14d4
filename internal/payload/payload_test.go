// internal/payload/payload_test.go
package payload_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatdrop/chatdrop/api/schemas"
	"github.com/chatdrop/chatdrop/internal/payload"
)

func TestMaterialize_EncodesWholeContent(t *testing.T) {
	content := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}

	got, err := payload.Materialize(content, "photo.jpg", "image/jpeg", 1<<20)
	require.NoError(t, err)

	assert.Equal(t, "photo.jpg", got.Filename)
	assert.Equal(t, "image/jpeg", got.MimeType)
	assert.Equal(t, len(content), got.Size)

	decoded, err := base64.StdEncoding.DecodeString(got.Base64)
	require.NoError(t, err)
	assert.Equal(t, content, decoded)
	assert.WithinDuration(t, time.Now().UTC(), got.Modified, 5*time.Second)
}

func TestMaterialize_InfersMimeTypeWhenEmpty(t *testing.T) {
	got, err := payload.Materialize([]byte("x"), "shot.png", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.MimeType)
}

func TestMaterialize_RejectsEmptyContent(t *testing.T) {
	_, err := payload.Materialize(nil, "photo.jpg", "image/jpeg", 0)
	require.Error(t, err)
	assert.True(t, schemas.IsKind(err, schemas.KindConversion))
	assert.Contains(t, err.Error(), "photo.jpg")
}

func TestMaterialize_RejectsOversizedContent(t *testing.T) {
	_, err := payload.Materialize(make([]byte, 11), "big.jpg", "image/jpeg", 10)
	require.Error(t, err)
	assert.True(t, schemas.IsKind(err, schemas.KindConversion))
	assert.Contains(t, err.Error(), "11 bytes")
}

func TestMaterialize_RejectsBlankFilename(t *testing.T) {
	_, err := payload.Materialize([]byte("x"), "   ", "image/jpeg", 0)
	require.Error(t, err)
	assert.True(t, schemas.IsKind(err, schemas.KindConversion))
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "image/png", payload.DetectMimeType("a.png"))
	assert.Equal(t, "application/octet-stream", payload.DetectMimeType("a.qzx9"))
	assert.Equal(t, "application/octet-stream", payload.DetectMimeType("no-extension"))
}
