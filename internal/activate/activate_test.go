// internal/activate/activate_test.go
package activate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chatdrop/chatdrop/api/schemas"
	"github.com/chatdrop/chatdrop/internal/activate"
)

type keyPage struct {
	schemas.Page

	focused  []string
	keys     []string
	focusErr error
	keyErr   error
}

func (p *keyPage) Focus(_ context.Context, selector string) error {
	if p.focusErr != nil {
		return p.focusErr
	}
	p.focused = append(p.focused, selector)
	return nil
}

func (p *keyPage) DispatchKey(_ context.Context, key string) error {
	if p.keyErr != nil {
		return p.keyErr
	}
	p.keys = append(p.keys, key)
	return nil
}

func TestActivate_FocusesThenConfirms(t *testing.T) {
	page := &keyPage{}
	perf := activate.New(page, zaptest.NewLogger(t))

	err := perf.Activate(context.Background(), schemas.Control{Selector: "#send", Text: "Send"})
	require.NoError(t, err)
	assert.Equal(t, []string{"#send"}, page.focused)
	assert.Equal(t, []string{"Enter"}, page.keys)
}

func TestActivate_FocusFailureSkipsTheKey(t *testing.T) {
	page := &keyPage{focusErr: errors.New("node detached")}
	perf := activate.New(page, zaptest.NewLogger(t))

	err := perf.Activate(context.Background(), schemas.Control{Selector: "#send"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#send")
	assert.Empty(t, page.keys, "no key may be sent to an unfocused control")
}

func TestActivate_KeyDispatchFailure(t *testing.T) {
	page := &keyPage{keyErr: errors.New("input domain unavailable")}
	perf := activate.New(page, zaptest.NewLogger(t))

	err := perf.Activate(context.Background(), schemas.Control{Selector: "#send"})
	require.Error(t, err)
	assert.Equal(t, []string{"#send"}, page.focused)
}
