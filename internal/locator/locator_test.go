// internal/locator/locator_test.go
package locator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chatdrop/chatdrop/api/schemas"
	"github.com/chatdrop/chatdrop/internal/locator"
)

// stubPage implements schemas.Page with overridable behavior for the two
// methods the locator touches. The rest are never reached from here.
type stubPage struct {
	schemas.Page

	existing    map[string]bool
	existsErr   error
	controls    []schemas.Control
	controlsErr error
}

func (p *stubPage) ElementExists(_ context.Context, selector string) (bool, error) {
	if p.existsErr != nil {
		return false, p.existsErr
	}
	return p.existing[selector], nil
}

func (p *stubPage) VisibleControls(_ context.Context) ([]schemas.Control, error) {
	if p.controlsErr != nil {
		return nil, p.controlsErr
	}
	return p.controls, nil
}

func defaultClassifiers() []locator.Classifier {
	return []locator.Classifier{
		locator.PrimaryClassifier([]string{"primary"}),
		locator.GenericClassifier([]string{"button"}),
	}
}

func TestLocateSurface_FirstExistingCandidateWins(t *testing.T) {
	page := &stubPage{existing: map[string]bool{
		"#main footer": true,
		"#main":        true,
	}}
	loc := locator.New(page, zaptest.NewLogger(t))

	got, err := loc.LocateSurface(context.Background(),
		[]string{"#main footer .copyable-area", "#main footer", "#main"})
	require.NoError(t, err)
	assert.Equal(t, "#main footer", got, "candidate order decides, not match count")
}

func TestLocateSurface_NoCandidateMatches(t *testing.T) {
	page := &stubPage{existing: map[string]bool{}}
	loc := locator.New(page, zaptest.NewLogger(t))

	_, err := loc.LocateSurface(context.Background(), []string{"#a", "#b"})
	require.Error(t, err)
	assert.True(t, schemas.IsKind(err, schemas.KindNotFound))
	assert.Contains(t, err.Error(), "#a")
	assert.Contains(t, err.Error(), "#b")
}

func TestLocateSurface_ProbeErrorIsNotNotFound(t *testing.T) {
	page := &stubPage{existsErr: errors.New("session gone")}
	loc := locator.New(page, zaptest.NewLogger(t))

	_, err := loc.LocateSurface(context.Background(), []string{"#a"})
	require.Error(t, err)
	assert.False(t, schemas.IsKind(err, schemas.KindNotFound))
}

func TestLocateControl_PrimaryBeatsGeneric(t *testing.T) {
	page := &stubPage{controls: []schemas.Control{
		{Selector: "#plain", TagName: "BUTTON", Text: "Send"},
		{Selector: "#styled", TagName: "DIV", Text: "Send", Classes: []string{"btn-primary"}},
	}}
	loc := locator.New(page, zaptest.NewLogger(t))

	got, err := loc.LocateControl(context.Background(), "Send", defaultClassifiers())
	require.NoError(t, err)
	assert.Equal(t, "#styled", got.Selector,
		"primary styling must win even when a generic button precedes it")
}

func TestLocateControl_SecondaryClassIsNotPrimary(t *testing.T) {
	page := &stubPage{controls: []schemas.Control{
		{Selector: "#cancel", TagName: "DIV", Text: "Send", Classes: []string{"btn-secondary"}},
		{Selector: "#real", TagName: "BUTTON", Text: "Send"},
	}}
	loc := locator.New(page, zaptest.NewLogger(t))

	got, err := loc.LocateControl(context.Background(), "Send", defaultClassifiers())
	require.NoError(t, err)
	assert.Equal(t, "#real", got.Selector,
		`"secondary" must not satisfy the "primary" marker; the generic fallback picks the button`)
}

func TestLocateControl_GenericFallback(t *testing.T) {
	cases := []struct {
		name    string
		control schemas.Control
	}{
		{"button tag", schemas.Control{Selector: "#c", TagName: "BUTTON", Text: "Send"}},
		{"aria role", schemas.Control{Selector: "#c", TagName: "DIV", Role: "button", Text: "Send"}},
		{"class marker case-insensitive", schemas.Control{Selector: "#c", TagName: "SPAN", Text: "Send", Classes: []string{"Button"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page := &stubPage{controls: []schemas.Control{tc.control}}
			loc := locator.New(page, zaptest.NewLogger(t))

			got, err := loc.LocateControl(context.Background(), "Send", defaultClassifiers())
			require.NoError(t, err)
			assert.Equal(t, "#c", got.Selector)
		})
	}
}

func TestLocateControl_TextMatchIsTrimmedAndCaseInsensitive(t *testing.T) {
	page := &stubPage{controls: []schemas.Control{
		{Selector: "#c", TagName: "BUTTON", Text: "  SEND \n"},
	}}
	loc := locator.New(page, zaptest.NewLogger(t))

	got, err := loc.LocateControl(context.Background(), "Send", defaultClassifiers())
	require.NoError(t, err)
	assert.Equal(t, "#c", got.Selector)
}

func TestLocateControl_DocumentOrderBreaksTies(t *testing.T) {
	page := &stubPage{controls: []schemas.Control{
		{Selector: "#first", TagName: "BUTTON", Text: "Send"},
		{Selector: "#second", TagName: "BUTTON", Text: "Send"},
	}}
	loc := locator.New(page, zaptest.NewLogger(t))

	got, err := loc.LocateControl(context.Background(), "Send", defaultClassifiers())
	require.NoError(t, err)
	assert.Equal(t, "#first", got.Selector)
}

func TestLocateControl_NotFoundListsVisibleControls(t *testing.T) {
	page := &stubPage{controls: []schemas.Control{
		{Selector: "#x", TagName: "DIV", Text: "Cancel", Classes: []string{"btn", "muted"}, Role: "button"},
	}}
	loc := locator.New(page, zaptest.NewLogger(t))

	_, err := loc.LocateControl(context.Background(), "Send", defaultClassifiers())
	require.Error(t, err)
	assert.True(t, schemas.IsKind(err, schemas.KindNotFound))
	assert.Contains(t, err.Error(), `"Cancel"`, "diagnostics must list what was visible")
	assert.Contains(t, err.Error(), "btn.muted")
}

func TestLocateControl_NotFoundWithNothingVisible(t *testing.T) {
	page := &stubPage{}
	loc := locator.New(page, zaptest.NewLogger(t))

	_, err := loc.LocateControl(context.Background(), "Send", defaultClassifiers())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(none)")
}

func TestControlAvailable(t *testing.T) {
	page := &stubPage{}
	loc := locator.New(page, zaptest.NewLogger(t))

	ok, err := loc.ControlAvailable(context.Background(), "Send", defaultClassifiers())
	require.NoError(t, err, "absence is a false report, not an error")
	assert.False(t, ok)

	page.controls = []schemas.Control{{Selector: "#c", TagName: "BUTTON", Text: "Send"}}
	ok, err = loc.ControlAvailable(context.Background(), "Send", defaultClassifiers())
	require.NoError(t, err)
	assert.True(t, ok)

	page.controlsErr = errors.New("session gone")
	_, err = loc.ControlAvailable(context.Background(), "Send", defaultClassifiers())
	require.Error(t, err, "enumeration failures must surface")
}
