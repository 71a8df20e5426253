package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/heera-08/voice-ai/internal/core/event"
	"github.com/heera-08/voice-ai/internal/services/call"
	"github.com/heera-08/voice-ai/internal/services/dialer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDialer struct {
	requestID string
	err       error
	gotTo     string
	gotFrom   string
	calls     int
}

func (f *fakeDialer) Dial(ctx context.Context, to, from string) (string, error) {
	f.calls++
	f.gotTo = to
	f.gotFrom = from
	return f.requestID, f.err
}

func newTestCallControlHandler(registry *call.Registry, d dialer.Dialer, defaultTo string) *CallControlHandler {
	return NewCallControlHandler(registry, d, event.NewBus(), "+15550000000", defaultTo)
}

func postJSON(t *testing.T, handlerFunc http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func TestHandleMakeCallSuccess(t *testing.T) {
	registry := call.NewRegistry()
	fake := &fakeDialer{requestID: "req-42"}
	h := newTestCallControlHandler(registry, fake, "")

	rec := postJSON(t, h.HandleMakeCall, "/make_call/", `{"to_number": "+15551234567"}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response MakeCallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "req-42", response.CallUUID)
	assert.Equal(t, "initiated", response.Status)

	assert.Equal(t, "+15551234567", fake.gotTo)
	assert.Equal(t, "+15550000000", fake.gotFrom)

	// Nothing is registered until the answer webhook fires.
	assert.Equal(t, 0, registry.Count())
}

func TestHandleMakeCallEmptyBodyUsesDefault(t *testing.T) {
	fake := &fakeDialer{requestID: "req-1"}
	h := newTestCallControlHandler(call.NewRegistry(), fake, "+15559998888")

	rec := postJSON(t, h.HandleMakeCall, "/make_call/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+15559998888", fake.gotTo)
}

func TestHandleMakeCallNoDestination(t *testing.T) {
	fake := &fakeDialer{requestID: "req-1"}
	h := newTestCallControlHandler(call.NewRegistry(), fake, "")

	rec := postJSON(t, h.HandleMakeCall, "/make_call/", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no target phone number")
	assert.Equal(t, 0, fake.calls)
}

func TestHandleMakeCallMalformedBody(t *testing.T) {
	fake := &fakeDialer{requestID: "req-1"}
	h := newTestCallControlHandler(call.NewRegistry(), fake, "+15559998888")

	rec := postJSON(t, h.HandleMakeCall, "/make_call/", `{"to_number": 42`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, fake.calls)
}

func TestHandleMakeCallDialerFailure(t *testing.T) {
	registry := call.NewRegistry()
	fake := &fakeDialer{err: &dialer.TriggerError{
		Provider: "plivo",
		Message:  "status 401: invalid credentials",
		Err:      errors.New("unauthorized"),
	}}
	h := newTestCallControlHandler(registry, fake, "")

	rec := postJSON(t, h.HandleMakeCall, "/make_call/", `{"to_number": "+15551234567"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var response struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response.Error, "invalid credentials")

	assert.Equal(t, 0, registry.Count())
}

func TestHandleStatusEmpty(t *testing.T) {
	h := newTestCallControlHandler(call.NewRegistry(), &fakeDialer{}, "")

	req := httptest.NewRequest(http.MethodGet, "/status/", nil)
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	// Empty must serialize as [], not null.
	assert.JSONEq(t, `{"active_calls": 0, "calls": []}`, rec.Body.String())
}

func TestHandleHealth(t *testing.T) {
	h := newTestCallControlHandler(call.NewRegistry(), &fakeDialer{}, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"health": "ok"}`, rec.Body.String())
}

// TestCallLifecycle drives a full trigger, answer, status, hangup sequence
// through the handlers the way the provider would.
func TestCallLifecycle(t *testing.T) {
	registry := call.NewRegistry()
	bus := event.NewBus()
	defer bus.Close()

	fake := &fakeDialer{requestID: "req-7"}
	control := NewCallControlHandler(registry, fake, bus, "+15550000000", "")
	webhooks := newTestWebhookHandler(registry)

	// Operator triggers the call.
	rec := postJSON(t, control.HandleMakeCall, "/make_call/", `{"to_number": "+15551234567"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Provider reports the call answered.
	rec = postForm(t, webhooks.HandleAnswer, "/answer/", url.Values{
		"CallUUID": {"X1"},
		"From":     {"+15550000000"},
		"To":       {"+15551234567"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sip:call-X1@sip.example.com/")

	// Status reflects the live call.
	req := httptest.NewRequest(http.MethodGet, "/status/", nil)
	statusRec := httptest.NewRecorder()
	control.HandleStatus(statusRec, req)
	assert.JSONEq(t, `{"active_calls": 1, "calls": ["X1"]}`, statusRec.Body.String())

	// Caller hangs up.
	rec = postForm(t, webhooks.HandleHangup, "/hangup/", url.Values{
		"CallUUID":    {"X1"},
		"HangupCause": {"NORMAL_CLEARING"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	statusRec = httptest.NewRecorder()
	control.HandleStatus(statusRec, req)
	assert.JSONEq(t, `{"active_calls": 0, "calls": []}`, statusRec.Body.String())
}
