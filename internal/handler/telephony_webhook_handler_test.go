package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/heera-08/voice-ai/internal/config"
	"github.com/heera-08/voice-ai/internal/core/event"
	"github.com/heera-08/voice-ai/internal/services/call"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWebhookHandler(registry *call.Registry) *TelephonyWebhookHandler {
	return NewTelephonyWebhookHandler(registry, event.NewBus(), config.DefaultGreeting, "sip.example.com", config.ProviderPlivo)
}

func postForm(t *testing.T, handlerFunc http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func TestHandleAnswerCreatesRecord(t *testing.T) {
	registry := call.NewRegistry()
	h := newTestWebhookHandler(registry)

	rec := postForm(t, h.HandleAnswer, "/answer/", url.Values{
		"CallUUID": {"uuid-1"},
		"From":     {"+15550001111"},
		"To":       {"+15552223333"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "sip:call-uuid-1@sip.example.com/")

	record, ok := registry.Get("uuid-1")
	require.True(t, ok)
	assert.Equal(t, "call-uuid-1", record.RoomName)
	assert.Equal(t, "+15550001111", record.From)
	assert.Equal(t, "+15552223333", record.To)
}

func TestHandleAnswerMissingCallUUID(t *testing.T) {
	registry := call.NewRegistry()
	h := newTestWebhookHandler(registry)

	rec := postForm(t, h.HandleAnswer, "/answer/", url.Values{
		"From": {"+15550001111"},
	})

	// The provider has no recourse on an error status; degrade to the
	// fallback document, never a 500.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Hangup")
	assert.NotContains(t, rec.Body.String(), "<Dial>")
	assert.Equal(t, 0, registry.Count())
}

func TestHandleAnswerRedeliveryOverwrites(t *testing.T) {
	registry := call.NewRegistry()
	h := newTestWebhookHandler(registry)

	for i := 0; i < 3; i++ {
		rec := postForm(t, h.HandleAnswer, "/answer/", url.Values{
			"CallUUID": {"redelivered"},
			"From":     {"+15550001111"},
			"To":       {"+15552223333"},
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 1, registry.Count())
}

func TestHandleAnswerConcurrentDistinctCalls(t *testing.T) {
	registry := call.NewRegistry()
	h := newTestWebhookHandler(registry)

	const calls = 20
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := postForm(t, h.HandleAnswer, "/answer/", url.Values{
				"CallUUID": {fmt.Sprintf("uuid-%d", n)},
				"From":     {"+15550001111"},
				"To":       {"+15552223333"},
			})
			assert.Equal(t, http.StatusOK, rec.Code)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, calls, registry.Count())
}

func TestHandleHangupRemovesRecord(t *testing.T) {
	registry := call.NewRegistry()
	registry.Put(call.NewCallRecord("uuid-9", "+1", "+2"))
	h := newTestWebhookHandler(registry)

	rec := postForm(t, h.HandleHangup, "/hangup/", url.Values{
		"CallUUID":    {"uuid-9"},
		"HangupCause": {"NORMAL_CLEARING"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	_, ok := registry.Get("uuid-9")
	assert.False(t, ok)
}

func TestHandleHangupRedeliveryIsIdempotent(t *testing.T) {
	registry := call.NewRegistry()
	registry.Put(call.NewCallRecord("uuid-9", "+1", "+2"))
	h := newTestWebhookHandler(registry)

	for i := 0; i < 3; i++ {
		rec := postForm(t, h.HandleHangup, "/hangup/", url.Values{
			"CallUUID": {"uuid-9"},
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	}

	assert.Equal(t, 0, registry.Count())
}

func TestHandleHangupForUnknownCall(t *testing.T) {
	registry := call.NewRegistry()
	h := newTestWebhookHandler(registry)

	// A hangup for a call this process never saw answered is still OK.
	rec := postForm(t, h.HandleHangup, "/hangup/", url.Values{
		"CallUUID": {"never-answered"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleHangupMissingCallUUID(t *testing.T) {
	registry := call.NewRegistry()
	h := newTestWebhookHandler(registry)

	rec := postForm(t, h.HandleHangup, "/hangup/", url.Values{})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error", rec.Body.String())
}

func TestHandleAnswerTwilioDialect(t *testing.T) {
	registry := call.NewRegistry()
	h := NewTelephonyWebhookHandler(registry, event.NewBus(), "Hello there.", "sip.example.com", config.ProviderTwilio)

	rec := postForm(t, h.HandleAnswer, "/answer/", url.Values{
		"CallUUID": {"tw-1"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Say>Hello there.</Say>")
	assert.Contains(t, rec.Body.String(), "sip:call-tw-1@sip.example.com/")
}
