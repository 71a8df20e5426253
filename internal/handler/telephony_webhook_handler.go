package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/heera-08/voice-ai/internal/callxml"
	"github.com/heera-08/voice-ai/internal/config"
	"github.com/heera-08/voice-ai/internal/core/event"
	"github.com/heera-08/voice-ai/internal/services/call"
	"github.com/heera-08/voice-ai/pkg/logger"
	"go.uber.org/zap"
)

// TelephonyWebhookHandler receives the provider's answer and hangup webhooks
// and keeps the call registry consistent with them.
type TelephonyWebhookHandler struct {
	registry  *call.Registry
	events    event.Bus
	greeting  string
	sipDomain string
	provider  config.Provider
}

// NewTelephonyWebhookHandler creates a webhook handler bound to the given
// registry. sipDomain is derived once at startup from the LiveKit endpoint.
func NewTelephonyWebhookHandler(registry *call.Registry, events event.Bus, greeting, sipDomain string, provider config.Provider) *TelephonyWebhookHandler {
	return &TelephonyWebhookHandler{
		registry:  registry,
		events:    events,
		greeting:  greeting,
		sipDomain: sipDomain,
		provider:  provider,
	}
}

// SetupWebhookRoutes registers the provider callback routes. Both slash
// variants are registered; providers are configured with the trailing slash
// but operators tend to drop it when testing with curl.
func (h *TelephonyWebhookHandler) SetupWebhookRoutes(router *mux.Router) {
	router.HandleFunc("/answer/", h.HandleAnswer).Methods("POST")
	router.HandleFunc("/answer", h.HandleAnswer).Methods("POST")
	router.HandleFunc("/hangup/", h.HandleHangup).Methods("POST")
	router.HandleFunc("/hangup", h.HandleHangup).Methods("POST")

	logger.Base().Info("Telephony webhook routes registered")
}

// HandleAnswer handles the provider's answer webhook.
// POST /answer/
//
// Always replies 200 with a call-control document: an error status here would
// strand a live caller with silence, so every failure path degrades to the
// fallback hangup document instead.
func (h *TelephonyWebhookHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logger.Base().Error("Failed to parse answer webhook form", zap.Error(err))
		h.writeXML(w, h.errorDocument())
		return
	}

	callUUID := r.PostFormValue("CallUUID")
	fromNumber := r.PostFormValue("From")
	toNumber := r.PostFormValue("To")

	if callUUID == "" {
		logger.Base().Error("Answer webhook missing CallUUID")
		h.writeXML(w, h.errorDocument())
		return
	}

	record := call.NewCallRecord(callUUID, fromNumber, toNumber)
	h.registry.Put(record)

	logger.Base().Info("Call answered",
		zap.String("call_uuid", callUUID),
		zap.String("from", fromNumber),
		zap.String("to", toNumber),
		zap.String("room_name", record.RoomName))

	h.events.Publish(event.NewCallEvent(event.CallAnswered, callUUID).
		WithRoom(record.RoomName).
		WithNumbers(fromNumber, toNumber))

	h.writeXML(w, h.answerDocument(record.RoomName))
}

// HandleHangup handles the provider's hangup webhook.
// POST /hangup/
//
// This is the one endpoint where failure surfaces as a distinct status; the
// provider may use it for delivery confirmation.
func (h *TelephonyWebhookHandler) HandleHangup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logger.Base().Error("Failed to parse hangup webhook form", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Error"))
		return
	}

	callUUID := r.PostFormValue("CallUUID")
	if callUUID == "" {
		logger.Base().Error("Hangup webhook missing CallUUID")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Error"))
		return
	}

	hangupCause := r.PostFormValue("HangupCause")

	record, _ := h.registry.Get(callUUID)
	removed := h.registry.Remove(callUUID)

	logger.Base().Info("Call ended",
		zap.String("call_uuid", callUUID),
		zap.String("hangup_cause", hangupCause),
		zap.Bool("record_existed", removed))

	if removed {
		h.events.Publish(event.NewCallEvent(event.CallEnded, callUUID).
			WithRoom(record.RoomName).
			WithCause(hangupCause))
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *TelephonyWebhookHandler) answerDocument(roomName string) string {
	if h.provider == config.ProviderTwilio {
		return callxml.BuildTwiMLAnswerDocument(h.greeting, roomName, h.sipDomain)
	}
	return callxml.BuildAnswerDocumentWithGreeting(h.greeting, roomName, h.sipDomain)
}

func (h *TelephonyWebhookHandler) errorDocument() string {
	if h.provider == config.ProviderTwilio {
		return callxml.BuildTwiMLErrorDocument()
	}
	return callxml.BuildErrorDocument()
}

func (h *TelephonyWebhookHandler) writeXML(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}
