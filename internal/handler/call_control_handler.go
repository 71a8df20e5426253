package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/heera-08/voice-ai/internal/core/event"
	"github.com/heera-08/voice-ai/internal/services/call"
	"github.com/heera-08/voice-ai/internal/services/dialer"
	"github.com/heera-08/voice-ai/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const dialTimeout = 20 * time.Second

// CallControlHandler exposes the operational endpoints: manual call trigger,
// status reporting and liveness.
type CallControlHandler struct {
	registry   *call.Registry
	dialer     dialer.Dialer
	events     event.Bus
	fromNumber string
	defaultTo  string
	limiter    *rate.Limiter
}

// NewCallControlHandler creates the call-control handler. defaultTo may be
// empty; /make_call then requires an explicit destination.
func NewCallControlHandler(registry *call.Registry, d dialer.Dialer, events event.Bus, fromNumber, defaultTo string) *CallControlHandler {
	return &CallControlHandler{
		registry:   registry,
		dialer:     d,
		events:     events,
		fromNumber: fromNumber,
		defaultTo:  defaultTo,
		// Dialing is operator-triggered; one call per second with a small
		// burst keeps a misbehaving script from burning provider credit.
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

// MakeCallRequest represents the manual call trigger request.
type MakeCallRequest struct {
	ToNumber string `json:"to_number"`
}

// MakeCallResponse represents a successful trigger response.
type MakeCallResponse struct {
	CallUUID string `json:"call_uuid"`
	Status   string `json:"status"`
}

// StatusResponse reports the active calls in the registry.
type StatusResponse struct {
	ActiveCalls int      `json:"active_calls"`
	Calls       []string `json:"calls"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SetupCallControlRoutes registers the operational routes.
func (h *CallControlHandler) SetupCallControlRoutes(router *mux.Router) {
	router.HandleFunc("/make_call/", h.HandleMakeCall).Methods("POST")
	router.HandleFunc("/make_call", h.HandleMakeCall).Methods("POST")
	router.HandleFunc("/status/", h.HandleStatus).Methods("GET")
	router.HandleFunc("/status", h.HandleStatus).Methods("GET")
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")

	logger.Base().Info("Call control routes registered")
}

// HandleMakeCall triggers an outbound call.
// POST /make_call/  body: {"to_number": "+15551234567"} (optional)
func (h *CallControlHandler) HandleMakeCall(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		h.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many call requests"})
		return
	}

	var request MakeCallRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	defer r.Body.Close()

	toNumber := request.ToNumber
	if toNumber == "" {
		toNumber = h.defaultTo
	}
	if toNumber == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: dialer.ErrNoDestination.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dialTimeout)
	defer cancel()

	requestID, err := h.dialer.Dial(ctx, toNumber, h.fromNumber)
	if err != nil {
		logger.Base().Error("Failed to trigger outbound call",
			zap.String("to", toNumber),
			zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	// The dial result is a request identifier, not the CallUUID the answer
	// webhook will carry. Nothing enters the registry until the call is
	// actually answered.
	h.events.Publish(event.NewCallEvent(event.CallTriggered, requestID).
		WithNumbers(h.fromNumber, toNumber))

	h.writeJSON(w, http.StatusOK, MakeCallResponse{
		CallUUID: requestID,
		Status:   "initiated",
	})
}

// HandleStatus reports active calls.
// GET /status/
func (h *CallControlHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ids := h.registry.ListIDs()
	if ids == nil {
		ids = []string{}
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{
		ActiveCalls: len(ids),
		Calls:       ids,
	})
}

// HandleHealth is the liveness probe.
// GET /health
func (h *CallControlHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"health": "ok"}`))
}

func (h *CallControlHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
