package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/heera-08/voice-ai/internal/core/event"
	"github.com/heera-08/voice-ai/internal/services/call"
	"github.com/heera-08/voice-ai/pkg/logger"
	"go.uber.org/zap"
)

// MonitorHandler streams call lifecycle events to operator dashboards over
// WebSocket. Slow consumers get events dropped, never buffered without bound.
type MonitorHandler struct {
	registry *call.Registry
	events   event.Bus
	upgrader websocket.Upgrader
}

// NewMonitorHandler creates the monitor handler.
func NewMonitorHandler(registry *call.Registry, events event.Bus) *MonitorHandler {
	return &MonitorHandler{
		registry: registry,
		events:   events,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// monitorHello is the first frame sent on a new monitor connection.
type monitorHello struct {
	ActiveCalls int               `json:"active_calls"`
	Calls       []call.CallRecord `json:"calls"`
}

// SetupMonitorRoutes registers the monitor WebSocket route.
func (h *MonitorHandler) SetupMonitorRoutes(router *mux.Router) {
	router.HandleFunc("/monitor/events", h.HandleEvents).Methods("GET")

	logger.Base().Info("Monitor routes registered")
}

// HandleEvents upgrades to WebSocket and streams call events until the client
// disconnects.
// GET /monitor/events
func (h *MonitorHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Base().Error("Failed to upgrade monitor connection", zap.Error(err))
		return
	}
	defer conn.Close()

	snapshot := h.registry.Snapshot()
	if err := conn.WriteJSON(monitorHello{ActiveCalls: len(snapshot), Calls: snapshot}); err != nil {
		return
	}

	feed := make(chan *event.CallEvent, 16)
	unsubscribe := h.events.SubscribeAll(func(evt *event.CallEvent) {
		select {
		case feed <- evt:
		default:
			// drop rather than stall the bus
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case evt := <-feed:
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}
