package handler

import (
	"context"
	"time"

	"github.com/gorilla/mux"
	"github.com/heera-08/voice-ai/internal/adapters/livekit"
	"github.com/heera-08/voice-ai/internal/config"
	"github.com/heera-08/voice-ai/internal/core/event"
	"github.com/heera-08/voice-ai/internal/core/session"
	"github.com/heera-08/voice-ai/internal/services/call"
	"github.com/heera-08/voice-ai/internal/services/dialer"
	"github.com/heera-08/voice-ai/pkg/logger"
	"github.com/heera-08/voice-ai/pkg/redis"
	"go.uber.org/zap"
)

// HandlerManager owns the call coordinator's services and handlers and wires
// them together. The registry is constructed here and passed down by
// reference; nothing reaches it through globals.
type HandlerManager struct {
	config   *config.Config
	registry *call.Registry
	events   event.Bus
	dialer   dialer.Dialer

	webhookHandler     *TelephonyWebhookHandler
	callControlHandler *CallControlHandler
	monitorHandler     *MonitorHandler

	provisioner    *livekit.Provisioner
	sessionManager *session.Manager
}

// NewHandlerManager creates and initializes all handlers and services.
func NewHandlerManager(cfg *config.Config) (*HandlerManager, error) {
	events := event.NewBus()
	registry := call.NewRegistry()

	var d dialer.Dialer
	switch cfg.Provider {
	case config.ProviderTwilio:
		d = dialer.NewTwilioDialer(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.AnswerURL(), cfg.HangupURL())
	default:
		d = dialer.NewPlivoDialer(cfg.PlivoAuthID, cfg.PlivoAuthToken, cfg.AnswerURL(), cfg.HangupURL())
	}

	sipDomain := livekit.SIPDomainFromServerURL(cfg.LiveKitWSURL)

	m := &HandlerManager{
		config:   cfg,
		registry: registry,
		events:   events,
		dialer:   d,

		webhookHandler:     NewTelephonyWebhookHandler(registry, events, cfg.Greeting, sipDomain, cfg.Provider),
		callControlHandler: NewCallControlHandler(registry, d, events, cfg.FromNumber(), cfg.TargetPhoneNumber),
		monitorHandler:     NewMonitorHandler(registry, events),
	}

	// Room provisioning is optional; without API credentials the SIP bridge
	// still works against servers that auto-create rooms.
	if cfg.LiveKitAPIKey != "" && cfg.LiveKitAPISecret != "" {
		provisioner, err := livekit.NewProvisioner(&livekit.Config{
			ServerURL: cfg.LiveKitWSURL,
			APIKey:    cfg.LiveKitAPIKey,
			APISecret: cfg.LiveKitAPISecret,
		})
		if err != nil {
			return nil, err
		}
		m.provisioner = provisioner
		m.bindProvisioner()
	} else {
		logger.Base().Info("LiveKit room provisioning not configured (requires LIVEKIT_API_KEY, LIVEKIT_API_SECRET)")
	}

	// Redis session registry is optional observability, never a dependency.
	if cfg.RedisHost != "" {
		redisSvc, err := redis.NewRedisService(&redis.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			logger.Base().Warn("Failed to initialize redis service, running without session registry", zap.Error(err))
		} else {
			m.sessionManager = session.NewManager(redisSvc, cfg.InstanceID)
			m.bindSessionManager()
		}
	}

	return m, nil
}

// SetupAllRoutes registers every route on the router.
func (m *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.Use(GlobalLoggingMiddleware)
	router.Use(CORSMiddleware)

	m.webhookHandler.SetupWebhookRoutes(router)
	m.callControlHandler.SetupCallControlRoutes(router)
	m.monitorHandler.SetupMonitorRoutes(router)
}

// StartBackground starts the registry janitor and the cross-pod cleanup
// subscription. ctx cancellation stops both.
func (m *HandlerManager) StartBackground(ctx context.Context) {
	m.registry.StartReaper(ctx, m.config.CallTTL, func(record call.CallRecord) {
		m.events.Publish(event.NewCallEvent(event.CallReaped, record.CallUUID).
			WithRoom(record.RoomName))
	})

	if m.sessionManager != nil {
		if err := m.sessionManager.SubscribeToCleanup(ctx, func(callUUID string) {
			if m.registry.Remove(callUUID) {
				logger.Base().Info("Removed call record on cleanup broadcast",
					zap.String("call_uuid", callUUID))
			}
		}); err != nil {
			logger.Base().Warn("Failed to subscribe to cleanup broadcasts", zap.Error(err))
		}
	}
}

func (m *HandlerManager) bindProvisioner() {
	m.events.Subscribe(event.CallAnswered, func(evt *event.CallEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.provisioner.EnsureRoom(ctx, evt.RoomName); err != nil {
			logger.Base().Error("Failed to provision bridge room",
				zap.String("room_name", evt.RoomName),
				zap.Error(err))
		}
	})

	teardown := func(evt *event.CallEvent) {
		if evt.RoomName == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.provisioner.TearDownRoom(ctx, evt.RoomName); err != nil {
			logger.Base().Warn("Failed to tear down bridge room",
				zap.String("room_name", evt.RoomName),
				zap.Error(err))
		}
	}
	m.events.Subscribe(event.CallEnded, teardown)
	m.events.Subscribe(event.CallReaped, teardown)
}

func (m *HandlerManager) bindSessionManager() {
	m.events.Subscribe(event.CallAnswered, func(evt *event.CallEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.sessionManager.Register(ctx, session.SessionInfo{
			CallUUID: evt.CallUUID,
			RoomName: evt.RoomName,
			From:     evt.From,
			To:       evt.To,
		}); err != nil {
			logger.Base().Warn("Failed to register call session", zap.Error(err))
		}
	})

	unregister := func(evt *event.CallEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.sessionManager.Unregister(ctx, evt.CallUUID); err != nil {
			logger.Base().Warn("Failed to unregister call session", zap.Error(err))
		}
	}
	m.events.Subscribe(event.CallEnded, unregister)
	m.events.Subscribe(event.CallReaped, func(evt *event.CallEvent) {
		unregister(evt)
		// Some other pod may still hold a record for this call.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.sessionManager.NotifyCleanup(ctx, evt.CallUUID); err != nil {
			logger.Base().Warn("Failed to broadcast cleanup", zap.Error(err))
		}
	})
}

// GetRegistry exposes the call registry for status reporting in main.
func (m *HandlerManager) GetRegistry() *call.Registry {
	return m.registry
}

// GetDialer exposes the configured dialer for the startup call.
func (m *HandlerManager) GetDialer() dialer.Dialer {
	return m.dialer
}
