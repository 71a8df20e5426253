// Package session mirrors active calls into Redis for cross-pod
// observability. The in-memory call registry stays the source of truth; the
// Redis entries carry their own TTL and vanish on their own, so losing Redis
// never affects call handling.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heera-08/voice-ai/pkg/logger"
	"github.com/heera-08/voice-ai/pkg/redis"
	"go.uber.org/zap"
)

const (
	CleanupChannel   = "voiceai:call:cleanup"
	SessionKeyPrefix = "voiceai:call:session"
	SessionTTL       = 1 * time.Hour
)

// SessionInfo represents monitoring data for one bridged call.
type SessionInfo struct {
	CallUUID  string    `json:"callUuid"`
	RoomName  string    `json:"roomName"`
	PodID     string    `json:"podId"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	StartTime time.Time `json:"startTime"`
}

// CleanupMessage is the payload for cleanup broadcast
type CleanupMessage struct {
	CallUUID string `json:"callUuid"`
}

type Manager struct {
	redisSvc redis.RedisServiceInterface
	podID    string
}

func NewManager(redisSvc redis.RedisServiceInterface, podID string) *Manager {
	return &Manager{
		redisSvc: redisSvc,
		podID:    podID,
	}
}

// Register records an answered call in Redis for monitoring.
func (m *Manager) Register(ctx context.Context, info SessionInfo) error {
	info.PodID = m.podID
	if info.StartTime.IsZero() {
		info.StartTime = time.Now()
	}

	data, _ := json.Marshal(info)
	key := fmt.Sprintf("%s:%s", SessionKeyPrefix, info.CallUUID)

	err := m.redisSvc.SetValue(ctx, key, string(data), SessionTTL)
	if err == nil {
		logger.Base().Info("Call session registered in Redis",
			zap.String("call_uuid", info.CallUUID),
			zap.String("pod_id", m.podID))
	}
	return err
}

// Unregister removes a call session from monitoring.
func (m *Manager) Unregister(ctx context.Context, callUUID string) error {
	key := fmt.Sprintf("%s:%s", SessionKeyPrefix, callUUID)
	return m.redisSvc.DelValue(ctx, key)
}

// NotifyCleanup broadcasts a cleanup request to all pods.
func (m *Manager) NotifyCleanup(ctx context.Context, callUUID string) error {
	logger.Base().Info("Broadcasting call cleanup", zap.String("call_uuid", callUUID))
	return m.redisSvc.Publish(ctx, CleanupChannel, CleanupMessage{CallUUID: callUUID})
}

// SubscribeToCleanup listens for cleanup broadcasts from other pods.
func (m *Manager) SubscribeToCleanup(ctx context.Context, handler func(callUUID string)) error {
	return m.redisSvc.Subscribe(ctx, CleanupChannel, func(payload string) {
		var msg CleanupMessage
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			logger.Base().Error("Failed to unmarshal cleanup message", zap.Error(err))
			return
		}
		handler(msg.CallUUID)
	})
}
