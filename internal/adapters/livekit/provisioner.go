// Package livekit provisions the rooms that answered calls are bridged into.
// The agent worker and the provider's SIP leg rendezvous on the room name;
// pre-creating the room on answer removes the create race between the two.
package livekit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/heera-08/voice-ai/pkg/logger"
	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go"
	"go.uber.org/zap"
)

// Config holds LiveKit server configuration.
type Config struct {
	ServerURL string // LiveKit server WebSocket URL
	APIKey    string
	APISecret string
}

// Validate validates the LiveKit configuration.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("LiveKit server URL is required")
	}
	if c.APIKey == "" {
		return errors.New("LiveKit API key is required")
	}
	if c.APISecret == "" {
		return errors.New("LiveKit API secret is required")
	}
	return nil
}

// SIPDomainFromServerURL derives the SIP domain the provider dials into from
// the LiveKit connection endpoint: strip the scheme, keep the host.
func SIPDomainFromServerURL(serverURL string) string {
	domain := serverURL
	for _, scheme := range []string{"wss://", "ws://", "https://", "http://"} {
		domain = strings.TrimPrefix(domain, scheme)
	}
	return strings.TrimSuffix(domain, "/")
}

// Provisioner manages room lifecycle against the LiveKit server.
type Provisioner struct {
	config     *Config
	roomClient *lksdk.RoomServiceClient
}

// NewProvisioner creates a room provisioner for the given server.
func NewProvisioner(config *Config) (*Provisioner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provisioner{
		config:     config,
		roomClient: lksdk.NewRoomServiceClient(config.ServerURL, config.APIKey, config.APISecret),
	}

	logger.Base().Info("LiveKit room provisioner initialized",
		zap.String("server_url", config.ServerURL))
	return p, nil
}

// EnsureRoom creates the room for a bridge session. Creating an existing room
// is not an error on the LiveKit side, so redelivered answer webhooks are safe.
func (p *Provisioner) EnsureRoom(ctx context.Context, roomName string) error {
	_, err := p.roomClient.CreateRoom(ctx, &livekit.CreateRoomRequest{
		Name:         roomName,
		EmptyTimeout: 300, // seconds; reclaim rooms nobody bridged into
	})
	if err != nil {
		return err
	}

	logger.Base().Info("Bridge room ready", zap.String("room_name", roomName))
	return nil
}

// TearDownRoom deletes the room once the call has ended.
func (p *Provisioner) TearDownRoom(ctx context.Context, roomName string) error {
	_, err := p.roomClient.DeleteRoom(ctx, &livekit.DeleteRoomRequest{
		Room: roomName,
	})
	if err != nil {
		return err
	}

	logger.Base().Info("Bridge room deleted", zap.String("room_name", roomName))
	return nil
}

// ParticipantToken generates a LiveKit access token for a participant in the
// given room, should an operator need to join and listen in.
func (p *Provisioner) ParticipantToken(roomName, identity string) (string, error) {
	at := auth.NewAccessToken(p.config.APIKey, p.config.APISecret)

	canPublish := true
	canSubscribe := true
	grant := &auth.VideoGrant{
		RoomJoin:     true,
		Room:         roomName,
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
	}

	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetValidFor(2 * time.Hour)

	return at.ToJWT()
}
