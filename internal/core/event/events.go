package event

import (
	"time"

	"github.com/google/uuid"
)

// Type represents the type of call lifecycle event.
type Type string

const (
	// CallTriggered fires after the provider accepted an outbound call request.
	CallTriggered Type = "call.triggered"
	// CallAnswered fires when the answer webhook created a call record.
	CallAnswered Type = "call.answered"
	// CallEnded fires when the hangup webhook removed a call record.
	CallEnded Type = "call.ended"
	// CallReaped fires when the registry janitor evicted an orphaned record.
	CallReaped Type = "call.reaped"
)

// CallEvent is published on the bus for every call lifecycle transition.
type CallEvent struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	CallUUID  string    `json:"call_uuid,omitempty"`
	RoomName  string    `json:"room_name,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Cause     string    `json:"cause,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCallEvent creates an event with a fresh ID and timestamp.
func NewCallEvent(eventType Type, callUUID string) *CallEvent {
	return &CallEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		CallUUID:  callUUID,
		Timestamp: time.Now(),
	}
}

// WithRoom attaches the bridge session room name.
func (e *CallEvent) WithRoom(roomName string) *CallEvent {
	e.RoomName = roomName
	return e
}

// WithNumbers attaches the caller and callee numbers.
func (e *CallEvent) WithNumbers(from, to string) *CallEvent {
	e.From = from
	e.To = to
	return e
}

// WithCause attaches the provider-reported hangup cause.
func (e *CallEvent) WithCause(cause string) *CallEvent {
	e.Cause = cause
	return e
}
