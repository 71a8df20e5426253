package call

import "time"

// RoomNamePrefix is prepended to the provider CallUUID to form the bridge
// session identifier. The SIP dial target and the agent worker both
// rendezvous on this name.
const RoomNamePrefix = "call-"

// CallRecord represents one in-flight telephone call. A record is created
// when the answer webhook fires, never at dial time, and is immutable after
// creation; hangup removes it.
type CallRecord struct {
	CallUUID   string    `json:"call_uuid"`
	RoomName   string    `json:"room_name"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	AnsweredAt time.Time `json:"answered_at"`
}

// NewCallRecord builds a record for an answered call, deriving the room name
// from the provider-assigned CallUUID.
func NewCallRecord(callUUID, from, to string) *CallRecord {
	return &CallRecord{
		CallUUID:   callUUID,
		RoomName:   RoomNamePrefix + callUUID,
		From:       from,
		To:         to,
		AnsweredAt: time.Now(),
	}
}
