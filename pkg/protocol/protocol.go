// Package protocol defines the wire contract shared by the room server and
// the Go client: event names and the JSON payloads they carry.
package protocol

import "encoding/json"

// Client -> server events.
const (
	EventJoinRoom   = "join-room"
	EventLeaveRoom  = "leave-room"
	EventDeleteRoom = "delete-room"
	EventStartGame  = "start-game"
)

// Server -> client events.
const (
	EventRoomUpdate  = "room-update"
	EventGameStarted = "game-started"
	EventRoomDeleted = "room-deleted"
	EventError       = "error"
)

// Connect is a synthetic event fired by the client channel once the
// underlying connection is established. It never appears on the wire.
const EventConnect = "connect"

// TokenQueryParam is the query parameter carrying the bearer token during
// the connection handshake.
const TokenQueryParam = "token"

// Frame is the envelope for every message on the realtime channel.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RoomRequest is the payload of every client -> server room event.
type RoomRequest struct {
	RoomID string `json:"roomId"`
	Token  string `json:"token"`
}

// RoomUser is one occupant in a room-update payload.
type RoomUser struct {
	ID        string `json:"_id"`
	Username  string `json:"username"`
	UserImage *int   `json:"userImage,omitempty"`
}

// RoomUpdate is the authoritative roster broadcast by the server. Clients
// replace their roster wholesale with Users on every delivery.
type RoomUpdate struct {
	Users     []RoomUser `json:"users"`
	CreatorID string     `json:"creatorId"`
}

// ErrorPayload carries a server-sent error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewFrame marshals payload into a Frame for event. A nil payload produces
// a frame with no payload field.
func NewFrame(event string, payload any) (Frame, error) {
	f := Frame{Event: event}
	if payload == nil {
		return f, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	f.Payload = raw
	return f, nil
}
