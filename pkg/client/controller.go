// Package client implements the room-presence side of the quiz room
// protocol: a realtime channel wrapper and the controller that turns server
// events into an observable room state.
package client

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"quiz-room-service/pkg/protocol"
)

// State is the controller's position in the room session lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateJoined
	StatePlaying
	StateDeleted
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StatePlaying:
		return "playing"
	case StateDeleted:
		return "deleted"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Player is one occupant of the room roster.
type Player struct {
	UserID    string
	Username  string
	UserImage int
}

// RoomState is the observable state of one room session. Players and
// IsCreator always originate from the same room-update event; GameStarted
// and RoomDeleted latch once true.
type RoomState struct {
	Players     []Player
	IsCreator   bool
	GameStarted bool
	RoomDeleted bool
}

// Controller owns one room session: it joins a room over the channel,
// applies server events to its published RoomState, and emits user intents.
// A Controller is single-use; create a new one per room visit.
type Controller struct {
	endpoint string
	tokens   TokenSource
	channel  Channel

	mu          sync.RWMutex
	state       State
	closed      bool
	roomID      string
	token       string
	userID      string
	room        RoomState
	subscribers map[chan RoomState]struct{}
}

// NewController builds a controller for the websocket endpoint (e.g.
// "ws://host:8080/ws") using tokens for authentication.
func NewController(endpoint string, tokens TokenSource, channel Channel) *Controller {
	return &Controller{
		endpoint:    endpoint,
		tokens:      tokens,
		channel:     channel,
		state:       StateIdle,
		subscribers: make(map[chan RoomState]struct{}),
	}
}

// Connect resolves the session token, opens the channel, and requests room
// membership. ErrNotAuthenticated is the only error surfaced to the caller;
// transport failures are logged and leave the controller Disconnected.
func (c *Controller) Connect(roomID string) error {
	token, ok := c.tokens.Token()
	if !ok {
		return ErrNotAuthenticated
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("controller already used (state %s)", c.state)
	}
	c.state = StateConnecting
	c.roomID = roomID
	c.token = token
	c.mu.Unlock()

	userID, err := UserID(token)
	if err != nil {
		log.Printf("controller: undecodable token subject: %v", err)
	}
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()

	c.channel.On(protocol.EventConnect, func(json.RawMessage) {
		c.channel.Send(protocol.EventJoinRoom, protocol.RoomRequest{RoomID: roomID, Token: token})
	})
	c.channel.On(protocol.EventRoomUpdate, c.handleRoomUpdate)
	c.channel.On(protocol.EventGameStarted, c.handleGameStarted)
	c.channel.On(protocol.EventRoomDeleted, c.handleRoomDeleted)
	c.channel.On(protocol.EventError, func(payload json.RawMessage) {
		var p protocol.ErrorPayload
		_ = json.Unmarshal(payload, &p)
		log.Printf("controller: server error: %s", p.Message)
	})

	if err := c.channel.Open(c.endpoint, token); err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		log.Printf("controller: connect failed: %v", err)
	}
	return nil
}

// LeaveRoom emits a best-effort leave; the caller tears down right after.
func (c *Controller) LeaveRoom(roomID string) {
	c.emit(protocol.EventLeaveRoom, roomID)
}

// DeleteRoom emits a best-effort delete. Creator only; the server enforces.
func (c *Controller) DeleteRoom(roomID string) {
	c.emit(protocol.EventDeleteRoom, roomID)
}

// StartGame emits a best-effort game start. Creator only; the server enforces.
func (c *Controller) StartGame(roomID string) {
	c.emit(protocol.EventStartGame, roomID)
}

func (c *Controller) emit(event, roomID string) {
	c.mu.RLock()
	token := c.token
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}
	c.channel.Send(event, protocol.RoomRequest{RoomID: roomID, Token: token})
}

// Disconnect closes the channel and stops all further event processing.
// Idempotent; events delivered afterwards are ignored.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for ch := range c.subscribers {
		close(ch)
	}
	c.subscribers = make(map[chan RoomState]struct{})
	c.mu.Unlock()

	c.channel.Close()
}

// State returns the controller's lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// RoomState returns a copy of the current published state.
func (c *Controller) RoomState() RoomState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyRoomState(c.room)
}

// Updates returns a channel receiving every published RoomState, primed with
// the current snapshot. The caller must invoke the returned cancel function
// to avoid leaks.
func (c *Controller) Updates() (<-chan RoomState, func()) {
	ch := make(chan RoomState, 8)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subscribers[ch] = struct{}{}
	initial := copyRoomState(c.room)
	c.mu.Unlock()

	ch <- initial

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// handleRoomUpdate replaces the roster wholesale and recomputes IsCreator
// from this event's creatorId. Malformed payloads keep the previous state.
func (c *Controller) handleRoomUpdate(payload json.RawMessage) {
	var update struct {
		Users     *[]protocol.RoomUser `json:"users"`
		CreatorID *string              `json:"creatorId"`
	}
	if err := json.Unmarshal(payload, &update); err != nil {
		log.Printf("controller: malformed room-update: %v", err)
		return
	}
	if update.Users == nil || update.CreatorID == nil {
		log.Printf("controller: malformed room-update: missing users or creatorId")
		return
	}

	players := make([]Player, 0, len(*update.Users))
	for _, u := range *update.Users {
		p := Player{UserID: u.ID, Username: u.Username}
		if u.UserImage != nil {
			p.UserImage = *u.UserImage
		}
		players = append(players, p)
	}

	c.mu.Lock()
	if c.closed || c.terminalLocked() || c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	c.state = StateJoined
	c.room.Players = players
	c.room.IsCreator = c.userID != "" && c.userID == *update.CreatorID
	c.publishLocked()
	c.mu.Unlock()
}

func (c *Controller) handleGameStarted(json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.terminalLocked() || c.state == StateIdle {
		return
	}
	c.state = StatePlaying
	c.room.GameStarted = true
	c.publishLocked()
}

func (c *Controller) handleRoomDeleted(json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.terminalLocked() || c.state == StateIdle {
		return
	}
	c.state = StateDeleted
	c.room.RoomDeleted = true
	c.publishLocked()
}

// terminalLocked reports whether the controller has latched: once the game
// started, the room was deleted, or the connection failed, no further event
// may change published state.
func (c *Controller) terminalLocked() bool {
	return c.state == StatePlaying || c.state == StateDeleted || c.state == StateDisconnected
}

func (c *Controller) publishLocked() {
	snapshot := copyRoomState(c.room)
	for ch := range c.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale frame so a slow consumer never blocks delivery.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func copyRoomState(s RoomState) RoomState {
	out := s
	out.Players = make([]Player, len(s.Players))
	copy(out.Players, s.Players)
	return out
}
