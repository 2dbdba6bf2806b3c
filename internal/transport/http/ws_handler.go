package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/auth"
	"quiz-room-service/internal/domain"
	"quiz-room-service/pkg/protocol"
)

type WSHandler struct {
	rooms    *app.RoomService
	tokens   *auth.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(rooms *app.RoomService, tokens *auth.Service) *WSHandler {
	return &WSHandler{
		rooms:  rooms,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades HTTP requests to websockets and speaks the realtime room
// protocol: join-room/leave-room/delete-room/start-game inbound,
// room-update/game-started/room-deleted/error outbound.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get(protocol.TokenQueryParam)
	claims, err := h.tokens.Verify(raw)
	if err != nil {
		http.Error(w, "missing or invalid token", http.StatusUnauthorized)
		return
	}
	player := domain.Player{
		UserID:    claims.Subject,
		Username:  claims.Username,
		UserImage: claims.UserImage,
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan protocol.Frame, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	var (
		roomID    string
		cancelSub func()
		pumpDone  chan struct{}
	)

	startPump := func(updates <-chan domain.RoomEvent) {
		pumpDone = make(chan struct{})
		go func(done chan struct{}) {
			defer close(done)
			for {
				select {
				case ev, ok := <-updates:
					if !ok {
						return
					}
					frame, err := frameFromEvent(ev)
					if err != nil {
						log.Printf("ws frame encode error: %v", err)
						continue
					}
					select {
					case send <- frame:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}(pumpDone)
	}

	leaveCurrent := func() {
		if roomID == "" {
			return
		}
		cancelSub()
		<-pumpDone
		h.rooms.Leave(r.Context(), roomID, player.UserID)
		roomID, cancelSub, pumpDone = "", nil, nil
	}

	for {
		var frame protocol.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			break
		}

		var req protocol.RoomRequest
		if len(frame.Payload) > 0 {
			if err := json.Unmarshal(frame.Payload, &req); err != nil {
				send <- errorFrame("invalid payload")
				continue
			}
		}

		switch frame.Event {
		case protocol.EventJoinRoom:
			if roomID != "" {
				send <- errorFrame("already in a room")
				continue
			}
			if err := h.rooms.Join(r.Context(), req.RoomID, player); err != nil {
				send <- errorFrame(err.Error())
				continue
			}
			updates, cancel, err := h.rooms.Subscribe(r.Context(), req.RoomID)
			if err != nil {
				send <- errorFrame(err.Error())
				continue
			}
			roomID, cancelSub = req.RoomID, cancel
			startPump(updates)

		case protocol.EventLeaveRoom:
			leaveCurrent()

		case protocol.EventDeleteRoom:
			if err := h.rooms.Delete(r.Context(), req.RoomID, player.UserID); err != nil {
				send <- errorFrame(err.Error())
				continue
			}
			// The room-deleted broadcast reached every subscriber, including us;
			// drop our membership bookkeeping without a further roster update.
			if roomID == req.RoomID {
				cancelSub()
				<-pumpDone
				roomID, cancelSub, pumpDone = "", nil, nil
			}

		case protocol.EventStartGame:
			if err := h.rooms.Start(r.Context(), req.RoomID, player.UserID); err != nil {
				send <- errorFrame(err.Error())
			}

		default:
			send <- errorFrame("unsupported event")
		}
	}

	leaveCurrent()
	close(closeSignals)
	close(send)
	<-writerDone
}

func frameFromEvent(ev domain.RoomEvent) (protocol.Frame, error) {
	switch ev.Name {
	case domain.RoomEventUpdate:
		users := make([]protocol.RoomUser, 0, len(ev.Update.Users))
		for _, p := range ev.Update.Users {
			img := p.UserImage
			users = append(users, protocol.RoomUser{ID: p.UserID, Username: p.Username, UserImage: &img})
		}
		return protocol.NewFrame(protocol.EventRoomUpdate, protocol.RoomUpdate{
			Users:     users,
			CreatorID: ev.Update.CreatorID,
		})
	case domain.RoomEventStarted:
		return protocol.NewFrame(protocol.EventGameStarted, nil)
	case domain.RoomEventDeleted:
		return protocol.NewFrame(protocol.EventRoomDeleted, nil)
	}
	return protocol.NewFrame(ev.Name, nil)
}

func errorFrame(message string) protocol.Frame {
	frame, _ := protocol.NewFrame(protocol.EventError, protocol.ErrorPayload{Message: message})
	return frame
}
