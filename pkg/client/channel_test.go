package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-room-service/pkg/protocol"
)

// echoServer upgrades the connection, records the handshake token, and echoes
// every frame back with the event renamed to "echo".
func echoServer(t *testing.T, gotToken *string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotToken = r.URL.Query().Get(protocol.TokenQueryParam)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			var frame protocol.Frame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			frame.Event = "echo"
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestChannelHandshakeCarriesToken(t *testing.T) {
	var gotToken string
	server := echoServer(t, &gotToken)
	defer server.Close()

	ch := NewWebsocketChannel()
	defer ch.Close()

	connected := make(chan struct{})
	ch.On(protocol.EventConnect, func(json.RawMessage) { close(connected) })

	if err := ch.Open(wsURL(server), "session-token"); err != nil {
		t.Fatalf("open: %v", err)
	}
	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatalf("connect event never fired")
	}
	if gotToken != "session-token" {
		t.Fatalf("expected token on handshake, got %q", gotToken)
	}
}

func TestChannelSendAndReceiveRoundTrip(t *testing.T) {
	var gotToken string
	server := echoServer(t, &gotToken)
	defer server.Close()

	ch := NewWebsocketChannel()
	defer ch.Close()

	frames := make(chan protocol.RoomRequest, 1)
	ch.On("echo", func(payload json.RawMessage) {
		var req protocol.RoomRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			t.Errorf("decode echo payload: %v", err)
			return
		}
		frames <- req
	})

	if err := ch.Open(wsURL(server), "tok"); err != nil {
		t.Fatalf("open: %v", err)
	}
	ch.Send(protocol.EventJoinRoom, protocol.RoomRequest{RoomID: "123456", Token: "tok"})

	select {
	case req := <-frames:
		if req.RoomID != "123456" || req.Token != "tok" {
			t.Fatalf("unexpected round-trip payload %+v", req)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("echo frame never arrived")
	}
}

func TestChannelOpenBadEndpoint(t *testing.T) {
	ch := NewWebsocketChannel()
	if err := ch.Open("://bad", "tok"); err == nil {
		t.Fatalf("expected error for unparsable endpoint")
	}
}

func TestChannelOpenDialFailure(t *testing.T) {
	ch := NewWebsocketChannel()
	if err := ch.Open("ws://127.0.0.1:1/ws", "tok"); err == nil {
		t.Fatalf("expected dial error")
	}
}

func TestChannelSendAfterCloseIsDropped(t *testing.T) {
	var gotToken string
	server := echoServer(t, &gotToken)
	defer server.Close()

	ch := NewWebsocketChannel()
	if err := ch.Open(wsURL(server), "tok"); err != nil {
		t.Fatalf("open: %v", err)
	}
	ch.Close()
	ch.Close() // idempotent

	// Must not panic or block.
	ch.Send(protocol.EventLeaveRoom, protocol.RoomRequest{RoomID: "123456", Token: "tok"})
}
