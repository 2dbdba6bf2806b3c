package client

import (
	"encoding/json"
	"log"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"quiz-room-service/pkg/protocol"
)

// Handler consumes an inbound event payload. Handlers run on the channel's
// receive goroutine, not the caller's.
type Handler func(payload json.RawMessage)

// Channel is a bidirectional event transport to the game server. Outbound
// sends are best-effort: no acknowledgment, no retry, and messages are
// dropped while the channel is not open.
type Channel interface {
	Open(endpoint, token string) error
	On(event string, h Handler)
	Send(event string, payload any)
	Close()
}

// WebsocketChannel implements Channel over a gorilla websocket connection,
// authenticating via the token query parameter on the handshake.
type WebsocketChannel struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]Handler
	closed   bool
}

func NewWebsocketChannel() *WebsocketChannel {
	return &WebsocketChannel{handlers: make(map[string]Handler)}
}

// On registers the handler for an event name. Registering again replaces the
// previous handler; register before Open to avoid missing early events.
func (c *WebsocketChannel) On(event string, h Handler) {
	c.mu.Lock()
	c.handlers[event] = h
	c.mu.Unlock()
}

// Open dials the endpoint with the token attached to the handshake. On
// success it fires the synthetic connect event and starts receiving.
func (c *WebsocketChannel) Open(endpoint, token string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		log.Printf("channel: bad endpoint %q: %v", endpoint, err)
		return err
	}
	q := u.Query()
	q.Set(protocol.TokenQueryParam, token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Printf("channel: dial %s: %v", u.Host, err)
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	connected := c.handlers[protocol.EventConnect]
	c.mu.Unlock()

	if connected != nil {
		connected(nil)
	}
	go c.readLoop(conn)
	return nil
}

func (c *WebsocketChannel) readLoop(conn *websocket.Conn) {
	for {
		var frame protocol.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		c.mu.Lock()
		h := c.handlers[frame.Event]
		c.mu.Unlock()
		if h != nil {
			h(frame.Payload)
		}
	}
}

// Send emits an event with a JSON payload. If the channel is not open the
// message is silently dropped.
func (c *WebsocketChannel) Send(event string, payload any) {
	frame, err := protocol.NewFrame(event, payload)
	if err != nil {
		log.Printf("channel: encode %s: %v", event, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return
	}
	if err := c.conn.WriteJSON(frame); err != nil {
		log.Printf("channel: send %s: %v", event, err)
	}
}

// Close releases the connection. Safe to call multiple times.
func (c *WebsocketChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
