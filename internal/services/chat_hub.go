package services

import (
	"sync"
	"time"
)

// Chat event types sent over the WebSocket.
const (
	EventTypeConnected = "connected"
	EventTypeMessage   = "message"
	EventTypeError     = "error"
)

// ChatEvent is the payload written to every connected peer.
type ChatEvent struct {
	Type        string    `json:"type"`
	UserID      string    `json:"user_id,omitempty"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	NameColor   string    `json:"name_color,omitempty"`
	Message     string    `json:"message,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

// ChatConn is the minimal interface our WebSocket implementation must satisfy.
type ChatConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// ChatClient is one registered connection. A user with several tabs open has
// several clients; identity comes from the session resolved at handshake
// time, never from client payloads.
type ChatClient struct {
	Session Session
	conn    ChatConn
	send    chan ChatEvent
}

// clientSendBuffer bounds the per-connection outbound queue. A client that
// falls this far behind is dropped rather than blocking the broadcast.
const clientSendBuffer = 64

// ChatHub is the registry of live connections. Broadcast iterates the
// registry under a read lock with non-blocking sends, so connects and
// disconnects never disrupt an in-progress fan-out.
type ChatHub struct {
	mu      sync.RWMutex
	clients map[*ChatClient]struct{}
}

func NewChatHub() *ChatHub {
	return &ChatHub{clients: make(map[*ChatClient]struct{})}
}

// Register adds a connection for an authenticated session and starts its
// writer. Each client writes from a single goroutine, so one author's events
// are delivered in the order they were broadcast.
func (h *ChatHub) Register(sess Session, conn ChatConn) *ChatClient {
	c := &ChatClient{
		Session: sess,
		conn:    conn,
		send:    make(chan ChatEvent, clientSendBuffer),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()
	return c
}

// Unregister removes the client and closes its outbound queue. Safe to call
// more than once; session state is deliberately untouched.
func (h *ChatHub) Unregister(c *ChatClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast queues the event for every currently-connected client. Clients
// whose queue is full are dropped after the fan-out completes.
func (h *ChatHub) Broadcast(event ChatEvent) {
	var dropped []*ChatClient

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			dropped = append(dropped, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range dropped {
		h.Unregister(c)
	}
}

// Count reports the number of registered connections.
func (h *ChatHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send queues an event for this client only (welcome messages, errors).
func (c *ChatClient) Send(event ChatEvent) {
	defer func() {
		// The hub may have closed the queue between the caller's check and
		// this send; a message to a departed client is droppable anyway.
		_ = recover()
	}()
	select {
	case c.send <- event:
	default:
	}
}

func (c *ChatClient) writeLoop() {
	for evt := range c.send {
		if err := c.conn.WriteJSON(evt); err != nil {
			break
		}
	}
	c.conn.Close()
}
