package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frontier-forum/backend/internal/services"
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS for WebSocket is handled at the HTTP layer already.
		return true
	},
}

// ChatClientMessage represents messages coming from the frontend over WebSocket.
type ChatClientMessage struct {
	Type    string `json:"type"` // "sendMessage", "ping"
	Message string `json:"message,omitempty"`
	// Clients sometimes echo identity fields; they are ignored. The author
	// is always the connection's resolved session.
	Username string `json:"username,omitempty"`
}

// ChatWSHandler serves the live chat room over WebSocket.
type ChatWSHandler struct {
	hub      *services.ChatHub
	store    *services.ChatMessageStore
	sessions services.SessionStore
	now      func() time.Time
}

func NewChatWSHandler(hub *services.ChatHub, store *services.ChatMessageStore, sessions services.SessionStore) *ChatWSHandler {
	return &ChatWSHandler{hub: hub, store: store, sessions: sessions, now: time.Now}
}

// ServeHTTP handles GET /ws/chat.
//
// The session token travels in the handshake (cookie, Authorization header or
// ?token=). An unauthenticated connection is accepted just long enough to
// receive one error event, then closed; it is never registered with the hub
// and no inbound message is processed before the check passes.
func (h *ChatWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)

	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sess, ok, err := h.sessions.Get(r.Context(), token)
	if err != nil {
		// Store failure, not a credential problem; don't tell the client to
		// log in again.
		log.Printf("session lookup failed: %v", err)
		_ = conn.WriteJSON(services.ChatEvent{
			Type:      services.EventTypeError,
			Error:     "Chat is temporarily unavailable",
			Timestamp: h.now().UTC(),
		})
		conn.Close()
		return
	}
	if !ok {
		_ = conn.WriteJSON(services.ChatEvent{
			Type:      services.EventTypeError,
			Error:     "Please log in to use the chat",
			Timestamp: h.now().UTC(),
		})
		conn.Close()
		return
	}

	client := h.hub.Register(sess, conn)
	defer h.hub.Unregister(client)

	client.Send(services.ChatEvent{
		Type:        services.EventTypeConnected,
		UserID:      sess.UserID.String(),
		Username:    sess.Username,
		DisplayName: sess.DisplayName,
		NameColor:   sess.NameColor,
		Message:     "Welcome " + sess.DisplayName + "!",
		Timestamp:   h.now().UTC(),
	})

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Disconnect is unconditional cleanup of this connection only;
			// the session (and any other tabs) stay alive.
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var msg ChatClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "sendMessage":
			h.handleSendMessage(sess, msg)
		case "ping":
			// Deadline already refreshed above.
		default:
			// Ignore unknown types
		}
	}
}

// handleSendMessage broadcasts to all peers immediately and persists a
// durable copy with the same timestamp. The two effects are deliberately not
// linked: a failed write never recalls the broadcast, and an empty room never
// skips the write.
func (h *ChatWSHandler) handleSendMessage(sess services.Session, msg ChatClientMessage) {
	text := strings.TrimSpace(msg.Message)
	if text == "" {
		return
	}

	ts := h.now().UTC()

	h.hub.Broadcast(services.ChatEvent{
		Type:        services.EventTypeMessage,
		UserID:      sess.UserID.String(),
		Username:    sess.Username,
		DisplayName: sess.DisplayName,
		NameColor:   sess.NameColor,
		Message:     text,
		Timestamp:   ts,
	})

	h.store.SaveAsync(sess.UserID, text, ts)
}
