package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/frontier-forum/backend/internal/services"
)

// ChatHistoryHandler serves the chat page's message history.
type ChatHistoryHandler struct {
	store    *services.ChatMessageStore
	sessions services.SessionStore
}

func NewChatHistoryHandler(store *services.ChatMessageStore, sessions services.SessionStore) *ChatHistoryHandler {
	return &ChatHistoryHandler{store: store, sessions: sessions}
}

// History handles GET /api/chat/history. Only logged-in users see the room's
// messages, matching the original chat page.
func (h *ChatHistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	if _, _, err := requireSession(h.sessions, r); err != nil {
		writeSessionError(w, err)
		return
	}

	limit := services.ChatHistoryLimit
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if parsed, err := strconv.Atoi(lStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	msgs, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("failed to load chat history: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load chat")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": msgs,
	})
}
