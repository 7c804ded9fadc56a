package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/frontier-forum/backend/internal/services"
)

type CreateCommentRequest struct {
	Text string `json:"text"`
}

type VoteRequest struct {
	Reaction int `json:"reaction"`
}

// CommentHandler serves the paginated board and per-comment voting.
type CommentHandler struct {
	comments *services.CommentService
	votes    *services.VoteService
	sessions services.SessionStore
}

func NewCommentHandler(comments *services.CommentService, votes *services.VoteService, sessions services.SessionStore) *CommentHandler {
	return &CommentHandler{comments: comments, votes: votes, sessions: sessions}
}

// List handles GET /api/comments?page=N. The board is public.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	result, err := h.comments.ListPage(r.Context(), page)
	if err != nil {
		log.Printf("failed to list comments: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load comments")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Create handles POST /api/comments.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, _, err := requireSession(h.sessions, r)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "Comment text is required.")
		return
	}

	id, err := h.comments.Create(r.Context(), sess.UserID, req.Text)
	if err != nil {
		log.Printf("failed to create comment: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create comment")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"id":      id,
	})
}

// Vote handles POST /api/comments/{id}/vote with reaction 1 or -1. The
// response carries the post-update score read back from the ledger.
func (h *CommentHandler) Vote(w http.ResponseWriter, r *http.Request) {
	sess, _, err := requireSession(h.sessions, r)
	if err != nil {
		if errors.Is(err, services.ErrUnauthenticated) {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false,
				"error":   "Login required",
			})
			return
		}
		log.Printf("session lookup failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Server error",
		})
		return
	}

	commentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "Invalid comment id",
		})
		return
	}

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "Invalid request body",
		})
		return
	}

	score, err := h.votes.CastVote(r.Context(), sess.UserID, commentID, req.Reaction)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   "Invalid vote",
			})
		case errors.Is(err, services.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"success": false,
				"error":   "Comment not found",
			})
		default:
			log.Printf("vote error: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"error":   "Server error",
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"score":   score,
	})
}
