package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/frontier-forum/backend/internal/services"
)

// SessionCookieName carries the opaque session token for browser clients.
// WebSocket and API clients may instead send "Authorization: Bearer <token>".
const SessionCookieName = "session_token"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func extractBearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// sessionToken pulls the token from the cookie, the Authorization header, or
// the token query parameter, in that order.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if token := extractBearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// requireSession resolves the request's session context. A missing or invalid
// token comes back as services.ErrUnauthenticated; anything else is a session
// store failure, which is the caller's 500, never a 401.
func requireSession(sessions services.SessionStore, r *http.Request) (services.Session, string, error) {
	token := sessionToken(r)
	if token == "" {
		return services.Session{}, "", services.ErrUnauthenticated
	}
	sess, ok, err := sessions.Get(r.Context(), token)
	if err != nil {
		return services.Session{}, "", fmt.Errorf("session lookup: %w", err)
	}
	if !ok {
		return services.Session{}, "", services.ErrUnauthenticated
	}
	return sess, token, nil
}

// writeSessionError maps a requireSession failure onto 401 or 500.
func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrUnauthenticated) {
		writeError(w, http.StatusUnauthorized, "Login required")
		return
	}
	log.Printf("session lookup failed: %v", err)
	writeError(w, http.StatusInternalServerError, "An internal server error occurred.")
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
