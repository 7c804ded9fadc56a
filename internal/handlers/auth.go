package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/frontier-forum/backend/internal/services"
	"github.com/frontier-forum/backend/pkg/utils"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is shared by register and login.
type AuthResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    interface{} `json:"user,omitempty"`
	Token   string      `json:"token,omitempty"`
}

// AuthHandler wires registration, login/logout and session introspection.
type AuthHandler struct {
	users      *services.UserService
	sessions   services.SessionStore
	sessionTTL time.Duration
}

func NewAuthHandler(users *services.UserService, sessions services.SessionStore, sessionTTL time.Duration) *AuthHandler {
	if sessionTTL <= 0 {
		sessionTTL = services.DefaultSessionTTL
	}
	return &AuthHandler{users: users, sessions: sessions, sessionTTL: sessionTTL}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.DisplayName = strings.TrimSpace(req.DisplayName)

	if req.Username == "" || req.Email == "" || req.DisplayName == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username, email, display name and password are required.")
		return
	}
	if !emailPattern.MatchString(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email format.")
		return
	}
	if problems := utils.ValidatePassword(req.Password); len(problems) > 0 {
		writeError(w, http.StatusBadRequest, "Password does not meet requirements: "+strings.Join(problems, ", "))
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Email, req.DisplayName, req.Password)
	if err != nil {
		var conflict *services.ConflictError
		if errors.As(err, &conflict) {
			writeError(w, http.StatusConflict, "That "+conflict.Field+" is already in use.")
			return
		}
		log.Printf("registration error: %v", err)
		writeError(w, http.StatusInternalServerError, "An internal server error occurred.")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created successfully",
		User:    user.Public(),
	})
}

// Login handles POST /api/auth/login. Success creates the session context and
// sets the cookie; a locked account answers 423 with the remaining minutes.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required.")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		var locked *services.LockedError
		switch {
		case errors.As(err, &locked):
			writeJSON(w, http.StatusLocked, map[string]interface{}{
				"success":           false,
				"message":           locked.Error(),
				"remaining_minutes": locked.RemainingMinutes(),
			})
		case errors.Is(err, services.ErrInvalidCredentials):
			// Uniform message: never reveal whether the username exists.
			writeError(w, http.StatusUnauthorized, "Invalid username or password.")
		default:
			log.Printf("login error: %v", err)
			writeError(w, http.StatusInternalServerError, "An internal server error occurred.")
		}
		return
	}

	token, err := h.sessions.Create(r.Context(), user.ID, user.Username, user.DisplayName, user.NameColor)
	if err != nil {
		log.Printf("failed to create session: %v", err)
		writeError(w, http.StatusInternalServerError, "An internal server error occurred.")
		return
	}

	setSessionCookie(w, token, h.sessionTTL)
	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		User:    user.Public(),
		Token:   token,
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.sessions.Destroy(r.Context(), token); err != nil {
			log.Printf("failed to destroy session: %v", err)
		}
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

// Me handles GET /api/auth/me. Each call is an identity-bearing page view, so
// it bumps the session's visit counter.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Login required")
		return
	}

	sess, ok, err := h.sessions.Touch(r.Context(), token)
	if err != nil {
		log.Printf("session lookup error: %v", err)
		writeError(w, http.StatusInternalServerError, "An internal server error occurred.")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "Login required")
		return
	}

	user, err := h.users.GetUserByID(r.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Login required")
			return
		}
		log.Printf("failed to load user: %v", err)
		writeError(w, http.StatusInternalServerError, "An internal server error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"user":        user.Public(),
		"login_time":  sess.LoginTime,
		"visit_count": sess.VisitCount,
	})
}
