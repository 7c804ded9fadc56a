package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/frontier-forum/backend/internal/services"
	"github.com/frontier-forum/backend/pkg/utils"
)

var nameColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type UpdateEmailRequest struct {
	CurrentPassword string `json:"current_password"`
	NewEmail        string `json:"new_email"`
	ConfirmEmail    string `json:"confirm_email"`
}

type UpdateDisplayNameRequest struct {
	DisplayName string `json:"display_name"`
}

type UpdateCustomizationRequest struct {
	NameColor string `json:"name_color"`
	Bio       string `json:"bio"`
}

// ProfileHandler serves the profile page data and the account-management
// updates behind it.
type ProfileHandler struct {
	users    *services.UserService
	comments *services.CommentService
	sessions services.SessionStore
	uploads  *services.CloudinaryService
}

func NewProfileHandler(users *services.UserService, comments *services.CommentService, sessions services.SessionStore, uploads *services.CloudinaryService) *ProfileHandler {
	return &ProfileHandler{users: users, comments: comments, sessions: sessions, uploads: uploads}
}

// Get handles GET /api/profile: the account record plus the author's ten most
// recent comments.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, _, err := requireSession(h.sessions, r)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		log.Printf("failed to load profile: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	recent, err := h.comments.RecentByUser(r.Context(), sess.UserID, 10)
	if err != nil {
		log.Printf("failed to load recent comments: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"user":     user.Public(),
		"comments": recent,
	})
}

// UpdatePassword handles PUT /api/profile/password. A successful change
// destroys the current session so the user logs in again.
func (h *ProfileHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	sess, token, err := requireSession(h.sessions, r)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	var req UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		writeError(w, http.StatusBadRequest, "All fields are required.")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "Passwords do not match.")
		return
	}
	if problems := utils.ValidatePassword(req.NewPassword); len(problems) > 0 {
		writeError(w, http.StatusBadRequest, "Password does not meet requirements: "+strings.Join(problems, ", "))
		return
	}

	if err := h.users.UpdatePassword(r.Context(), sess.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, "Current password is invalid.")
			return
		}
		log.Printf("failed to update password: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update password.")
		return
	}

	if err := h.sessions.Destroy(r.Context(), token); err != nil {
		log.Printf("failed to destroy session after password change: %v", err)
	}
	clearSessionCookie(w)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password changed! Please login again.",
	})
}

// UpdateEmail handles PUT /api/profile/email.
func (h *ProfileHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	sess, _, err := requireSession(h.sessions, r)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	var req UpdateEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.NewEmail = strings.TrimSpace(req.NewEmail)
	req.ConfirmEmail = strings.TrimSpace(req.ConfirmEmail)

	if req.CurrentPassword == "" || req.NewEmail == "" || req.ConfirmEmail == "" {
		writeError(w, http.StatusBadRequest, "All fields are required.")
		return
	}
	if req.NewEmail != req.ConfirmEmail {
		writeError(w, http.StatusBadRequest, "New email does not match.")
		return
	}
	if !emailPattern.MatchString(req.NewEmail) {
		writeError(w, http.StatusBadRequest, "Invalid email format.")
		return
	}

	if err := h.users.UpdateEmail(r.Context(), sess.UserID, req.CurrentPassword, req.NewEmail); err != nil {
		var conflict *services.ConflictError
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "Current password is incorrect.")
		case errors.As(err, &conflict):
			writeError(w, http.StatusConflict, "Email already in use.")
		default:
			log.Printf("failed to update email: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to update email.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Email updated successfully",
	})
}

// UpdateDisplayName handles PUT /api/profile/display-name.
func (h *ProfileHandler) UpdateDisplayName(w http.ResponseWriter, r *http.Request) {
	sess, _, err := requireSession(h.sessions, r)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	var req UpdateDisplayNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "Display name is required.")
		return
	}

	if err := h.users.UpdateDisplayName(r.Context(), sess.UserID, req.DisplayName); err != nil {
		var conflict *services.ConflictError
		if errors.As(err, &conflict) {
			writeError(w, http.StatusConflict, "Display name already in use.")
			return
		}
		log.Printf("failed to update display name: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update display name.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Display name updated successfully",
	})
}

// UpdateCustomization handles PUT /api/profile/customization: name color and
// bio.
func (h *ProfileHandler) UpdateCustomization(w http.ResponseWriter, r *http.Request) {
	sess, _, err := requireSession(h.sessions, r)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	var req UpdateCustomizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.NameColor != "" && !nameColorPattern.MatchString(req.NameColor) {
		writeError(w, http.StatusBadRequest, "Invalid color format")
		return
	}

	if err := h.users.UpdateCustomization(r.Context(), sess.UserID, req.NameColor, req.Bio); err != nil {
		log.Printf("failed to update customization: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Profile updated successfully",
	})
}

// UploadAvatar handles POST /api/profile/avatar (multipart, field "file").
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	sess, _, err := requireSession(h.sessions, r)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	if h.uploads == nil {
		writeError(w, http.StatusServiceUnavailable, "Avatar uploads are not available")
		return
	}

	// Max 5MB avatar
	if err := r.ParseMultipartForm(5 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	url, err := h.uploads.UploadAvatar(r.Context(), fileHeader)
	if err != nil {
		log.Printf("avatar upload failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload avatar")
		return
	}

	if err := h.users.UpdateAvatarURL(r.Context(), sess.UserID, url); err != nil {
		log.Printf("failed to store avatar url: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload avatar")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"url":     url,
	})
}
