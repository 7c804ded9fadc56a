package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/frontier-forum/backend/internal/handlers"
)

// Handlers collects everything the router mounts.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Comments    *handlers.CommentHandler
	Profile     *handlers.ProfileHandler
	ChatHistory *handlers.ChatHistoryHandler
	ChatWS      *handlers.ChatWSHandler
}

func SetupRoutes(r *chi.Mux, h Handlers) {
	// Auth routes
	r.Post("/api/auth/register", h.Auth.Register)
	r.Post("/api/auth/login", h.Auth.Login)
	r.Post("/api/auth/logout", h.Auth.Logout)
	r.Get("/api/auth/me", h.Auth.Me)

	// Comment board routes
	r.Get("/api/comments", h.Comments.List)
	r.Post("/api/comments", h.Comments.Create)
	r.Post("/api/comments/{id}/vote", h.Comments.Vote)

	// Profile routes
	r.Get("/api/profile", h.Profile.Get)
	r.Put("/api/profile/password", h.Profile.UpdatePassword)
	r.Put("/api/profile/email", h.Profile.UpdateEmail)
	r.Put("/api/profile/display-name", h.Profile.UpdateDisplayName)
	r.Put("/api/profile/customization", h.Profile.UpdateCustomization)
	r.Post("/api/profile/avatar", h.Profile.UploadAvatar)

	// Chat history (page load) + live chat WebSocket
	r.Get("/api/chat/history", h.ChatHistory.History)
	r.Get("/ws/chat", h.ChatWS.ServeHTTP)
}
