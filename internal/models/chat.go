package models

import (
	"time"
)

// ChatMessage is one row of chat history joined with author fields.
// Messages are append-only; ordering is created_at, ties broken by id.
type ChatMessage struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"display_name"`
	NameColor     string    `json:"name_color"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
	FormattedTime string    `json:"formatted_time"` // e.g. "03:04 PM"
}
