package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the account record stored in PostgreSQL. PasswordHash and the
// lockout bookkeeping never leave the services layer.
type User struct {
	ID                  uuid.UUID  `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	DisplayName         string     `json:"display_name"`
	PasswordHash        string     `json:"-"`
	NameColor           string     `json:"name_color"`
	Bio                 string     `json:"bio"`
	AvatarURL           string     `json:"avatar_url,omitempty"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
}

// PublicProfile is the view handed to the frontend for the profile page.
type PublicProfile struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	NameColor   string     `json:"name_color"`
	Bio         string     `json:"bio"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// Public strips credential and lockout fields.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		NameColor:   u.NameColor,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		CreatedAt:   u.CreatedAt,
		LastLogin:   u.LastLogin,
	}
}
