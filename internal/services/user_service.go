package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frontier-forum/backend/internal/models"
	"github.com/frontier-forum/backend/pkg/utils"
)

// UserService owns the users table: registration, authentication with the
// lockout state machine, and profile updates.
type UserService struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db, now: time.Now}
}

const userColumns = `id, username, email, display_name, password_hash, name_color, bio, avatar_url,
	failed_login_attempts, locked_until, created_at, updated_at, last_login`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var idStr string
	err := row.Scan(&idStr, &u.Username, &u.Email, &u.DisplayName, &u.PasswordHash,
		&u.NameColor, &u.Bio, &u.AvatarURL, &u.FailedLoginAttempts, &u.LockedUntil,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	if err != nil {
		return nil, err
	}
	u.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Register creates an account. Username, email and display name are unique;
// a collision comes back as *ConflictError naming the field, with no partial
// account left behind.
func (s *UserService) Register(ctx context.Context, username, email, displayName, password string) (*models.User, error) {
	passwordHash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.New()
	now := s.now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, display_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id.String(), username, email, displayName, passwordHash, now, now)
	if err != nil {
		if field := uniqueViolationField(err); field != "" {
			return nil, &ConflictError{Field: field}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// Authenticate runs the lockout state machine around credential verification.
// Unknown username and wrong password both return ErrInvalidCredentials; a
// live lock returns *LockedError with the remaining wait time. Failed
// attempts reset to zero exactly on success.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.getUserByUsername(ctx, username)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	now := s.now().UTC()
	state := LockState{FailedAttempts: user.FailedLoginAttempts, LockedUntil: user.LockedUntil}

	if remaining, locked := state.Remaining(now); locked {
		return nil, &LockedError{Remaining: remaining}
	}

	valid, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil || !valid {
		next := state.RecordFailure(now)
		if uerr := s.writeLockState(ctx, user.ID, next); uerr != nil {
			return nil, fmt.Errorf("failed to record login failure: %w", uerr)
		}
		return nil, ErrInvalidCredentials
	}

	// Success clears the counter and any expired lock, and stamps last_login.
	_, err = s.db.ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL, last_login = $1
		WHERE id = $2
	`, now, user.ID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLogin = &now
	return user, nil
}

func (s *UserService) getUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE LOWER(username) = LOWER($1)
	`, username)
	return scanUser(row)
}

func (s *UserService) writeLockState(ctx context.Context, userID uuid.UUID, state LockState) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET failed_login_attempts = $1, locked_until = $2 WHERE id = $3
	`, state.FailedAttempts, state.LockedUntil, userID.String())
	return err
}

// GetUserByID loads a full user record.
func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE id = $1
	`, userID.String())
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// UpdatePassword verifies the current password before swapping in the new
// hash. The caller is responsible for destroying the session afterwards.
func (s *UserService) UpdatePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	valid, err := utils.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}

	newHash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3
	`, newHash, s.now().UTC(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// UpdateEmail verifies the current password, then changes the address. A
// duplicate comes back as *ConflictError.
func (s *UserService) UpdateEmail(ctx context.Context, userID uuid.UUID, currentPassword, newEmail string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	valid, err := utils.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE users SET email = $1, updated_at = $2 WHERE id = $3
	`, newEmail, s.now().UTC(), userID.String())
	if err != nil {
		if field := uniqueViolationField(err); field != "" {
			return &ConflictError{Field: field}
		}
		return fmt.Errorf("failed to update email: %w", err)
	}
	return nil
}

// UpdateDisplayName changes the display name; duplicates are a conflict.
func (s *UserService) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET display_name = $1, updated_at = $2 WHERE id = $3
	`, displayName, s.now().UTC(), userID.String())
	if err != nil {
		if field := uniqueViolationField(err); field != "" {
			return &ConflictError{Field: field}
		}
		return fmt.Errorf("failed to update display name: %w", err)
	}
	return nil
}

// UpdateCustomization stores the profile's name color and bio.
func (s *UserService) UpdateCustomization(ctx context.Context, userID uuid.UUID, nameColor, bio string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET name_color = $1, bio = $2, updated_at = $3 WHERE id = $4
	`, nameColor, bio, s.now().UTC(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to update customization: %w", err)
	}
	return nil
}

// UpdateAvatarURL stores the Cloudinary URL returned by the upload handler.
func (s *UserService) UpdateAvatarURL(ctx context.Context, userID uuid.UUID, avatarURL string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET avatar_url = $1, updated_at = $2 WHERE id = $3
	`, avatarURL, s.now().UTC(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	return nil
}
