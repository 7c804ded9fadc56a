package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// newTestDB opens an in-memory SQLite database with the forum schema. The
// services use $1-style placeholders and RETURNING, which SQLite shares with
// PostgreSQL, so the same queries run against both.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	// One connection so every statement sees the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name_color TEXT NOT NULL DEFAULT '#02063f',
			bio TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			failed_login_attempts INTEGER NOT NULL DEFAULT 0,
			locked_until TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			last_login TIMESTAMP
		);

		CREATE UNIQUE INDEX idx_users_username_lower ON users (LOWER(username));

		CREATE TABLE comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			votes INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE comment_user_votes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			comment_id INTEGER NOT NULL REFERENCES comments(id) ON DELETE CASCADE,
			vote INTEGER NOT NULL,
			UNIQUE(user_id, comment_id)
		);

		CREATE TABLE chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			message TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

// createTestUser inserts a user with a throwaway password hash and returns
// its id.
func createTestUser(t *testing.T, db *sql.DB, username string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO users (id, username, email, display_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id.String(), username, username+"@example.com", username, "x", now, now)
	require.NoError(t, err)
	return id
}

// createTestComment inserts a comment and returns its id.
func createTestComment(t *testing.T, db *sql.DB, authorID uuid.UUID, text string) int64 {
	t.Helper()

	now := time.Now().UTC()
	var id int64
	err := db.QueryRow(`
		INSERT INTO comments (user_id, text, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, authorID.String(), text, now, now).Scan(&id)
	require.NoError(t, err)
	return id
}

// ledgerSum recomputes the score from the ledger for invariant checks.
func ledgerSum(t *testing.T, db *sql.DB, commentID int64) int {
	t.Helper()

	var sum int
	err := db.QueryRow(`
		SELECT COALESCE(SUM(vote), 0) FROM comment_user_votes WHERE comment_id = $1
	`, commentID).Scan(&sum)
	require.NoError(t, err)
	return sum
}

// storedScore reads the denormalized score column.
func storedScore(t *testing.T, db *sql.DB, commentID int64) int {
	t.Helper()

	var score int
	err := db.QueryRow(`SELECT votes FROM comments WHERE id = $1`, commentID).Scan(&score)
	require.NoError(t, err)
	return score
}
