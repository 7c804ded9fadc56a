package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/frontier-forum/backend/internal/services"
)

// testEnv wires the handlers against an in-memory SQLite database and the
// in-memory session store, mounted on the same routes the server uses.
type testEnv struct {
	db       *sql.DB
	users    *services.UserService
	sessions *services.MemorySessionStore
	comments *services.CommentService
	votes    *services.VoteService
	hub      *services.ChatHub
	chat     *services.ChatMessageStore
	router   *chi.Mux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
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

	env := &testEnv{
		db:       db,
		users:    services.NewUserService(db),
		sessions: services.NewMemorySessionStore(time.Hour),
		comments: services.NewCommentService(db),
		votes:    services.NewVoteService(db),
		hub:      services.NewChatHub(),
		chat:     services.NewChatMessageStore(db),
	}

	auth := NewAuthHandler(env.users, env.sessions, time.Hour)
	comments := NewCommentHandler(env.comments, env.votes, env.sessions)
	profile := NewProfileHandler(env.users, env.comments, env.sessions, nil)
	chatHistory := NewChatHistoryHandler(env.chat, env.sessions)
	chatWS := NewChatWSHandler(env.hub, env.chat, env.sessions)

	r := chi.NewRouter()
	r.Post("/api/auth/register", auth.Register)
	r.Post("/api/auth/login", auth.Login)
	r.Post("/api/auth/logout", auth.Logout)
	r.Get("/api/auth/me", auth.Me)
	r.Get("/api/comments", comments.List)
	r.Post("/api/comments", comments.Create)
	r.Post("/api/comments/{id}/vote", comments.Vote)
	r.Get("/api/profile", profile.Get)
	r.Put("/api/profile/password", profile.UpdatePassword)
	r.Put("/api/profile/email", profile.UpdateEmail)
	r.Put("/api/profile/display-name", profile.UpdateDisplayName)
	r.Put("/api/profile/customization", profile.UpdateCustomization)
	r.Post("/api/profile/avatar", profile.UploadAvatar)
	r.Get("/api/chat/history", chatHistory.History)
	r.Get("/ws/chat", chatWS.ServeHTTP)
	env.router = r

	return env
}

// registerAndLogin creates an account through the API and returns the session
// token from the login response.
func (env *testEnv) registerAndLogin(t *testing.T, username, password string) string {
	t.Helper()

	resp := env.postJSON(t, "/api/auth/register", map[string]string{
		"username":     username,
		"email":        username + "@example.com",
		"display_name": username,
		"password":     password,
	}, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = env.postJSON(t, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func (env *testEnv) postJSON(t *testing.T, path string, payload interface{}, token string) *httptest.ResponseRecorder {
	return env.sendJSON(t, http.MethodPost, path, payload, token)
}

func (env *testEnv) putJSON(t *testing.T, path string, payload interface{}, token string) *httptest.ResponseRecorder {
	return env.sendJSON(t, http.MethodPut, path, payload, token)
}

func (env *testEnv) sendJSON(t *testing.T, method, path string, payload interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	buf, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (env *testEnv) createComment(t *testing.T, token, text string) int64 {
	t.Helper()

	resp := env.postJSON(t, "/api/comments", map[string]string{"text": text}, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	body := decodeBody(t, resp)
	return int64(body["id"].(float64))
}
