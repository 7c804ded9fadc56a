package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/frontier-forum/backend/internal/services"
)

// downSessionStore simulates a Redis outage: every call fails.
type downSessionStore struct{}

var errStoreDown = errors.New("redis: connection refused")

func (downSessionStore) Create(ctx context.Context, userID uuid.UUID, username, displayName, nameColor string) (string, error) {
	return "", errStoreDown
}

func (downSessionStore) Get(ctx context.Context, token string) (services.Session, bool, error) {
	return services.Session{}, false, errStoreDown
}

func (downSessionStore) Touch(ctx context.Context, token string) (services.Session, bool, error) {
	return services.Session{}, false, errStoreDown
}

func (downSessionStore) Destroy(ctx context.Context, token string) error {
	return errStoreDown
}

func TestSessionStoreFailureIsNot401(t *testing.T) {
	env := newTestEnv(t)

	// Swap the session store out from under the handlers.
	comments := NewCommentHandler(env.comments, env.votes, downSessionStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/comments", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	comments.Create(rec, req)

	// A store outage must read as a server problem, never as bad credentials.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/comments/1/vote", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec = httptest.NewRecorder()
	comments.Vote(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", decodeBody(t, rec)["error"])
}

func TestSessionStoreFailureOnProfile(t *testing.T) {
	env := newTestEnv(t)
	profile := NewProfileHandler(env.users, env.comments, downSessionStore{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	profile.Get(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSessionStoreFailureWithoutTokenIsStill401(t *testing.T) {
	env := newTestEnv(t)
	comments := NewCommentHandler(env.comments, env.votes, downSessionStore{})

	// No token presented: the store is never consulted.
	req := httptest.NewRequest(http.MethodPost, "/api/comments", nil)
	rec := httptest.NewRecorder()
	comments.Create(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatSessionStoreFailure(t *testing.T) {
	env := newTestEnv(t)

	hub := services.NewChatHub()
	ws := NewChatWSHandler(hub, env.chat, downSessionStore{})
	server := httptest.NewServer(ws)
	defer server.Close()

	conn := dialChat(t, server, "some-token")

	evt := readEvent(t, conn)
	assert.Equal(t, services.EventTypeError, evt.Type)
	assert.Equal(t, "Chat is temporarily unavailable", evt.Error)
	assert.Equal(t, 0, hub.Count())

	// The server closes after the event.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var next services.ChatEvent
	assert.Error(t, conn.ReadJSON(&next))
}
