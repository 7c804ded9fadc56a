package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultSessionTTL matches the original site's 24h session cookie.
	DefaultSessionTTL = 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
)

// Session is the server-side record behind an opaque token. Both the HTTP
// handlers and the WebSocket handshake resolve identity through it; neither
// keeps its own copy.
type Session struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	NameColor   string    `json:"name_color"`
	LoginTime   time.Time `json:"login_time"`
	VisitCount  int       `json:"visit_count"`
}

// SessionStore is the single source of truth for session state. Tokens are
// opaque lookup keys; a missing or expired token is reported via ok=false,
// never as a retryable error.
type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID, username, displayName, nameColor string) (string, error)
	Get(ctx context.Context, token string) (Session, bool, error)
	// Touch atomically increments the visit counter, refreshes the idle TTL
	// and returns the updated view.
	Touch(ctx context.Context, token string) (Session, bool, error)
	Destroy(ctx context.Context, token string) error
}

// generateSessionToken returns 32 random bytes as URL-safe base64.
func generateSessionToken() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(tokenBytes), nil
}

// RedisSessionStore keeps each session in a Redis hash so the visit counter
// can be bumped with HIncrBy instead of a read-modify-write cycle.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) Create(ctx context.Context, userID uuid.UUID, username, displayName, nameColor string) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", err
	}

	key := SessionKeyPrefix + token
	fields := map[string]interface{}{
		"user_id":      userID.String(),
		"username":     username,
		"display_name": displayName,
		"name_color":   nameColor,
		"login_time":   time.Now().UTC().Format(time.RFC3339Nano),
		"visit_count":  0,
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}

	return token, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (Session, bool, error) {
	if token == "" {
		return Session{}, false, nil
	}

	vals, err := s.client.HGetAll(ctx, SessionKeyPrefix+token).Result()
	if err != nil {
		return Session{}, false, err
	}
	if len(vals) == 0 {
		return Session{}, false, nil
	}

	sess, err := sessionFromHash(vals)
	if err != nil {
		return Session{}, false, err
	}
	return sess, true, nil
}

func (s *RedisSessionStore) Touch(ctx context.Context, token string) (Session, bool, error) {
	if token == "" {
		return Session{}, false, nil
	}
	key := SessionKeyPrefix + token

	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return Session{}, false, err
	}
	if len(vals) == 0 {
		return Session{}, false, nil
	}

	// HIncrBy is atomic per key, so concurrent tabs never lose an increment.
	count, err := s.client.HIncrBy(ctx, key, "visit_count", 1).Result()
	if err != nil {
		return Session{}, false, err
	}
	s.client.Expire(ctx, key, s.ttl)

	sess, err := sessionFromHash(vals)
	if err != nil {
		return Session{}, false, err
	}
	sess.VisitCount = int(count)
	return sess, true, nil
}

func (s *RedisSessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.client.Del(ctx, SessionKeyPrefix+token).Err()
}

func sessionFromHash(vals map[string]string) (Session, error) {
	userID, err := uuid.Parse(vals["user_id"])
	if err != nil {
		return Session{}, err
	}

	loginTime, err := time.Parse(time.RFC3339Nano, vals["login_time"])
	if err != nil {
		return Session{}, err
	}

	count, _ := strconv.Atoi(vals["visit_count"])

	return Session{
		UserID:      userID,
		Username:    vals["username"],
		DisplayName: vals["display_name"],
		NameColor:   vals["name_color"],
		LoginTime:   loginTime,
		VisitCount:  count,
	}, nil
}
