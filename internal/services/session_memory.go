package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySessionStore is the Redis-less SessionStore used in tests and local
// development. Expiry is lazy: a stale entry is dropped on the next lookup.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

type memorySession struct {
	session   Session
	expiresAt time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Create(ctx context.Context, userID uuid.UUID, username, displayName, nameColor string) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	s.mu.Lock()
	s.sessions[token] = &memorySession{
		session: Session{
			UserID:      userID,
			Username:    username,
			DisplayName: displayName,
			NameColor:   nameColor,
			LoginTime:   now.UTC(),
		},
		expiresAt: now.Add(s.ttl),
	}
	s.mu.Unlock()

	return token, nil
}

func (s *MemorySessionStore) Get(ctx context.Context, token string) (Session, bool, error) {
	if token == "" {
		return Session{}, false, nil
	}

	s.mu.RLock()
	entry, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false, nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return Session{}, false, nil
	}

	s.mu.RLock()
	sess := entry.session
	s.mu.RUnlock()
	return sess, true, nil
}

func (s *MemorySessionStore) Touch(ctx context.Context, token string) (Session, bool, error) {
	if token == "" {
		return Session{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[token]
	if !ok {
		return Session{}, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.sessions, token)
		return Session{}, false, nil
	}

	entry.session.VisitCount++
	entry.expiresAt = s.now().Add(s.ttl)
	return entry.session, true, nil
}

func (s *MemorySessionStore) Destroy(ctx context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}
