package redis

import (
	"context"
	"sync"
	"time"

	"contest-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions live in a local map; their lock state is per-session and never shared.
//   - Redis holds a liveness marker per session (SET contest:session:{id} {userID} EX ttl)
//     which every lookup refreshes. A session whose marker expired is dropped.
//   - A Redis outage does not evict sessions; liveness checks are best-effort.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Save(ctx context.Context, session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	_ = s.client.Set(ctx, s.key(session.ID()), session.UserID(), s.ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	alive, err := s.touch(ctx, sessionID)
	if err != nil || alive {
		return session, true
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil, false
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	_ = s.client.Del(ctx, s.key(sessionID)).Err()
}

// touch refreshes the liveness marker and reports whether it still existed.
func (s *SessionStore) touch(ctx context.Context, sessionID string) (bool, error) {
	if s.ttl <= 0 {
		n, err := s.client.Exists(ctx, s.key(sessionID)).Result()
		return n > 0, err
	}
	return s.client.Expire(ctx, s.key(sessionID), s.ttl).Result()
}

func (s *SessionStore) key(sessionID string) string {
	return "contest:session:" + sessionID
}
