package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"contest-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// UserLoader fetches the users snapshot from the backing store.
type UserLoader interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
}

const rosterKey = "roster"

// RosterCache caches the users snapshot with a short TTL to avoid a full table
// read on every leaderboard render.
type RosterCache struct {
	loader UserLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	entry *cachedRoster
}

type cachedRoster struct {
	users     []domain.User
	expiresAt time.Time
}

func NewRosterCache(loader UserLoader, ttl time.Duration) *RosterCache {
	return NewRosterCacheWithClock(loader, ttl, time.Now)
}

// NewRosterCacheWithClock allows deterministic expiry in tests.
func NewRosterCacheWithClock(loader UserLoader, ttl time.Duration, clock func() time.Time) *RosterCache {
	return &RosterCache{
		loader: loader,
		ttl:    ttl,
		clock:  clock,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *RosterCache) ListUsers(ctx context.Context) ([]domain.User, error) {
	if users, ok := c.fresh(c.clock()); ok {
		return users, nil
	}

	result, err, _ := c.sf.Do(rosterKey, func() (interface{}, error) {
		now := c.clock()
		if users, ok := c.fresh(now); ok {
			return users, nil
		}

		users, err := c.loader.ListUsers(ctx)
		if err != nil {
			return nil, err
		}

		expiresAt := now.Add(c.ttlWithJitter())
		c.mu.Lock()
		c.entry = &cachedRoster{users: users, expiresAt: expiresAt}
		c.mu.Unlock()
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.User), nil
}

// Invalidate drops the cached snapshot so the next read goes to the store.
func (c *RosterCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}

func (c *RosterCache) fresh(now time.Time) ([]domain.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry != nil && c.entry.expiresAt.After(now) {
		return c.entry.users, true
	}
	return nil, false
}

func (c *RosterCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
