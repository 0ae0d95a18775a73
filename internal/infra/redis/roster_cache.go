package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"contest-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// UserLoader fetches the users snapshot from the backing store.
type UserLoader interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// RosterCache shares the users snapshot between instances through Redis and
// falls back to the loader on a miss. The snapshot is stored as JSON:
//
//	SET contest:roster {json} EX ttl
type RosterCache struct {
	client *redis.Client
	loader UserLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

const rosterKey = "contest:roster"

func NewRosterCache(client *redis.Client, loader UserLoader, ttl time.Duration) *RosterCache {
	return &RosterCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *RosterCache) ListUsers(ctx context.Context) ([]domain.User, error) {
	if users, ok := c.cached(ctx); ok {
		return users, nil
	}

	result, err, _ := c.sf.Do(rosterKey, func() (interface{}, error) {
		// Re-check in case another instance filled it.
		if users, ok := c.cached(ctx); ok {
			return users, nil
		}

		users, err := c.loader.ListUsers(ctx)
		if err != nil {
			return nil, err
		}

		if ttl := c.ttlWithJitter(); ttl > 0 {
			if payload, err := json.Marshal(users); err == nil {
				// best-effort; the next reader reloads on failure
				_ = c.client.Set(ctx, rosterKey, payload, ttl).Err()
			}
		}
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.User), nil
}

// Invalidate drops the shared snapshot so the next read goes to the store.
func (c *RosterCache) Invalidate(ctx context.Context) {
	_ = c.client.Del(ctx, rosterKey).Err()
}

func (c *RosterCache) cached(ctx context.Context) ([]domain.User, bool) {
	payload, err := c.client.Get(ctx, rosterKey).Bytes()
	if err != nil {
		return nil, false
	}
	var users []domain.User
	if err := json.Unmarshal(payload, &users); err != nil {
		return nil, false
	}
	return users, true
}

func (c *RosterCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
