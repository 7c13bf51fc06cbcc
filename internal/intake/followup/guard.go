package followup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard claims an email address so only one follow-up is scheduled for it
type Guard interface {
	Acquire(ctx context.Context, email string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, email string) error
}

// NopGuard always grants the claim
type NopGuard struct{}

func (NopGuard) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (NopGuard) Release(context.Context, string) error                      { return nil }

// redisClient is the subset of redis.Cmdable the guard needs
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisGuard claims "<prefix>:followup:<email>" with SET NX and an expiry
type RedisGuard struct {
	client redisClient
	prefix string
}

// NewRedisGuard creates a guard; prefix namespaces the keys, e.g. the service name
func NewRedisGuard(client redisClient, prefix string) *RedisGuard {
	return &RedisGuard{client: client, prefix: prefix}
}

// Key returns the Redis key guarding email
func (g *RedisGuard) Key(email string) string {
	return g.prefix + ":followup:" + email
}

func (g *RedisGuard) Acquire(ctx context.Context, email string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, g.Key(email), time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, email string) error {
	return g.client.Del(ctx, g.Key(email)).Err()
}
