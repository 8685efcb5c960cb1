package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/codr1/Spinergy/internal/cache"
)

// Deduper claims a delivery key once. Claim reports true only for the first caller within
// the retention window.
type Deduper interface {
	Claim(ctx context.Context, key string) (bool, error)
}

// MemoryDeduper keeps claims in a bounded in-process cache. Claims do not survive a
// restart and are not shared between replicas.
type MemoryDeduper struct {
	claims *cache.TTL[string, struct{}]
}

func NewMemoryDeduper(size int, ttl time.Duration, clock clockwork.Clock) (*MemoryDeduper, error) {
	if size <= 0 {
		size = 10000
	}
	claims, err := cache.NewTTL[string, struct{}](size, ttl, clock)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &MemoryDeduper{claims: claims}, nil
}

func (d *MemoryDeduper) Claim(_ context.Context, key string) (bool, error) {
	return d.claims.AddIfAbsent(key, struct{}{}), nil
}

// RedisDeduper claims keys with SET NX so every replica shares one claim set.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration, prefix string) *RedisDeduper {
	if prefix == "" {
		prefix = "notify"
	}
	return &RedisDeduper{client: client, ttl: ttl, prefix: prefix}
}

func (d *RedisDeduper) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+":"+key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

// RedisReadyCheck pings the dedupe store.
func RedisReadyCheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
