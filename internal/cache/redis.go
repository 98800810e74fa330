package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

type Options struct {
	KeyPrefix string
	TTL       time.Duration
	// Jitter adds a random [0, Jitter) to every TTL so carts written together
	// do not expire together.
	Jitter time.Duration
}

var DefaultOptions = Options{
	KeyPrefix: "cart",
	TTL:       15 * time.Minute,
	Jitter:    5 * time.Minute,
}

// Each key is a hash {version, data}. An invalidation marker is the same hash
// without data: it reads as a miss but still blocks fills older than it.
const (
	fieldVersion = "version"
	fieldData    = "data"
)

// KEYS[1] key; ARGV[1] version, ARGV[2] cart JSON, ARGV[3] ttl ms.
var setScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'version') or '-1')
if cur > tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// KEYS[1] key; ARGV[1] version written to the store, ARGV[2] ttl ms.
var invalidateScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'version') or '-1')
if cur > tonumber(ARGV[1]) then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'version', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// RedisCache keeps carts as JSON, one key per user.
type RedisCache struct {
	client redis.UniversalClient
	opts   Options
}

func NewRedisCache(client redis.UniversalClient, opts Options) *RedisCache {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultOptions.KeyPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultOptions.TTL
	}
	return &RedisCache{client: client, opts: opts}
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.HGet(ctx, r.key(userID), fieldData).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", userID, err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("decode cached cart %s: %w", userID, err)
	}
	return &cart, nil
}

// Set stores cart unless the key already holds a newer version or a newer
// invalidation marker.
func (r *RedisCache) Set(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", cart.UserID, err)
	}
	err = setScript.Run(ctx, r.client,
		[]string{r.key(cart.UserID)},
		cart.Version, data, r.ttl().Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis set %s: %w", cart.UserID, err)
	}
	return nil
}

// Invalidate drops the cached cart and records that version is now the
// oldest one a later Set may store.
func (r *RedisCache) Invalidate(ctx context.Context, userID string, version int64) error {
	err := invalidateScript.Run(ctx, r.client,
		[]string{r.key(userID)},
		version, r.ttl().Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis invalidate %s: %w", userID, err)
	}
	return nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) ttl() time.Duration {
	if r.opts.Jitter <= 0 {
		return r.opts.TTL
	}
	return r.opts.TTL + rand.N(r.opts.Jitter)
}

func (r *RedisCache) key(userID string) string {
	return r.opts.KeyPrefix + ":" + userID
}
