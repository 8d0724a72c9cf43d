package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 15 * time.Minute
	maxJitter  = 5 * time.Minute
)

// KEYS[1] cart, KEYS[2] version floor; ARGV cart json, version, cart ttl ms, floor ttl ms
var setScript = redis.NewScript(`
local floor = tonumber(redis.call('GET', KEYS[2]) or '0')
local version = tonumber(ARGV[2])
if version < floor then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[4])
return 1
`)

// KEYS[1] cart, KEYS[2] version floor; ARGV committed version, floor ttl ms
var invalidateScript = redis.NewScript(`
local floor = tonumber(redis.call('GET', KEYS[2]) or '0')
local version = tonumber(ARGV[1])
if version > floor then
	floor = version
end
redis.call('SET', KEYS[2], tostring(floor), 'PX', ARGV[2])
redis.call('DEL', KEYS[1])
return floor
`)

type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
}

func NewRedisCache(client redis.UniversalClient, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = DefaultTTL
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

func (r *RedisCache) Get(ctx context.Context, ownerID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

// Set stores the cart unless a newer version was committed meanwhile, in
// which case it returns ErrStaleCart and leaves Redis untouched.
func (r *RedisCache) Set(ctx context.Context, ownerID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// jitter spreads expiries so carts cached together do not all miss together
	ttl := r.baseTTL + time.Duration(rand.IntN(int(maxJitter/time.Minute)))*time.Minute

	stored, err := setScript.Run(ctx, r.client,
		[]string{cartKey(ownerID), floorKey(ownerID)},
		data, cart.Version, ttl.Milliseconds(), r.floorTTL().Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if stored == 0 {
		return ErrStaleCart
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context, ownerID string, version int64) error {
	err := invalidateScript.Run(ctx, r.client,
		[]string{cartKey(ownerID), floorKey(ownerID)},
		version, r.floorTTL().Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

// floorTTL outlives any cart entry written alongside it.
func (r *RedisCache) floorTTL() time.Duration {
	return r.baseTTL + maxJitter
}

// Both keys share a hash tag so the scripts stay on one cluster slot.
func cartKey(ownerID string) string {
	return fmt.Sprintf("cart:{%s}", ownerID)
}

func floorKey(ownerID string) string {
	return fmt.Sprintf("cart:{%s}:version", ownerID)
}
