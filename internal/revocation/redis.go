package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/luizasposito/sheep-management-system/internal/utils"
)

// minTTL keeps a revocation alive briefly even for a token that is about
// to expire, so clock skew between instances cannot reopen it.
const minTTL = time.Second

// RedisRegistry stores revocations in Redis so every instance sees them
// and they survive restarts.  Each entry is a key
// "<prefix>:<sha256(token)>" whose TTL equals the token's remaining
// lifetime; Redis drops it when the token would have expired anyway.
type RedisRegistry struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisRegistry wraps an already connected client.
func NewRedisRegistry(rdb *redis.Client, prefix string) *RedisRegistry {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisRegistry{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *RedisRegistry) key(token string) string {
	return r.prefix + ":" + utils.HashToken(token)
}

func (r *RedisRegistry) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl < minTTL {
		ttl = minTTL
	}
	key := r.key(token)
	// SET without NX would shorten the TTL of an earlier, longer entry;
	// only extend.
	cur, err := r.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return err
	}
	if cur > ttl {
		return nil
	}
	return r.rdb.Set(ctx, key, "1", ttl).Err()
}

func (r *RedisRegistry) IsRevoked(ctx context.Context, token string) (bool, error) {
	_, err := r.rdb.Get(ctx, r.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
