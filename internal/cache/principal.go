// Package cache keeps recently resolved principals in Redis so that the
// identity store is not queried on every request.  A cached principal can
// be stale for at most the configured TTL; writes that change a principal
// call Invalidate to end that window early.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// PrincipalCache stores model.Principal values as JSON under
// "<prefix>:<role>:<email>".
type PrincipalCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewPrincipalCache(rdb *redis.Client, prefix string, ttl time.Duration) *PrincipalCache {
	if prefix == "" {
		prefix = "principal"
	}
	return &PrincipalCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *PrincipalCache) key(role model.Role, email string) string {
	return c.prefix + ":" + string(role) + ":" + strings.ToLower(strings.TrimSpace(email))
}

// Get returns the cached principal, or nil on a miss.
func (c *PrincipalCache) Get(ctx context.Context, role model.Role, email string) (*model.Principal, error) {
	b, err := c.rdb.Get(ctx, c.key(role, email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p model.Principal
	if err := json.Unmarshal(b, &p); err != nil {
		// unreadable entry: drop it and treat as a miss
		_ = c.rdb.Del(ctx, c.key(role, email)).Err()
		return nil, nil
	}
	return &p, nil
}

func (c *PrincipalCache) Set(ctx context.Context, p model.Principal) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(p.Role, p.Email), b, c.ttl).Err()
}

func (c *PrincipalCache) Invalidate(ctx context.Context, role model.Role, email string) error {
	return c.rdb.Del(ctx, c.key(role, email)).Err()
}
