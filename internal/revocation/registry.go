// Package revocation records access tokens that were explicitly
// invalidated by logout and must be rejected even while their signature
// and expiry are still valid.
//
// Entries are keyed by the exact token string.  Revoking one token leaves
// every other token of the same subject untouched.
package revocation

import (
	"context"
	"time"
)

// Registry is consulted on every authenticated request.  Implementations
// must be safe for concurrent use.
type Registry interface {
	// Revoke marks token as revoked until expiresAt, the token's natural
	// expiry.  Revoking an already revoked token is a no-op.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	// IsRevoked reports whether token has been revoked.  A token that was
	// never revoked, or never issued, returns false.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Backend names accepted by REVOCATION_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)
