package config

import "time"

// PrincipalCacheConfig controls the optional Redis cache in front of the
// identity store.  With TTL zero every request re-queries the store; with
// a positive TTL a role or farm change can take up to TTL to be seen.
type PrincipalCacheConfig struct {
	TTL    time.Duration
	Prefix string
}

// Enabled reports whether resolved principals may be cached at all.
func (c PrincipalCacheConfig) Enabled() bool { return c.TTL > 0 }

func loadPrincipalCache(r *reader) PrincipalCacheConfig {
	return PrincipalCacheConfig{
		TTL:    r.duration("PRINCIPAL_CACHE_TTL", 0),
		Prefix: r.str("PRINCIPAL_CACHE_PREFIX", "principal"),
	}
}
