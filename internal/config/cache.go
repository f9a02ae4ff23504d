package config

import "time"

// CacheConfig defines settings for the response cache middleware.  Caching
// is applied only to the public tracking lookup, which customers poll while
// waiting on a repair; everything behind authentication stays uncached.
// When Enabled is false or no Redis client is available the middleware is a
// pass-through.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads cache settings from the environment with defaults.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
