package config

import "time"

// CacheConfig tunes the response cache on public session status reads.
// Students poll that endpoint while waiting for the session to open;
// a short TTL keeps the submission counter fresh enough while taking
// the poll burst off MySQL.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration // cache entry lifetime
	Prefix       string        // key namespace
	MaxBodyBytes int           // responses larger than this are not cached
}

// LoadCacheConfig reads CACHE_* environment variables with defaults.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 3*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
