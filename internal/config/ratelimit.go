package config

import "time"

// RateLimitConfig tunes the Redis token bucket placed in front of every
// route.  Routes that call the movie database (search, select, API create)
// additionally pass through a smaller bucket sized by LookupCapacity so a
// single client cannot drain the API quota.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	LookupCapacity int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string // ip | user | route | ip_user | ip_route | user_route | all
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  RATE_LIMIT_BURST and
// RATE_LIMIT_REFILL_EVERY are accepted as shorthands for capacity and a
// one-token refill interval.
func LoadRateLimitConfig() RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		LookupCapacity: envInt("RATE_LIMIT_LOOKUP_CAPACITY", 10),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "movies:rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
		rl.Capacity = b
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		rl.RefillTokens = 1
		rl.RefillInterval = every
	}
	return rl.normalize()
}

// Lookup returns the configuration of the movie database bucket.  The
// bucket is keyed by client IP alone so every lookup route draws from it.
func (rl RateLimitConfig) Lookup() RateLimitConfig {
	out := rl
	out.Capacity = rl.LookupCapacity
	out.Prefix = rl.Prefix + ":lookup"
	out.KeyStrategy = "ip"
	return out.normalize()
}

func (rl RateLimitConfig) normalize() RateLimitConfig {
	if rl.Capacity < 1 {
		rl.Capacity = 1
	}
	if rl.LookupCapacity < 1 {
		rl.LookupCapacity = rl.Capacity
	}
	if rl.RefillTokens < 1 {
		rl.RefillTokens = 1
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	// buckets must outlive a full refill cycle
	if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
		rl.TTL = minTTL
	}
	return rl
}
