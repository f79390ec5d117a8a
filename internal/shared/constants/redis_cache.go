package constants

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// Redis Cache Configuration
// This file centralizes all Redis keys and TTL values for the pricewatch service
// Pattern: pricewatch:{module}:{operation}:{identifier}

// ================== CACHE TTL DURATIONS ==================

// Sessions (Long TTL: survive a browsing day)
const (
	TTL_SESSION_DEFAULT = 24 * time.Hour // overridden by REDIS_SESSION_TTL
)

// Data source lookups (Short TTL: the scraper publishes new files a few times a day)
const (
	TTL_PROBE_RESULT = 10 * time.Minute // existence of one price data file
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "pricewatch"
)

// ================== SESSIONS MODULE ==================

const (
	CACHE_KEY_SESSION_SELECTION = CACHE_PREFIX + ":sessions:selection:uuid:" // + session-id
)

// ================== FILTERS MODULE ==================

const (
	CACHE_KEY_PROBE = CACHE_PREFIX + ":filters:probe:url:" // + sha1(url)
)

// ================== RATE LIMITING ==================

const (
	RATE_LIMIT_PREFIX = CACHE_PREFIX + ":ratelimit:" // + limit-type:client-ip
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_PROBES   = CACHE_PREFIX + ":filters:probe:*"
	PATTERN_INVALIDATE_SESSIONS = CACHE_PREFIX + ":sessions:*"
)

// ================== HELPER FUNCTIONS ==================

func BuildSessionKey(sessionID string) string {
	return CACHE_KEY_SESSION_SELECTION + sessionID
}

// BuildProbeKey hashes the URL so that keys stay short and free of
// characters that clash with the KEYS pattern syntax.
func BuildProbeKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return CACHE_KEY_PROBE + hex.EncodeToString(sum[:])
}
