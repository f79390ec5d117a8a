package filters

import (
	"context"
	"errors"
	"time"

	"pricewatch/internal/shared/constants"
	"pricewatch/pkg/cache"
	"pricewatch/pkg/logger"
)

// ProbeCache is the subset of cache.Service the cached prober needs.
type ProbeCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedProber remembers probe outcomes so that restoring a session does
// not hit the data source for every request. Cache failures fall through to
// the wrapped prober.
type CachedProber struct {
	next   Prober
	cache  ProbeCache
	ttl    time.Duration
	logger *logger.Logger
}

func NewCachedProber(next Prober, c ProbeCache, ttl time.Duration, l *logger.Logger) *CachedProber {
	if l == nil {
		l = logger.GetDefault()
	}
	if ttl <= 0 {
		ttl = constants.TTL_PROBE_RESULT
	}
	return &CachedProber{next: next, cache: c, ttl: ttl, logger: l}
}

func (p *CachedProber) ProbeExists(ctx context.Context, url string) bool {
	key := constants.BuildProbeKey(url)

	var exists bool
	err := p.cache.Get(ctx, key, &exists)
	if err == nil {
		return exists
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		p.logger.WarnWithContext(ctx, "Probe cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	exists = p.next.ProbeExists(ctx, url)
	if ctx.Err() != nil {
		return exists
	}
	if err := p.cache.Set(ctx, key, exists, p.ttl); err != nil {
		p.logger.WarnWithContext(ctx, "Probe cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	return exists
}
