package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/recsys-gateway/pkg/recsys"
	"github.com/rs/zerolog"
)

// Admission decides whether a (request, response) pair may enter the cache.
type Admission[Req any, Resp recsys.Response] func(req Req, resp Resp, meta recsys.Meta) bool

// NonEmptyItems rejects responses without items. A cached empty answer
// would be served to every later cold-start lookup for the same key.
func NonEmptyItems[Req any, Resp recsys.Response](_ Req, resp Resp, _ recsys.Meta) bool {
	return len(resp.GetItemIDs()) > 0
}

// ResponseCache maps (correlation id, request) to the response served for
// it. Entries live for a fixed TTL from write time; reads do not extend it.
// Requests implementing recsys.Normalizer are keyed by their canonical form.
//
// Backing-store failures never reach the caller: a failed read is a miss
// and a failed write is logged and dropped.
type ResponseCache[Req any, Resp recsys.Response] struct {
	manager   *Manager
	ttl       time.Duration
	admission []Admission[Req, Resp]
	logger    zerolog.Logger
}

// Option configures a ResponseCache.
type Option[Req any, Resp recsys.Response] func(*ResponseCache[Req, Resp])

// WithAdmission adds a stricter admission predicate. It is checked in
// addition to NonEmptyItems, never instead of it.
func WithAdmission[Req any, Resp recsys.Response](a Admission[Req, Resp]) Option[Req, Resp] {
	return func(c *ResponseCache[Req, Resp]) {
		c.admission = append(c.admission, a)
	}
}

// NewResponseCache creates a typed response cache on top of manager.
func NewResponseCache[Req any, Resp recsys.Response](manager *Manager, ttl time.Duration, logger zerolog.Logger, opts ...Option[Req, Resp]) (*ResponseCache[Req, Resp], error) {
	if manager == nil {
		return nil, errors.New("cache manager is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive (got %s)", ttl)
	}

	c := &ResponseCache[Req, Resp]{
		manager:   manager,
		ttl:       ttl,
		admission: []Admission[Req, Resp]{NonEmptyItems[Req, Resp]},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the configured time-to-live.
func (c *ResponseCache[Req, Resp]) TTL() time.Duration {
	return c.ttl
}

// Ping reports whether the backing store is reachable.
func (c *ResponseCache[Req, Resp]) Ping(ctx context.Context) error {
	return c.manager.Store().Ping(ctx)
}

// ShouldCache evaluates every admission predicate.
func (c *ResponseCache[Req, Resp]) ShouldCache(req Req, resp Resp, meta recsys.Meta) bool {
	for _, admit := range c.admission {
		if !admit(req, resp, meta) {
			return false
		}
	}
	return true
}

// Get returns the live response cached for (correlationID, req).
func (c *ResponseCache[Req, Resp]) Get(ctx context.Context, correlationID string, req Req) (Resp, bool) {
	var zero Resp

	key, err := KeyFor(correlationID, recsys.NormalizeRequest(req))
	if err != nil {
		c.logger.Warn().Err(err).Str("puid", correlationID).Msg("Cannot build cache key")
		return zero, false
	}

	entry, err := c.manager.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("puid", correlationID).Msg("Cache get error, treating as miss")
		}
		return zero, false
	}

	var resp Resp
	if err := json.Unmarshal(entry.Data, &resp); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		c.logger.Warn().Err(err).Str("puid", correlationID).Msg("Cached response undecodable, treating as miss")
		return zero, false
	}

	c.logger.Debug().
		Str("puid", correlationID).
		Str("key", key.String()).
		Dur("ttl", entry.ttlAt(c.manager.now())).
		Msg("Cache hit")
	return resp, true
}

// Set caches resp under (meta.PUID, req) when the admission predicates accept it.
func (c *ResponseCache[Req, Resp]) Set(ctx context.Context, req Req, resp Resp, meta recsys.Meta) {
	if !c.ShouldCache(req, resp, meta) {
		AdmissionRejections.Inc()
		c.logger.Debug().Str("puid", meta.PUID).Msg("Response not admitted to cache")
		return
	}

	key, err := KeyFor(meta.PUID, recsys.NormalizeRequest(req))
	if err != nil {
		c.logger.Warn().Err(err).Str("puid", meta.PUID).Msg("Cannot build cache key")
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("puid", meta.PUID).Msg("Cannot encode response for cache")
		return
	}

	now := c.manager.now()
	entry := &CacheEntry{
		Data:     data,
		Expires:  now.Add(c.ttl),
		CachedAt: now,
	}

	if err := c.manager.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Str("puid", meta.PUID).Msg("Failed to cache response")
		return
	}

	c.logger.Debug().
		Str("puid", meta.PUID).
		Str("key", key.String()).
		Dur("ttl", c.ttl).
		Msg("Cached response")
}
