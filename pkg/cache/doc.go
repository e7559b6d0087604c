// Package cache provides the correlated response cache with a Redis backend.
//
// A response is stored under the correlation id (puid) of the call that
// produced it plus a fingerprint of the request, so a later event carrying
// the same puid and request (a feedback event, or a cold-start re-ask) gets
// back exactly the response that was served.
//
// - Fixed TTL applied at write time, never extended on read
// - Lazy expiry: an entry past its TTL is a miss even if the store still holds it
// - Admission predicate: responses with no items are never cached
// - Backing-store failures degrade to a miss on read and are dropped on write
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(cache.NewRedisStore(redisClient))
//
//	responses, err := cache.NewResponseCache[recsys.RankingRequest, recsys.RankingResponse](
//		manager, 24*time.Hour, logger)
//
//	responses.Set(ctx, req, resp, meta)
//
//	if cached, ok := responses.Get(ctx, meta.PUID, req); ok {
//		// serve cached
//	}
//
// # Stricter Admission
//
//	cache.WithAdmission(func(req recsys.RankingRequest, resp recsys.RankingResponse, _ recsys.Meta) bool {
//		return len(resp.ItemIDs) >= req.GetTopK()
//	})
//
// # Metrics
//
//   - recsys_cache_hits_total{layer} - Cache hits
//   - recsys_cache_misses_total{layer} - Cache misses (expired entries included)
//   - recsys_cache_writes_total{layer} - Entries written
//   - recsys_cache_entry_bytes{layer} - Encoded entry size
//   - recsys_cache_admission_rejections_total - Responses refused by admission
//   - recsys_cache_errors_total{operation} - Cache operation errors
package cache
