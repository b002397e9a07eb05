// Package cache stores collected PUT lines between the two steps of the
// web workflow. A fetch run is identified by a run id; the merge step looks
// the lines up again by that id, possibly minutes later and, with Redis,
// possibly from another process.
//
// Two backends implement the Store interface:
//
//   - RedisStore, for deployments where runs must survive restarts. TTL
//     enforcement is left to Redis.
//   - MemoryStore, a mutex-guarded map for single-process serving and for
//     tests.
//
// # Basic Usage
//
//	store, err := cache.NewRedisStore(redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	}))
//	if err != nil {
//		return err
//	}
//
//	entry := &cache.Entry{Lines: lines, FetchedAt: time.Now()}
//	if err := store.Set(ctx, runID, entry, 2*time.Hour); err != nil {
//		return err
//	}
//
//	entry, err = store.Get(ctx, runID)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Run expired or never existed - the operator fetches again.
//	}
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - putsync_cache_hits_total{backend} - Cache hits
//   - putsync_cache_misses_total - Cache misses
//   - putsync_cache_errors_total{operation} - Cache operation errors
package cache
