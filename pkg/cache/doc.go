// Package cache provides cache-aside TTL persistence for ETG API responses
// with a Redis backend.
//
// Three independent cache classes are supported, each with its own key
// builder and default TTL:
//
//   - static hotel descriptors, keyed by (hotel id, language), 7 days
//   - live search results, keyed by a normalized hash of every search
//     parameter, 6 hours
//   - autocomplete results, keyed by (query, language), 7 days
//
// Entries store the full upstream payload verbatim so that round-tripping
// through the cache never drops fields, including nested enrichment data
// attached before the write. Expiry is lazy: Get treats an expired row as a
// miss and deletes it opportunistically; the Redis server-side TTL bounds
// storage growth, so no background sweep is needed.
//
// Usage:
//
//	store := cache.NewStore(redisClient, "v3")
//
//	key := cache.StaticKey("test_hotel", "en")
//	if err := store.Put(ctx, key, payload, cache.TTLStatic); err != nil {
//		// handle error
//	}
//
//	entry, err := store.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from upstream
//	}
package cache
