// Package feedcache implements a provider-agnostic read-through cache.
//
// GetOrCompute consults the provider first; on a miss it runs the caller's
// compute function once, stores the encoded result with a single Set and only
// then returns it. Errors from compute or from the provider are returned to the
// caller untouched and nothing is written when compute fails.
//
// Components:
//   - Provider: byte store with TTL (e.g. Redis, Ristretto, BigCache).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - Hooks: hit/miss/self-heal callbacks for metrics or logs.
//
// Two callers missing the same key at once both compute and both write; the
// last write wins. Set Options.Coalesce to share one computation per key
// within a process instead.
//
//	ids, cached, err := cache.GetOrCompute(ctx, "verified", func(ctx context.Context) ([]string, error) {
//	    return store.VerifiedIDs(ctx)
//	})
package feedcache
