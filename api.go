package feedcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/feedcache/codec"
	pr "github.com/unkn0wn-root/feedcache/provider"
)

type SetCostFunc func(key string, raw []byte) int64

// ComputeFunc produces the value for a missing key.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Cache is the read-through cache API. V is the caller's value type.
// Serialization is handled by a pluggable Codec[V].
type Cache[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// GetOrCompute returns the cached value for key (cached=true) or runs
	// compute, stores its result and returns it (cached=false).
	GetOrCompute(ctx context.Context, key string, compute ComputeFunc[V]) (v V, cached bool, err error)

	Get(ctx context.Context, key string) (v V, ok bool, err error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
}

// Options tune the behavior of the read-through cache.
// Only Provider and Codec are required.
type Options[V any] struct {
	// Required
	Provider pr.Provider
	Codec    c.Codec[V]

	// Namespace prefixes storage keys as "<ns>:<key>". Empty keeps keys
	// verbatim so entries written by other services under the same key are
	// shared.
	Namespace string

	Logger         Logger        // if nil, NopLogger is used
	Hooks          Hooks         // if nil, NopHooks is used
	DefaultTTL     time.Duration // 0 => no expiry
	Disabled       bool          // default false (enabled); disabled computes every call
	ComputeSetCost SetCostFunc   // default 1
	Framed         bool          // wrap payloads in the internal/wire frame
	Coalesce       bool          // share one in-flight compute per key
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
