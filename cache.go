package feedcache

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	c "github.com/unkn0wn-root/feedcache/codec"
	"github.com/unkn0wn-root/feedcache/internal/util"
	"github.com/unkn0wn-root/feedcache/internal/wire"
	pr "github.com/unkn0wn-root/feedcache/provider"
)

const tracerName = "github.com/unkn0wn-root/feedcache"

type cache[V any] struct {
	ns             string
	provider       pr.Provider
	codec          c.Codec[V]
	codecTag       byte
	log            Logger
	hooks          Hooks
	tracer         trace.Tracer
	enabled        bool
	framed         bool
	defaultTTL     time.Duration
	computeSetCost SetCostFunc

	flight *singleflight.Group // nil unless Options.Coalesce
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("feedcache: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("feedcache: codec is required")
	}

	cc := &cache[V]{
		ns:         opts.Namespace,
		provider:   opts.Provider,
		codec:      opts.Codec,
		codecTag:   c.TagOf(opts.Codec),
		enabled:    !opts.Disabled,
		framed:     opts.Framed,
		defaultTTL: opts.DefaultTTL,
		tracer:     otel.Tracer(tracerName),
	}

	// defaults
	cc.log = coalesce[Logger](opts.Logger, NopLogger{})
	cc.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	if opts.ComputeSetCost != nil {
		cc.computeSetCost = opts.ComputeSetCost
	} else {
		cc.computeSetCost = func(_ string, _ []byte) int64 { return 1 }
	}
	if opts.Coalesce {
		cc.flight = &singleflight.Group{}
	}
	return cc, nil
}

func (cc *cache[V]) Enabled() bool { return cc.enabled }

func (cc *cache[V]) Close(ctx context.Context) error {
	if cc.provider != nil {
		return cc.provider.Close(ctx)
	}
	return nil
}

func (cc *cache[V]) GetOrCompute(ctx context.Context, key string, compute ComputeFunc[V]) (V, bool, error) {
	var zero V
	if key == "" {
		return zero, false, ErrEmptyKey
	}
	if compute == nil {
		return zero, false, ErrNilCompute
	}

	ctx, span := cc.tracer.Start(ctx, "feedcache.GetOrCompute",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	v, cached, err := cc.getOrCompute(ctx, key, compute)
	span.SetAttributes(attribute.Bool("cache.hit", cached))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, cached, err
}

func (cc *cache[V]) getOrCompute(ctx context.Context, key string, compute ComputeFunc[V]) (V, bool, error) {
	var zero V
	if !cc.enabled {
		v, err := compute(ctx)
		return v, false, err
	}

	k := cc.storageKey(key)
	v, ok, err := cc.load(ctx, k)
	if err != nil {
		return zero, false, err
	}
	if ok {
		cc.hooks.Hit(k)
		return v, true, nil
	}

	cc.hooks.Miss(k)
	if cc.flight == nil {
		v, err := cc.computeAndStore(ctx, k, compute)
		return v, false, err
	}

	// Concurrent misses share the first caller's computation (and its ctx).
	res, err, shared := cc.flight.Do(k, func() (any, error) {
		return cc.computeAndStore(ctx, k, compute)
	})
	if err != nil {
		return zero, false, err
	}
	if shared {
		cc.log.Debug("compute shared with in-flight caller", Fields{"key": key})
	}
	return res.(V), false, nil
}

func (cc *cache[V]) computeAndStore(ctx context.Context, k string, compute ComputeFunc[V]) (V, error) {
	var zero V
	v, err := compute(ctx)
	if err != nil {
		cc.hooks.ComputeFailed(k, err)
		return zero, err
	}
	if err := cc.store(ctx, k, v, cc.defaultTTL); err != nil {
		return zero, err
	}
	return v, nil
}

func (cc *cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if !cc.enabled {
		return zero, false, nil
	}
	if key == "" {
		return zero, false, ErrEmptyKey
	}
	return cc.load(ctx, cc.storageKey(key))
}

func (cc *cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if !cc.enabled {
		return nil
	}
	if key == "" {
		return ErrEmptyKey
	}
	if ttl == 0 {
		ttl = cc.defaultTTL
	}
	return cc.store(ctx, cc.storageKey(key), value, ttl)
}

// load reads and decodes k. Empty values are misses. Undecodable entries are
// deleted and reported as misses.
func (cc *cache[V]) load(ctx context.Context, k string) (V, bool, error) {
	var zero V
	raw, ok, err := cc.provider.Get(ctx, k)
	if err != nil || !ok || len(raw) == 0 {
		return zero, false, err
	}

	payload := raw
	if cc.framed {
		tag, p, err := wire.DecodeValue(raw)
		if err != nil {
			cc.selfHeal(ctx, k, "corrupt")
			return zero, false, nil
		}
		if tag != c.TagNone && cc.codecTag != c.TagNone && tag != cc.codecTag {
			cc.selfHeal(ctx, k, "codec_mismatch")
			return zero, false, nil
		}
		payload = p
	}

	v, err := cc.codec.Decode(payload)
	if err != nil {
		cc.selfHeal(ctx, k, "value_decode")
		return zero, false, nil
	}
	return v, true, nil
}

func (cc *cache[V]) store(ctx context.Context, k string, v V, ttl time.Duration) error {
	payload, err := cc.codec.Encode(v)
	if err != nil {
		return err
	}
	raw := payload
	if cc.framed {
		raw = wire.EncodeValue(cc.codecTag, payload)
	}
	ok, err := cc.provider.Set(ctx, k, raw, cc.computeSetCost(k, raw), ttl)
	if err != nil {
		return err
	}
	if !ok {
		cc.hooks.ProviderSetRejected(k)
		cc.log.Debug("Set rejected by provider (pressure)", Fields{"key": util.Redact(k)})
	}
	return nil
}

func (cc *cache[V]) selfHeal(ctx context.Context, k, reason string) {
	_ = cc.provider.Del(ctx, k)
	cc.hooks.SelfHeal(k, reason)
	cc.log.Warn("dropped undecodable cache entry", Fields{"key": util.Redact(k), "reason": reason})
}

func (cc *cache[V]) storageKey(userKey string) string {
	return util.StorageKey(cc.ns, userKey)
}
