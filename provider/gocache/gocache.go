package gocache

import (
	"context"
	"time"

	gc "github.com/patrickmn/go-cache"

	pr "github.com/unkn0wn-root/feedcache/provider"
)

const defaultCleanup = time.Minute

// Provider keeps entries in a patrickmn/go-cache map with per-entry TTL.
// Values are copied on Set so callers may reuse their buffers.
type Provider struct {
	c *gc.Cache
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	CleanupInterval time.Duration // 0 => 1m
}

func New(cfg Config) *Provider {
	ci := cfg.CleanupInterval
	if ci <= 0 {
		ci = defaultCleanup
	}
	return &Provider{c: gc.New(gc.NoExpiration, ci)}
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		// Only this provider writes to the map.
		return nil, false, nil
	}
	return b, true, nil
}

// Set stores value; ttl <= 0 keeps it until deleted.
func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	exp := gc.NoExpiration
	if ttl > 0 {
		exp = ttl
	}
	p.c.Set(key, append([]byte(nil), value...), exp)
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Delete(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Flush()
	return nil
}

// Len reports the number of stored entries, expired ones included until the
// next cleanup.
func (p *Provider) Len() int { return p.c.ItemCount() }
