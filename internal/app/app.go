// Package app assembles caches, stores and feed clients from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/feedcache"
	"github.com/unkn0wn-root/feedcache/codec"
	"github.com/unkn0wn-root/feedcache/explore"
	"github.com/unkn0wn-root/feedcache/feed"
	"github.com/unkn0wn-root/feedcache/internal/config"
	"github.com/unkn0wn-root/feedcache/provider"
	bcp "github.com/unkn0wn-root/feedcache/provider/bigcache"
	gcp "github.com/unkn0wn-root/feedcache/provider/gocache"
	rp "github.com/unkn0wn-root/feedcache/provider/redis"
	rcp "github.com/unkn0wn-root/feedcache/provider/ristretto"
	"github.com/unkn0wn-root/feedcache/verified"
	"github.com/unkn0wn-root/feedcache/verified/boltstore"
	"github.com/unkn0wn-root/feedcache/verified/sqlitestore"
	"github.com/unkn0wn-root/feedcache/viewcount"
)

const pingTimeout = 3 * time.Second

// OpenCache builds the verified-list cache. Closing the cache closes the
// provider.
func OpenCache(ctx context.Context, cfg config.CacheConfig, log feedcache.Logger, hooks feedcache.Hooks) (feedcache.Cache[[]string], error) {
	cd, err := codec.ByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	p, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c, err := feedcache.New[[]string](feedcache.Options[[]string]{
		Provider:   p,
		Codec:      cd,
		Namespace:  cfg.Namespace,
		Logger:     log,
		Hooks:      hooks,
		DefaultTTL: cfg.TTL,
		Disabled:   cfg.Disabled,
		Framed:     cfg.Framed,
		Coalesce:   cfg.Coalesce,
	})
	if err != nil {
		_ = p.Close(ctx)
		return nil, err
	}
	return c, nil
}

// NewProvider returns the configured byte store. The redis provider owns its
// client and is pinged before use.
func NewProvider(ctx context.Context, cfg config.CacheConfig) (provider.Provider, error) {
	switch cfg.Provider {
	case "redis":
		var (
			r   *rp.Redis
			err error
		)
		if cfg.Redis.URL != "" {
			r, err = rp.Dial(cfg.Redis.URL)
		} else {
			r, err = rp.New(rp.Config{
				Client: goredis.NewClient(&goredis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				}),
				CloseClient: true,
			})
		}
		if err != nil {
			return nil, err
		}
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := r.Ping(pctx); err != nil {
			_ = r.Close(ctx)
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		return r, nil

	case "ristretto":
		r, err := rcp.New(rcp.Config{
			NumCounters: cfg.Ristretto.NumCounters,
			MaxCost:     cfg.Ristretto.MaxCost,
			BufferItems: cfg.Ristretto.BufferItems,
			Synchronous: true,
		})
		if err != nil {
			return nil, err
		}
		return r, nil

	case "bigcache":
		b, err := bcp.New(ctx, bcp.Config{
			LifeWindow:         cfg.BigCache.LifeWindow,
			HardMaxCacheSizeMB: cfg.BigCache.HardMaxCacheSizeMB,
		})
		if err != nil {
			return nil, err
		}
		return b, nil

	case "gocache":
		return gcp.New(gcp.Config{}), nil
	}
	return nil, fmt.Errorf("unknown cache provider %q", cfg.Provider)
}

// VerifiedStore is a verified.Store that holds resources.
type VerifiedStore interface {
	verified.Store
	io.Closer
}

func OpenStore(cfg config.StoreConfig) (VerifiedStore, error) {
	var (
		s   VerifiedStore
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = openSQLite(cfg.Path)
	case "bolt":
		s, err = openBolt(cfg.Path)
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewFeedLoader builds a loader for the configured group, talking to the
// explore and views services over HTTP.
func NewFeedLoader(cfg config.FeedConfig, log feedcache.Logger, onUpdate func(feed.Snapshot)) (*feed.Loader, error) {
	src, err := explore.New(explore.Config{Endpoint: cfg.ExploreEndpoint})
	if err != nil {
		return nil, err
	}
	views, err := viewcount.New(viewcount.Config{BaseURL: cfg.ViewsEndpoint})
	if err != nil {
		return nil, err
	}
	group := feed.Group{ID: cfg.Group.ID, Name: cfg.Group.Name, Tags: cfg.Group.Tags}
	return feed.NewLoader(group, src, views,
		feed.WithLogger(log),
		feed.WithOnUpdate(onUpdate),
		feed.WithLimit(feed.Limit(cfg.Limit)),
		feed.WithOrderBy(feed.OrderBy(cfg.OrderBy)),
	)
}

func openSQLite(path string) (VerifiedStore, error) {
	s, err := sqlitestore.Open(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openBolt(path string) (VerifiedStore, error) {
	s, err := boltstore.Open(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
