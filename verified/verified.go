// Package verified serves the list of verified identifiers through a
// read-through cache backed by a persistent store.
package verified

import (
	"context"

	"github.com/unkn0wn-root/feedcache"
)

// CacheKey is the cache key of the identifier list.
const CacheKey = "verified"

// Store is the persistent source of truth for verified identifiers.
type Store interface {
	// VerifiedIDs reads every verified identifier, projecting only the id.
	VerifiedIDs(ctx context.Context) ([]string, error)
}

// Result carries the identifiers and whether they were served from cache.
// Cached is informational only.
type Result struct {
	IDs    []string
	Cached bool
}

type Service struct {
	cache feedcache.Cache[[]string]
	store Store
	log   feedcache.Logger
}

type Option func(*Service)

func WithLogger(l feedcache.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func New(cache feedcache.Cache[[]string], store Store, opts ...Option) *Service {
	s := &Service{cache: cache, store: store, log: feedcache.NopLogger{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetVerifiedIDs returns the cached list, or reads it from the store and
// caches it. Store and cache failures are returned as-is.
func (s *Service) GetVerifiedIDs(ctx context.Context) (Result, error) {
	ids, cached, err := s.cache.GetOrCompute(ctx, CacheKey, s.compute)
	if err != nil {
		return Result{}, err
	}
	if ids == nil {
		ids = []string{}
	}
	if !cached {
		s.log.Info("verified list recomputed", feedcache.Fields{"count": len(ids)})
	}
	return Result{IDs: ids, Cached: cached}, nil
}

func (s *Service) compute(ctx context.Context) ([]string, error) {
	ids, err := s.store.VerifiedIDs(ctx)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
