package feed

import "github.com/unkn0wn-root/feedcache"

type Option func(*Loader)

// WithLogger sets the loader's logger. nil keeps the NopLogger.
func WithLogger(l feedcache.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// WithOnUpdate registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that caused the change, outside the loader's lock,
// so concurrent changes may be delivered out of order; compare Snapshot.Seq.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(ld *Loader) { ld.onUpdate = fn }
}

func WithLimit(l Limit) Option {
	return func(ld *Loader) {
		if l != "" {
			ld.limit = l
		}
	}
}

func WithOrderBy(o OrderBy) Option {
	return func(ld *Loader) {
		if o != "" {
			ld.orderBy = o
		}
	}
}
