package feed

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/feedcache"
	"github.com/unkn0wn-root/feedcache/visibility"
)

// Loader drives one feed view: it fetches pages from an ItemSource, appends
// them to a Cursor and enriches every non-empty page with a single
// ViewCounter call. At most one page request is outstanding at a time.
type Loader struct {
	group    Group
	source   ItemSource
	counter  ViewCounter
	log      feedcache.Logger
	onUpdate func(Snapshot)
	limit    Limit
	orderBy  OrderBy

	mu      sync.Mutex
	state   State
	err     error
	cur     Cursor
	seq     uint64
	stops   []func()
	pending sync.WaitGroup
}

func NewLoader(group Group, source ItemSource, counter ViewCounter, opts ...Option) (*Loader, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if counter == nil {
		return nil, ErrNilCounter
	}
	l := &Loader{
		group:   group,
		source:  source,
		counter: counter,
		log:     feedcache.NopLogger{},
		limit:   TwentyFive,
		orderBy: Latest,
		state:   Unstarted,
	}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

func (l *Loader) Group() Group { return l.group }

// Start performs the initial fetch. It is a no-op when the group has no ID
// or the loader was already started.
func (l *Loader) Start(ctx context.Context) error {
	if l.group.ID == "" {
		return nil
	}
	l.mu.Lock()
	if l.state != Unstarted {
		l.mu.Unlock()
		return nil
	}
	l.state = Idle
	l.mu.Unlock()

	_, err := l.FetchNextPage(ctx)
	return err
}

// FetchNextPage loads the page after the current continuation token and
// enriches it. It reports whether a fetch was attempted; it is a no-op unless
// the loader is Idle, so a call made while another fetch is in flight, after
// exhaustion, or in the Errored state does nothing.
func (l *Loader) FetchNextPage(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if l.state != Idle || l.cur.exhausted {
		l.mu.Unlock()
		return false, nil
	}
	l.state = FetchingPage
	req := l.request(l.cur.token)
	snap := l.changedLocked()
	l.mu.Unlock()
	l.notify(snap)

	page, err := l.source.Explore(ctx, req)

	l.mu.Lock()
	if l.state == Closed {
		l.mu.Unlock()
		return true, ErrClosed
	}
	if err != nil {
		snap := l.failLocked(err)
		l.mu.Unlock()
		l.log.Warn("feed page fetch failed", feedcache.Fields{"group": l.group.ID, "cursor": req.Cursor, "err": err})
		l.notify(snap)
		return true, err
	}
	l.cur.appendPage(page)
	ids := page.IDs()
	if len(ids) == 0 {
		snap := l.settleLocked()
		l.mu.Unlock()
		l.log.Debug("feed page empty", feedcache.Fields{"group": l.group.ID, "exhausted": page.Next == ""})
		l.notify(snap)
		return true, nil
	}
	l.state = EnrichingPage
	snap = l.changedLocked()
	l.mu.Unlock()
	l.log.Debug("feed page loaded", feedcache.Fields{"group": l.group.ID, "items": len(ids), "exhausted": page.Next == ""})
	l.notify(snap)

	views, err := l.counter.ViewCounts(ctx, ids)

	l.mu.Lock()
	if l.state == Closed {
		l.mu.Unlock()
		return true, ErrClosed
	}
	if err != nil {
		snap := l.failLocked(err)
		l.mu.Unlock()
		l.log.Warn("feed view counts failed", feedcache.Fields{"group": l.group.ID, "items": len(ids), "err": err})
		l.notify(snap)
		return true, err
	}
	l.cur.appendViews(views)
	snap = l.settleLocked()
	l.mu.Unlock()
	l.notify(snap)
	return true, nil
}

// Retry returns an Errored loader to Idle, or to Exhausted when no
// continuation remains. A page whose enrichment failed keeps its items and
// is not enriched again. Retry reports whether the state changed.
func (l *Loader) Retry() bool {
	l.mu.Lock()
	if l.state != Errored {
		l.mu.Unlock()
		return false
	}
	l.err = nil
	snap := l.settleLocked()
	l.mu.Unlock()
	l.notify(snap)
	return true
}

// Watch fetches the next page whenever trigger reports the sentinel in view.
// Fetches run on their own goroutines with a context derived from ctx. The
// subscription lives until the returned stop func or Close is called.
func (l *Loader) Watch(ctx context.Context, trigger visibility.Trigger) (stop func(), err error) {
	if trigger == nil {
		return nil, ErrNilTrigger
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Closed {
		return nil, ErrClosed
	}

	wctx, cancel := context.WithCancel(ctx)
	unsubscribe := trigger.Subscribe(func(ev visibility.Event) {
		if !ev.InView {
			return
		}
		l.mu.Lock()
		if l.state == Closed || wctx.Err() != nil {
			l.mu.Unlock()
			return
		}
		l.pending.Add(1)
		l.mu.Unlock()
		go func() {
			defer l.pending.Done()
			_, _ = l.FetchNextPage(wctx)
		}()
	})

	var once sync.Once
	stop = func() {
		once.Do(func() {
			unsubscribe()
			cancel()
		})
	}
	l.stops = append(l.stops, stop)
	return stop, nil
}

// Close cancels all trigger subscriptions and in-flight Watch fetches. Page
// and enrichment results that arrive afterwards are discarded. Close is
// idempotent.
func (l *Loader) Close() {
	l.mu.Lock()
	if l.state == Closed {
		l.mu.Unlock()
		return
	}
	l.state = Closed
	stops := l.stops
	l.stops = nil
	snap := l.changedLocked()
	l.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	l.notify(snap)
}

// Wait blocks until fetches started by Watch have returned.
func (l *Loader) Wait() { l.pending.Wait() }

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the failure that put the loader in the Errored state.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Loader) request(cursor string) PageRequest {
	return PageRequest{
		Types:   []PublicationType{Post},
		Tags:    append([]string(nil), l.group.Tags...),
		OrderBy: l.orderBy,
		Limit:   l.limit,
		Cursor:  cursor,
	}
}

func (l *Loader) failLocked(err error) Snapshot {
	l.state = Errored
	l.err = err
	return l.changedLocked()
}

func (l *Loader) settleLocked() Snapshot {
	if l.cur.exhausted {
		l.state = Exhausted
	} else {
		l.state = Idle
	}
	return l.changedLocked()
}

func (l *Loader) snapshotLocked() Snapshot {
	return Snapshot{Seq: l.seq, State: l.state, Err: l.err, Cursor: l.cur.clone()}
}

// changedLocked records a state change and snapshots it.
func (l *Loader) changedLocked() Snapshot {
	l.seq++
	return l.snapshotLocked()
}

// notify runs outside the lock, so snapshots from different goroutines can
// arrive out of order; Snapshot.Seq orders them.
func (l *Loader) notify(s Snapshot) {
	if l.onUpdate != nil {
		l.onUpdate(s)
	}
}
