package feedcache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	c "github.com/unkn0wn-root/feedcache/codec"
	"github.com/unkn0wn-root/feedcache/internal/wire"
	pr "github.com/unkn0wn-root/feedcache/provider"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type memProvider struct {
	mu     sync.Mutex
	m      map[string]memEntry
	gets   int
	sets   int
	getErr error
	setErr error
	reject bool
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gets++
	if p.getErr != nil {
		return nil, false, p.getErr
	}
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sets++
	if p.setErr != nil {
		return false, p.setErr
	}
	if p.reject {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: value, exp: exp}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, key)
	return nil
}

func (p *memProvider) Close(_ context.Context) error { return nil }

func (p *memProvider) raw(key string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	return e.v, ok
}

func (p *memProvider) put(key string, v []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[key] = memEntry{v: v}
}

type recHooks struct {
	mu       sync.Mutex
	hits     int
	misses   int
	failed   int
	heals    []string
	rejected int
}

func (h *recHooks) Hit(string)  { h.mu.Lock(); h.hits++; h.mu.Unlock() }
func (h *recHooks) Miss(string) { h.mu.Lock(); h.misses++; h.mu.Unlock() }
func (h *recHooks) ComputeFailed(string, error) {
	h.mu.Lock()
	h.failed++
	h.mu.Unlock()
}
func (h *recHooks) SelfHeal(_ string, reason string) {
	h.mu.Lock()
	h.heals = append(h.heals, reason)
	h.mu.Unlock()
}
func (h *recHooks) ProviderSetRejected(string) { h.mu.Lock(); h.rejected++; h.mu.Unlock() }

func newTestCache(t *testing.T, mp pr.Provider, optsOpt func(*Options[[]string])) Cache[[]string] {
	t.Helper()
	opts := Options[[]string]{
		Provider: mp,
		Codec:    c.JSON[[]string]{},
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	cc, err := New[[]string](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cc
}

func countingCompute(calls *int32, ids []string) ComputeFunc[[]string] {
	return func(context.Context) ([]string, error) {
		atomic.AddInt32(calls, 1)
		return ids, nil
	}
}

// ==============================
// Construction
// ==============================

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New[[]string](Options[[]string]{Codec: c.JSON[[]string]{}}); err == nil {
		t.Fatalf("expected error without provider")
	}
	if _, err := New[[]string](Options[[]string]{Provider: newMemProvider()}); err == nil {
		t.Fatalf("expected error without codec")
	}
}

func TestGetOrComputeRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, newMemProvider(), nil)

	if _, _, err := cc.GetOrCompute(ctx, "", countingCompute(new(int32), nil)); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
	if _, _, err := cc.GetOrCompute(ctx, "verified", nil); !errors.Is(err, ErrNilCompute) {
		t.Fatalf("expected ErrNilCompute, got %v", err)
	}
}

// ==============================
// Read-through flow
// ==============================

func TestMissComputesStoresThenHits(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recHooks{}
	cc := newTestCache(t, mp, func(o *Options[[]string]) { o.Hooks = hooks })
	defer cc.Close(ctx)

	var calls int32
	want := []string{"a", "b", "c"}

	got, cached, err := cc.GetOrCompute(ctx, "verified", countingCompute(&calls, want))
	if err != nil || cached || !reflect.DeepEqual(got, want) {
		t.Fatalf("first call: got=%v cached=%v err=%v", got, cached, err)
	}
	if calls != 1 {
		t.Fatalf("compute calls = %d, want 1", calls)
	}
	raw, ok := mp.raw("verified")
	if !ok || string(raw) != `["a","b","c"]` {
		t.Fatalf("stored value = %q ok=%v", raw, ok)
	}

	got, cached, err = cc.GetOrCompute(ctx, "verified", countingCompute(&calls, []string{"other"}))
	if err != nil || !cached || !reflect.DeepEqual(got, want) {
		t.Fatalf("second call: got=%v cached=%v err=%v", got, cached, err)
	}
	if calls != 1 {
		t.Fatalf("compute must not run on hit, calls = %d", calls)
	}
	if hooks.hits != 1 || hooks.misses != 1 {
		t.Fatalf("hooks: hits=%d misses=%d", hooks.hits, hooks.misses)
	}
}

func TestPrepopulatedPlainEntryIsHit(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	mp.put("verified", []byte(`["x","y"]`))
	cc := newTestCache(t, mp, nil)

	var calls int32
	got, cached, err := cc.GetOrCompute(ctx, "verified", countingCompute(&calls, nil))
	if err != nil || !cached || !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("got=%v cached=%v err=%v", got, cached, err)
	}
	if calls != 0 {
		t.Fatalf("compute ran on hit")
	}
}

func TestEmptyStoredValueIsMiss(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	mp.put("verified", []byte{})
	cc := newTestCache(t, mp, nil)

	var calls int32
	_, cached, err := cc.GetOrCompute(ctx, "verified", countingCompute(&calls, []string{"a"}))
	if err != nil || cached || calls != 1 {
		t.Fatalf("cached=%v calls=%d err=%v", cached, calls, err)
	}
}

func TestEmptyComputedListIsCached(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, nil)

	var calls int32
	if _, _, err := cc.GetOrCompute(ctx, "verified", countingCompute(&calls, []string{})); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	got, cached, err := cc.GetOrCompute(ctx, "verified", countingCompute(&calls, []string{"late"}))
	if err != nil || !cached || len(got) != 0 {
		t.Fatalf("got=%v cached=%v err=%v", got, cached, err)
	}
	if calls != 1 {
		t.Fatalf("compute calls = %d, want 1", calls)
	}
}

func TestNamespacePrefixesStorageKey(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, func(o *Options[[]string]) { o.Namespace = "app:prod" })

	var calls int32
	if _, _, err := cc.GetOrCompute(ctx, "verified", countingCompute(&calls, []string{"a"})); err != nil {
		t.Fatal(err)
	}
	if _, ok := mp.raw("app:prod:verified"); !ok {
		t.Fatalf("expected namespaced storage key")
	}
	if _, ok := mp.raw("verified"); ok {
		t.Fatalf("bare key must not be written when a namespace is set")
	}
}

// ==============================
// Failure propagation
// ==============================

func TestComputeErrorPropagatesAndWritesNothing(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recHooks{}
	cc := newTestCache(t, mp, func(o *Options[[]string]) { o.Hooks = hooks })

	boom := errors.New("db down")
	_, cached, err := cc.GetOrCompute(ctx, "verified", func(context.Context) ([]string, error) {
		return nil, boom
	})
	if err != boom {
		t.Fatalf("error must be returned unmodified, got %v", err)
	}
	if cached {
		t.Fatalf("cached must be false on failure")
	}
	if mp.sets != 0 {
		t.Fatalf("nothing must be written on compute failure, sets=%d", mp.sets)
	}
	if hooks.failed != 1 {
		t.Fatalf("ComputeFailed hook not fired")
	}
}

func TestProviderErrorsPropagate(t *testing.T) {
	ctx := context.Background()

	getErr := errors.New("redis get timeout")
	mp := newMemProvider()
	mp.getErr = getErr
	cc := newTestCache(t, mp, nil)
	var calls int32
	if _, _, err := cc.GetOrCompute(ctx, "verified", countingCompute(&calls, []string{"a"})); err != getErr {
		t.Fatalf("get error: got %v", err)
	}
	if calls != 0 {
		t.Fatalf("compute must not run when the provider read fails")
	}

	setErr := errors.New("redis set refused")
	mp2 := newMemProvider()
	mp2.setErr = setErr
	cc2 := newTestCache(t, mp2, nil)
	v, _, err := cc2.GetOrCompute(ctx, "verified", countingCompute(&calls, []string{"a"}))
	if err != setErr {
		t.Fatalf("set error: got %v", err)
	}
	if v != nil {
		t.Fatalf("value must not be returned when it could not be stored, got %v", v)
	}
}

func TestProviderRejectionStillReturnsValue(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	mp.reject = true
	hooks := &recHooks{}
	cc := newTestCache(t, mp, func(o *Options[[]string]) { o.Hooks = hooks })

	var calls int32
	got, cached, err := cc.GetOrCompute(ctx, "verified", countingCompute(&calls, []string{"a"}))
	if err != nil || cached || !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("got=%v cached=%v err=%v", got, cached, err)
	}
	if hooks.rejected != 1 {
		t.Fatalf("ProviderSetRejected hook not fired")
	}
}

// ==============================
// Self-heal (framed entries)
// ==============================

func TestSelfHealOnCorruptFramedEntry(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recHooks{}
	cc := newTestCache(t, mp, func(o *Options[[]string]) {
		o.Framed = true
		o.Hooks = hooks
	})

	mp.put("verified", []byte("not-wire-format"))
	if _, ok, err := cc.Get(ctx, "verified"); err != nil || ok {
		t.Fatalf("Get on corrupt should miss, ok=%v err=%v", ok, err)
	}
	if _, ok := mp.raw("verified"); ok {
		t.Fatalf("corrupt entry was not deleted by self-heal")
	}

	// Framed by another codec.
	mp.put("verified", wire.EncodeValue(c.TagMsgpack, []byte{0x90}))
	if _, ok, _ := cc.Get(ctx, "verified"); ok {
		t.Fatalf("codec mismatch must miss")
	}

	// Right codec tag, undecodable payload.
	mp.put("verified", wire.EncodeValue(c.TagJSON, []byte("{")))
	if _, ok, _ := cc.Get(ctx, "verified"); ok {
		t.Fatalf("bad payload must miss")
	}

	want := []string{"corrupt", "codec_mismatch", "value_decode"}
	if !reflect.DeepEqual(hooks.heals, want) {
		t.Fatalf("heal reasons = %v, want %v", hooks.heals, want)
	}
}

func TestFramedRoundTrip(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, func(o *Options[[]string]) { o.Framed = true })

	if err := cc.Set(ctx, "verified", []string{"a", "b"}, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	raw, _ := mp.raw("verified")
	if !wire.IsFramed(raw) {
		t.Fatalf("expected framed bytes, got %q", raw)
	}
	got, ok, err := cc.Get(ctx, "verified")
	if err != nil || !ok || !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Get: got=%v ok=%v err=%v", got, ok, err)
	}
}

// ==============================
// Disabled + concurrency
// ==============================

func TestDisabledAlwaysComputes(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, func(o *Options[[]string]) { o.Disabled = true })

	var calls int32
	for i := 0; i < 2; i++ {
		if _, cached, err := cc.GetOrCompute(ctx, "verified", countingCompute(&calls, []string{"a"})); err != nil || cached {
			t.Fatalf("cached=%v err=%v", cached, err)
		}
	}
	if calls != 2 || mp.gets != 0 || mp.sets != 0 {
		t.Fatalf("calls=%d gets=%d sets=%d", calls, mp.gets, mp.sets)
	}
}

// TestConcurrentMissesBothCompute documents the accepted last-write-wins race.
func TestConcurrentMissesBothCompute(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, nil)

	var calls int32
	var started sync.WaitGroup
	started.Add(2)
	compute := func(context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		started.Done()
		started.Wait() // both callers are inside compute
		return []string{"a"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := cc.GetOrCompute(ctx, "verified", compute); err != nil {
				t.Errorf("GetOrCompute: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 2 || mp.sets != 2 {
		t.Fatalf("calls=%d sets=%d, want 2/2", calls, mp.sets)
	}
}

func TestCoalesceSharesOneCompute(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc := newTestCache(t, mp, func(o *Options[[]string]) { o.Coalesce = true })

	var calls int32
	release := make(chan struct{})
	compute := func(context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []string{"a", "b"}, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([][]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := cc.GetOrCompute(ctx, "verified", compute)
			if err != nil {
				t.Errorf("GetOrCompute: %v", err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("compute calls = %d, want 1", calls)
	}
	for i, r := range results {
		if !reflect.DeepEqual(r, []string{"a", "b"}) {
			t.Fatalf("result %d = %v", i, r)
		}
	}
}
