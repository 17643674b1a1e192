package gocache

import (
	"context"
	"testing"
	"time"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p := New(Config{})
	defer p.Close(ctx)

	if _, hit, err := p.Get(ctx, "verified"); err != nil || hit {
		t.Fatalf("expected clean miss, hit=%v err=%v", hit, err)
	}
	buf := []byte(`["a"]`)
	if ok, err := p.Set(ctx, "verified", buf, 1, 0); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	buf[2] = 'z'
	got, hit, err := p.Get(ctx, "verified")
	if err != nil || !hit || string(got) != `["a"]` {
		t.Fatalf("Get: hit=%v err=%v got=%s", hit, err, got)
	}
	if p.Len() != 1 {
		t.Fatalf("Len = %d", p.Len())
	}
	if err := p.Del(ctx, "verified"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, hit, _ := p.Get(ctx, "verified"); hit {
		t.Fatal("entry survived Del")
	}
}

func TestTTLExpires(t *testing.T) {
	ctx := context.Background()
	p := New(Config{CleanupInterval: time.Hour})
	defer p.Close(ctx)

	if _, err := p.Set(ctx, "k", []byte("v"), 1, 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, hit, _ := p.Get(ctx, "k"); hit {
		t.Fatal("expired entry returned")
	}
}
