package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// isolate runs the test from an empty directory with an empty HOME.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("defaults mismatch:\n got %+v\nwant %+v", cfg, DefaultConfig())
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := isolate(t)
	yaml := `
server:
  addr: ":9000"
cache:
  provider: Ristretto
  ttl: 10m
  codec: protobuf
store:
  driver: bolt
  path: /tmp/verified.bolt
feed:
  group:
    id: g1
    name: Gophers
    tags: [go, " golang ", ""]
`
	if err := os.WriteFile(filepath.Join(dir, "feedcache.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FEEDCACHE_LOG_BACKEND", "logrus")
	t.Setenv("FEEDCACHE_CACHE_REDIS_DB", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Cache.Provider != "ristretto" || cfg.Cache.TTL != 10*time.Minute {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if !cfg.Cache.Framed {
		t.Fatalf("protobuf codec must force framing")
	}
	if cfg.Store.Driver != "bolt" || cfg.Log.Backend != "logrus" || cfg.Cache.Redis.DB != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Feed.Group.Tags, []string{"go", "golang"}) {
		t.Fatalf("tags = %q", cfg.Feed.Group.Tags)
	}
	if cfg.Server.RequestTimeout != 10*time.Second {
		t.Fatalf("unset key lost its default: %v", cfg.Server.RequestTimeout)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FEEDCACHE_FEED_GROUP_ID=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FEEDCACHE_FEED_GROUP_ID") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Feed.Group.ID != "from-dotenv" {
		t.Fatalf("group id = %q", cfg.Feed.Group.ID)
	}
}

func TestLoadExplicitFileMissing(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit file")
	}
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Provider = "memcached"
	cfg.Cache.Codec = "xml"
	cfg.Store.Driver = "postgres"
	cfg.Log.Backend = "glog"
	cfg.Feed.Limit = "Hundred"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"cache.provider", "cache.codec", "store.driver", "log.backend", "feed.limit"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidateRedisNeedsAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Redis.Addr = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "cache.redis") {
		t.Fatalf("got %v", err)
	}
	cfg.Cache.Redis.URL = "redis://localhost:6379/0"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("url should satisfy redis: %v", err)
	}
}
