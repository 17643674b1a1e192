// Package config loads the binaries' configuration from a YAML file,
// a .env file and FEEDCACHE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "FEEDCACHE"
	configName = "feedcache"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Store     StoreConfig     `mapstructure:"store"`
	Log       LogConfig       `mapstructure:"log"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type CacheConfig struct {
	Provider  string        `mapstructure:"provider"` // redis, ristretto, bigcache or gocache
	Namespace string        `mapstructure:"namespace"`
	TTL       time.Duration `mapstructure:"ttl"` // 0 = no expiry
	Codec     string        `mapstructure:"codec"`
	Framed    bool          `mapstructure:"framed"`
	Coalesce  bool          `mapstructure:"coalesce"`
	Disabled  bool          `mapstructure:"disabled"`

	Redis     RedisConfig     `mapstructure:"redis"`
	Ristretto RistrettoConfig `mapstructure:"ristretto"`
	BigCache  BigCacheConfig  `mapstructure:"bigcache"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"` // takes precedence over Addr
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RistrettoConfig struct {
	NumCounters int64 `mapstructure:"num_counters"`
	MaxCost     int64 `mapstructure:"max_cost"`
	BufferItems int64 `mapstructure:"buffer_items"`
}

type BigCacheConfig struct {
	LifeWindow         time.Duration `mapstructure:"life_window"`
	HardMaxCacheSizeMB int           `mapstructure:"hard_max_cache_size_mb"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or bolt
	Path   string `mapstructure:"path"`
}

type LogConfig struct {
	Backend string `mapstructure:"backend"` // zap, logrus or slog
	Level   string `mapstructure:"level"`
}

type FeedConfig struct {
	ExploreEndpoint string      `mapstructure:"explore_endpoint"`
	ViewsEndpoint   string      `mapstructure:"views_endpoint"`
	Limit           string      `mapstructure:"limit"`
	OrderBy         string      `mapstructure:"order_by"`
	Group           GroupConfig `mapstructure:"group"`
}

type GroupConfig struct {
	ID   string   `mapstructure:"id"`
	Name string   `mapstructure:"name"`
	Tags []string `mapstructure:"tags"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Provider: "redis",
			Codec:    "json",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
			Ristretto: RistrettoConfig{
				NumCounters: 10_000,
				MaxCost:     64 << 20,
				BufferItems: 64,
			},
			BigCache: BigCacheConfig{
				LifeWindow: 10 * time.Minute,
			},
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "feedcache.db",
		},
		Log: LogConfig{
			Backend: "zap",
			Level:   "info",
		},
		Feed: FeedConfig{
			Limit:   "TwentyFive",
			OrderBy: "LATEST",
		},
	}
}

// defaultConfigDir returns $HOME/.config/feedcache.
func defaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", configName)
}

// Load reads configuration. When file is empty, feedcache.yaml is looked up
// in the working directory and then in $HOME/.config/feedcache; a missing file
// is not an error. A .env file in the working directory is applied to the
// environment first, then FEEDCACHE_* variables override file values
// (FEEDCACHE_CACHE_REDIS_ADDR sets cache.redis.addr).
func Load(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(defaultConfigDir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)

	v.SetDefault("cache.provider", d.Cache.Provider)
	v.SetDefault("cache.namespace", d.Cache.Namespace)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.codec", d.Cache.Codec)
	v.SetDefault("cache.framed", d.Cache.Framed)
	v.SetDefault("cache.coalesce", d.Cache.Coalesce)
	v.SetDefault("cache.disabled", d.Cache.Disabled)
	v.SetDefault("cache.redis.url", d.Cache.Redis.URL)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)
	v.SetDefault("cache.ristretto.num_counters", d.Cache.Ristretto.NumCounters)
	v.SetDefault("cache.ristretto.max_cost", d.Cache.Ristretto.MaxCost)
	v.SetDefault("cache.ristretto.buffer_items", d.Cache.Ristretto.BufferItems)
	v.SetDefault("cache.bigcache.life_window", d.Cache.BigCache.LifeWindow)
	v.SetDefault("cache.bigcache.hard_max_cache_size_mb", d.Cache.BigCache.HardMaxCacheSizeMB)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("log.backend", d.Log.Backend)
	v.SetDefault("log.level", d.Log.Level)

	v.SetDefault("feed.explore_endpoint", d.Feed.ExploreEndpoint)
	v.SetDefault("feed.views_endpoint", d.Feed.ViewsEndpoint)
	v.SetDefault("feed.limit", d.Feed.Limit)
	v.SetDefault("feed.order_by", d.Feed.OrderBy)
	v.SetDefault("feed.group.id", d.Feed.Group.ID)
	v.SetDefault("feed.group.name", d.Feed.Group.Name)
	v.SetDefault("feed.group.tags", d.Feed.Group.Tags)

	v.SetDefault("telemetry.otlp_endpoint", d.Telemetry.OTLPEndpoint)
}

func (c *Config) normalize() {
	c.Cache.Provider = strings.ToLower(strings.TrimSpace(c.Cache.Provider))
	c.Cache.Codec = strings.ToLower(strings.TrimSpace(c.Cache.Codec))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Log.Backend = strings.ToLower(strings.TrimSpace(c.Log.Backend))
	// An empty list encodes to zero protobuf bytes, which an unframed
	// cache cannot tell apart from a miss.
	if c.Cache.Codec == "protobuf" {
		c.Cache.Framed = true
	}
	tags := c.Feed.Group.Tags[:0]
	for _, t := range c.Feed.Group.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		tags = nil
	}
	c.Feed.Group.Tags = tags
}

// Validate rejects unknown enum values and incomplete settings.
func (c *Config) Validate() error {
	var errs []error
	if !oneOf(c.Cache.Provider, "redis", "ristretto", "bigcache", "gocache") {
		errs = append(errs, fmt.Errorf("cache.provider: unknown %q", c.Cache.Provider))
	}
	if !oneOf(c.Cache.Codec, "", "json", "msgpack", "cbor", "protobuf") {
		errs = append(errs, fmt.Errorf("cache.codec: unknown %q", c.Cache.Codec))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl: must not be negative"))
	}
	if c.Cache.Provider == "redis" && c.Cache.Redis.URL == "" && c.Cache.Redis.Addr == "" {
		errs = append(errs, errors.New("cache.redis: url or addr is required"))
	}
	if !oneOf(c.Store.Driver, "sqlite", "bolt") {
		errs = append(errs, fmt.Errorf("store.driver: unknown %q", c.Store.Driver))
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path: required"))
	}
	if !oneOf(c.Log.Backend, "zap", "logrus", "slog") {
		errs = append(errs, fmt.Errorf("log.backend: unknown %q", c.Log.Backend))
	}
	if !oneOf(strings.ToLower(c.Log.Level), "", "debug", "info", "warn", "warning", "error") {
		errs = append(errs, fmt.Errorf("log.level: unknown %q", c.Log.Level))
	}
	if !oneOf(c.Feed.Limit, "", "Ten", "TwentyFive", "Fifty") {
		errs = append(errs, fmt.Errorf("feed.limit: unknown %q", c.Feed.Limit))
	}
	if !oneOf(c.Feed.OrderBy, "", "LATEST", "TOP_COMMENTED", "TOP_MIRRORED", "TOP_REACTED") {
		errs = append(errs, fmt.Errorf("feed.order_by: unknown %q", c.Feed.OrderBy))
	}
	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
