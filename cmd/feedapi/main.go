// Package main serves the verified list over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/unkn0wn-root/feedcache"
	asynchook "github.com/unkn0wn-root/feedcache/hooks/async"
	"github.com/unkn0wn-root/feedcache/httpapi"
	"github.com/unkn0wn-root/feedcache/internal/app"
	"github.com/unkn0wn-root/feedcache/internal/config"
	"github.com/unkn0wn-root/feedcache/internal/logging"
	"github.com/unkn0wn-root/feedcache/internal/telemetry"
	"github.com/unkn0wn-root/feedcache/sloghooks"
	"github.com/unkn0wn-root/feedcache/verified"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configFile string
		seed       string
	)
	flag.StringVar(&configFile, "config", "", "path to feedcache.yaml")
	flag.StringVar(&seed, "seed", "", "comma-separated verified ids to add to the store before serving")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configFile, seed); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type seeder interface {
	Add(ctx context.Context, ids ...string) error
}

func run(ctx context.Context, configFile, seed string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, flush, err := logging.New(cfg.Log, os.Stderr, "feedapi")
	if err != nil {
		return err
	}
	defer flush()

	shutdownTracing, err := telemetry.Setup(ctx, "feedapi", cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	hooks := asynchook.New(sloghooks.New(logging.NewSlog(cfg.Log, os.Stderr), sloghooks.Options{
		HitEvery:  100,
		MissEvery: 1,
	}), 1, 1024)
	defer hooks.Close()

	cache, err := app.OpenCache(ctx, cfg.Cache, log, hooks)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer cache.Close(context.Background())

	store, err := app.OpenStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if ids := splitIDs(seed); len(ids) > 0 {
		s, ok := store.(seeder)
		if !ok {
			return errors.New("store does not support seeding")
		}
		if err := s.Add(ctx, ids...); err != nil {
			return fmt.Errorf("failed to seed store: %w", err)
		}
		log.Info("store seeded", feedcache.Fields{"count": len(ids)})
	}

	svc := verified.New(cache, store, verified.WithLogger(log))
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.New(svc, httpapi.WithLogger(log), httpapi.WithTimeout(cfg.Server.RequestTimeout)).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", feedcache.Fields{"addr": cfg.Server.Addr, "provider": cfg.Cache.Provider, "store": cfg.Store.Driver})
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func splitIDs(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
