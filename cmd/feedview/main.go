// Package main is a terminal viewer for a group feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/feedcache/internal/app"
	"github.com/unkn0wn-root/feedcache/internal/config"
	"github.com/unkn0wn-root/feedcache/internal/logging"
	"github.com/unkn0wn-root/feedcache/internal/tui"
	"github.com/unkn0wn-root/feedcache/visibility"
)

func main() {
	var (
		configFile string
		logFile    string
	)
	flag.StringVar(&configFile, "config", "", "path to feedcache.yaml")
	flag.StringVar(&logFile, "log", filepath.Join(os.TempDir(), "feedview.log"), "log file")
	flag.Parse()

	if err := run(configFile, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, logFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The terminal belongs to the UI, so logs go to a file.
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	log, flush, err := logging.New(cfg.Log, f, "feedview")
	if err != nil {
		return err
	}
	defer flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notes := tui.NewNotifier()
	loader, err := app.NewFeedLoader(cfg.Feed, log, notes.OnUpdate)
	if err != nil {
		return err
	}
	defer func() {
		loader.Close()
		loader.Wait()
	}()

	sentinel := visibility.NewSentinel()
	if _, err := loader.Watch(ctx, sentinel); err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewModel(ctx, loader, sentinel, notes), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
