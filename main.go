package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/satanowski/tvfeed/internal/config"
	"github.com/satanowski/tvfeed/internal/feed"
	"github.com/satanowski/tvfeed/internal/schedule"
	"github.com/satanowski/tvfeed/internal/tvprogram"
	"github.com/satanowski/tvfeed/internal/viewership"
)

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "tvfeed",
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		logger.Warn("unknown log level, using info", "level", level)
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func newSource(cfg config.Config, logger *log.Logger) schedule.Source {
	if cfg.Source == config.SourceCSV {
		return &tvprogram.RepoCSV{
			URL:      cfg.CSVURL,
			Channels: cfg.Channels(),
			Location: cfg.Location,
			Timeout:  cfg.FetchTimeout,
			Logger:   logger.WithPrefix("csv"),
		}
	}
	return &tvprogram.Scraper{
		Channels:       cfg.Channels(),
		Selectors:      tvprogram.DefaultSelectors,
		AllowedDomains: cfg.AllowedDomains(),
		Location:       cfg.Location,
		Timeout:        cfg.FetchTimeout,
		Parallelism:    cfg.Parallelism,
		Logger:         logger.WithPrefix("scraper"),
	}
}

// newRegistry keeps webhook subscriptions in PostgreSQL when a connection
// string is configured and in memory otherwise.
func newRegistry(ctx context.Context, cfg config.Config, logger *log.Logger) (feed.Registry, func()) {
	if cfg.PGConn == "" {
		logger.Info("webhook subscriptions kept in memory")
		return feed.NewMemoryRegistry(0), func() {}
	}
	registry, err := feed.OpenPGRegistry(ctx, cfg.PGConn)
	if err != nil {
		logger.Fatal("cannot open webhook registry", "err", err)
	}
	return registry, func() {
		if err := registry.Close(); err != nil {
			logger.Error("cannot close webhook registry", "err", err)
		}
	}
}

func serve(cfg config.Config, logger *log.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := schedule.NewStore()
	svc := feed.NewService(store, viewership.New(nil), time.Now)
	hub := feed.NewHub(svc, cfg.PushInterval, logger.WithPrefix("feed"))

	registry, closeRegistry := newRegistry(ctx, cfg, logger)
	defer closeRegistry()
	notifier := &feed.Notifier{
		Store:    store,
		Registry: registry,
		Interval: cfg.NotifyInterval,
		Timeout:  cfg.WebhookTimeout,
		Logger:   logger.WithPrefix("notify"),
	}
	if cfg.Monitor {
		notifier.Start()
	}

	known := map[string]bool{}
	for _, key := range cfg.ChannelKeys {
		known[key] = true
	}
	handlers := &feed.Handlers{
		Service:  svc,
		Hub:      hub,
		Notifier: notifier,
		Store:    store,
		Channels: known,
		Logger:   logger.WithPrefix("http"),
	}
	refresher := &schedule.Refresher{
		Source:   newSource(cfg, logger),
		Store:    store,
		Attempts: cfg.BootstrapAttempts,
		Interval: cfg.RefreshInterval,
		Logger:   logger.WithPrefix("refresh"),
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlers.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "channels", cfg.ChannelKeys, "source", cfg.Source)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", "err", err)
		}
	}()

	go func() {
		if err := refresher.Bootstrap(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Fatal("cannot load schedule", "err", err)
		}
		refresher.Run(ctx)
	}()

	<-ctx.Done()
	logger.Info("shutting down...")
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "err", err)
	}
	notifier.Stop()
}

func pickChannel(keys []string) string {
	var options []huh.Option[string]
	var channel string
	for _, key := range keys {
		options = append(options, huh.NewOption(key, key))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Pick a channel").
				Options(options...).
				Value(&channel),
		))

	if err := form.Run(); err != nil {
		log.Fatal(err)
	}
	return channel
}

func dump(cfg config.Config, logger *log.Logger, pick bool) {
	if pick {
		cfg.ChannelKeys = []string{pickChannel(cfg.ChannelKeys)}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shows, err := newSource(cfg, logger).Fetch(ctx)
	if err != nil {
		logger.Fatal("cannot fetch schedule", "err", err)
	}
	now := time.Now().In(cfg.Location)
	snap := schedule.NewSnapshot(shows, now)
	for _, key := range cfg.ChannelKeys {
		fmt.Println(renderSchedule(key, snap.Today(key, now), schedule.Current(snap.Channels[key], now)))
	}
}

func main() {
	var style = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7D56F4"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", "err", err)
	}
	logger := newLogger(cfg.LogLevel)

	action := "serve"
	if len(os.Args) > 1 {
		action = os.Args[1]
	}
	switch action {
	case "serve", "s":
		fmt.Println(style.Render("Serving TV feed..."))
		serve(cfg, logger)
	case "dump", "d":
		fmt.Println(style.Render("Today's schedule:"))
		dump(cfg, logger, len(os.Args) == 3 && os.Args[2] == "p")
	default:
		logger.Error("Wrong execution!", "action", action)
		os.Exit(1)
	}
	fmt.Println(style.Render("...done"))
}
