package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeinthehole/sitefeeds/pkg/types"
	"github.com/codeinthehole/sitefeeds/server/internal/annotate"
	"github.com/codeinthehole/sitefeeds/server/internal/api"
	"github.com/codeinthehole/sitefeeds/server/internal/cache"
	"github.com/codeinthehole/sitefeeds/server/internal/config"
	"github.com/codeinthehole/sitefeeds/server/internal/feed"
	"github.com/codeinthehole/sitefeeds/server/internal/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file; leave empty to run with defaults")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("sitefeeds starting", "config", *configPath)

	cfg := config.Defaults()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
	}
	level.Set(cfg.Server.Level())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"twitter_user", cfg.Twitter.Username,
		"twitter_ttl", cfg.Twitter.TTL,
		"github_user", cfg.GitHub.Username,
		"github_ttl", cfg.GitHub.TTL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	h, m, st, err := build(cfg)
	if err != nil {
		slog.Error("failed to build service", "err", err)
		os.Exit(1)
	}

	// Purge expired cache entries in the background.
	go st.Run(ctx)

	// Hot-reload adjusts the log level and default users. Endpoints, TTLs and
	// auth are fixed for the life of the process.
	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
				level.Set(updated.Server.Level())
				h.SetDefaultUsers(updated.Twitter.Username, updated.GitHub.Username)
				slog.Info("config hot-reloaded",
					"log_level", updated.Server.LogLevel,
					"twitter_user", updated.Twitter.Username,
					"github_user", updated.GitHub.Username,
				)
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", h)
	httpMux.Handle("/metrics", m.Handler())

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("sitefeeds shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}

// build wires fetchers, cache, metrics and the API handler from cfg.
func build(cfg *config.Config) (*api.Handler, *metrics.Metrics, *cache.Store, error) {
	ann := annotate.New(cfg.Annotate.ProfileBase, cfg.Annotate.GitHubBase)

	tw, err := feed.NewTwitter(cfg.Twitter, ann)
	if err != nil {
		return nil, nil, nil, err
	}
	gh, err := feed.NewGitHub(cfg.GitHub, ann)
	if err != nil {
		return nil, nil, nil, err
	}

	twPolicy, err := cache.ParsePolicy(cfg.Twitter.OnError)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("twitter: %w", err)
	}
	ghPolicy, err := cache.ParsePolicy(cfg.GitHub.OnError)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("github: %w", err)
	}

	st := cache.NewStore(cfg.Server.CleanupInterval)
	m := metrics.New(st.Count)

	h := api.New(api.Deps{
		Tweets:      cache.NewCached[types.Tweet]("tweets", cfg.Twitter.TTL, twPolicy, tw, st, m),
		TwitterUser: cfg.Twitter.Username,
		GitHub:      cache.NewCached[types.Activity]("github", cfg.GitHub.TTL, ghPolicy, gh, st, m),
		GitHubUser:  cfg.GitHub.Username,
		Cache:       st,
	})
	return h, m, st, nil
}
