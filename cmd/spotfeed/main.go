package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/deiragold/spotfeed/internal/api"
	"github.com/deiragold/spotfeed/internal/board"
	"github.com/deiragold/spotfeed/internal/catalog"
	"github.com/deiragold/spotfeed/internal/config"
	"github.com/deiragold/spotfeed/internal/feed"
	"github.com/deiragold/spotfeed/internal/quote"
	"github.com/deiragold/spotfeed/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/spotfeed.local.yaml", "path to config file")
	flag.Parse()

	// Optional .env for local development; absence is fine.
	godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting spotfeed",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"api_url", cfg.API.BaseURL,
		"symbols", cfg.Feed.Symbols,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	restClient := api.NewClient(
		cfg.API.BaseURL,
		cfg.API.AdminID,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	store := quote.NewStore(logger)

	registry := catalog.NewRegistry(
		catalog.Config{RefreshInterval: cfg.Catalog.RefreshInterval},
		restClient,
		logger,
	)
	if err := registry.Start(ctx); err != nil {
		logger.Error("failed to start catalog registry", "error", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		registry.Stop(stopCtx)
	}()

	manager := feed.NewManager(feed.ManagerConfig{
		Secret:       cfg.Feed.Secret,
		Symbols:      cfg.Feed.Symbols,
		PingTimeout:  cfg.Feed.PingTimeout,
		WriteTimeout: cfg.Feed.WriteTimeout,
		BufferSize:   cfg.Feed.BufferSize,
	}, store, logger)

	supervisor := feed.NewSupervisor(feed.SupervisorConfig{
		BaseDelay: cfg.Feed.ReconnectBaseDelay,
		MaxDelay:  cfg.Feed.ReconnectMaxDelay,
	}, manager, logger)

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHandler(store, registry, manager, logger),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	endpoints := make(chan string, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return supervisor.Run(gctx, endpoints)
	})
	g.Go(func() error {
		resolveEndpoints(gctx, cfg, restClient, endpoints, logger)
		return nil
	})

	logger.Info("spotfeed running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	if err := g.Wait(); err != nil {
		logger.Error("component failed", "error", err)
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("spotfeed stopped")
}

// resolveEndpoints announces the feed endpoint: the configured URL when
// present, otherwise whatever the endpoint collaborator reports, re-checked
// periodically so a server move propagates without a restart.
func resolveEndpoints(ctx context.Context, cfg *config.Config, rest *api.Client, out chan<- string, logger *slog.Logger) {
	if cfg.Feed.URL != "" {
		select {
		case out <- cfg.Feed.URL:
		case <-ctx.Done():
		}
		return
	}

	announce := func() {
		endpoint, err := rest.GetServerURL(ctx)
		if err != nil {
			logger.Warn("feed endpoint lookup failed", "error", err)
			return
		}
		select {
		case out <- endpoint:
		default:
			// Supervisor hasn't drained the last announcement yet.
		}
	}

	announce()

	ticker := time.NewTicker(cfg.Catalog.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			announce()
		}
	}
}

// createHandler exposes health plus debug views of the live data.
func createHandler(store *quote.Store, registry *catalog.Registry, manager *feed.Manager, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		snap := registry.Snapshot()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		state := manager.State()
		health.Components["feed"] = map[string]any{
			"state":   string(state),
			"symbols": store.Len(),
		}
		if state != feed.StateStreaming {
			health.Status = "degraded"
		}

		if snap.Empty() {
			health.Components["catalog"] = "empty"
			health.Status = "degraded"
		} else {
			health.Components["catalog"] = map[string]any{
				"commodities": len(snap.Commodities),
				"version":     snap.Version,
				"age":         time.Since(snap.FetchedAt).String(),
			}
		}

		// Degraded is still a 200: "no data yet" is a wait state, not a
		// failure.
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/board", func(w http.ResponseWriter, r *http.Request) {
		b := board.Build(store.Snapshot(), registry.Snapshot())

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(b)
	})

	mux.HandleFunc("/debug/quotes", func(w http.ResponseWriter, r *http.Request) {
		quotes := store.Snapshot()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"count":  len(quotes),
			"quotes": quotes,
			"stats":  manager.Stats(),
		})
	})

	return mux
}
