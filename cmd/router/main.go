package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"web3-rpc-router-go/internal/config"
	"web3-rpc-router-go/internal/database"
	"web3-rpc-router-go/internal/monitor"
	"web3-rpc-router-go/internal/recovery"
	"web3-rpc-router-go/internal/router"
	"web3-rpc-router-go/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err.Error())
		os.Exit(1)
	}
	router.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := resolveProviders(ctx, cfg)
	if err != nil {
		slog.Error("provider_load_failed", "error", err.Error())
		os.Exit(1)
	}

	rate := monitor.NewRateMonitor()
	mgr, err := router.New(ctx, providers, router.Options{
		MaxQueueSize:    cfg.MaxQueueSize,
		MaxConcurrency:  cfg.MaxConcurrency,
		BackoffDuration: cfg.BackoffSeconds,
		OnRequest:       rate.Record,
	})
	if err != nil {
		slog.Error("router_init_failed", "error", err.Error())
		os.Exit(1)
	}

	reporter := monitor.NewReporter(mgr, rate)
	hub := web.NewHub()
	recovery.Go("status-hub", func() { hub.Run(ctx) })
	recovery.Go("status-reporter", func() { reporter.Run(ctx, cfg.StatusInterval) })
	recovery.Go("ws-publisher", func() { publishSnapshots(ctx, hub, reporter) })

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newAPIHandler(mgr, reporter, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	recovery.Go("http-server", func() {
		slog.Info("🌐 API_SERVER_LISTENING", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err.Error())
		}
	})

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	mgr.Close()
}

// resolveProviders 合并环境变量与数据库中的节点配置（数据库优先）
func resolveProviders(ctx context.Context, cfg *config.Config) ([]router.ProviderConfig, error) {
	providers := cfg.Providers

	if cfg.DatabaseURL != "" {
		store, err := database.NewProviderStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		if err := store.InitSchema(ctx); err != nil {
			return nil, err
		}
		fromDB, err := store.LoadActive(ctx)
		if err != nil {
			return nil, err
		}
		providers = mergeProviders(providers, fromDB)
		slog.Info("📦 PROVIDERS_LOADED_FROM_DB", "count", len(fromDB))
	}
	return providers, nil
}

// mergeProviders: 同名配置以数据库为准，其余并集
func mergeProviders(fromEnv, fromDB []router.ProviderConfig) []router.ProviderConfig {
	byName := make(map[string]bool, len(fromDB))
	merged := make([]router.ProviderConfig, 0, len(fromEnv)+len(fromDB))
	for _, cfg := range fromDB {
		byName[cfg.Name] = true
		merged = append(merged, cfg)
	}
	for _, cfg := range fromEnv {
		if !byName[cfg.Name] {
			merged = append(merged, cfg)
		}
	}
	return merged
}

func publishSnapshots(ctx context.Context, hub *web.Hub, reporter *monitor.Reporter) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hub.BroadcastJSON(reporter.Snapshot())
		}
	}
}
