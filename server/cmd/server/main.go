package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shelfsight/shelfsight/server/internal/alerts"
	"github.com/shelfsight/shelfsight/server/internal/api"
	"github.com/shelfsight/shelfsight/server/internal/auth"
	"github.com/shelfsight/shelfsight/server/internal/config"
	"github.com/shelfsight/shelfsight/server/internal/metrics"
	"github.com/shelfsight/shelfsight/server/internal/refresh"
	"github.com/shelfsight/shelfsight/server/internal/render"
	"github.com/shelfsight/shelfsight/server/internal/store"
	"github.com/shelfsight/shelfsight/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load env file", "path", *envFile, "err", err)
		os.Exit(1)
	}

	slog.Info("shelfsight starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	setLevel(level, cfg.LogLevel)

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"dataset_source", cfg.Dataset.Source,
		"dataset_path", cfg.Dataset.Path,
		"on_invalid", cfg.Dataset.OnInvalid,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Report store; superseded reports expire after history_ttl.
	st := store.New(cfg.Server.HistoryTTL)
	go st.Run(ctx)

	alertEngine, err := alerts.New(cfg.Alerts)
	if err != nil {
		slog.Error("failed to build alert rules", "err", err)
		os.Exit(1)
	}

	hub := ws.New(st, cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	exporter := metrics.New(st)
	refresher := refresh.New(cfg, st, alertEngine, hub, exporter)

	// A failed first load is not fatal: the dashboard shows a waiting page
	// until the watcher or a config change produces a valid report.
	_ = refresher.Reload(ctx)

	if cfg.Dataset.Watch {
		go func() {
			if err := refresher.Watch(ctx); err != nil {
				slog.Error("dataset watcher stopped", "err", err)
			}
		}()
	}

	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			setLevel(level, next.LogLevel)
			if !refresher.Apply(next) {
				_ = refresher.Reload(ctx)
			}
		})
		if err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	renderer := render.New(st, cfg.Server.RenderCacheTTL)
	requireKey := auth.APIKeyMiddleware(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)

	mux := http.NewServeMux()
	mux.Handle("/", renderer)
	mux.Handle("/charts/", renderer.ChartHandler())
	mux.Handle("/api/", requireKey(api.New(st, alertEngine)))
	mux.Handle("/ws/stream", hub)
	mux.Handle("/metrics", exporter)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           mux,
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
	slog.Info("shelfsight shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	alertEngine.Wait()
}

// setLevel applies a validated log_level value.
func setLevel(v *slog.LevelVar, name string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		slog.Warn("unknown log level, keeping current", "level", name)
		return
	}
	v.Set(l)
}
