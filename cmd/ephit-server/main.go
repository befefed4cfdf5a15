// Command ephit-server is the main entry point for the e-PHIT wellness
// backend: the video catalog API, the workout-finder quiz, and the streamed
// coach chat.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fitnessuom/ephit-mental-health/internal/catalog"
	"github.com/fitnessuom/ephit-mental-health/internal/config"
	"github.com/fitnessuom/ephit-mental-health/internal/gateway"
	"github.com/fitnessuom/ephit-mental-health/internal/observe"
	"github.com/fitnessuom/ephit-mental-health/internal/server"
)

const defaultListenAddr = ":8080"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level lives in a LevelVar so a config reload can adjust it.
	level := &slog.LevelVar{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Load configuration (with hot reload) ──────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
		if d.RestartRequired {
			slog.Warn("config change requires a restart to take effect")
		}
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "ephit-server: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "ephit-server: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()

	cfg := watcher.Current()
	level.Set(slogLevel(cfg.Server.LogLevel))

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	slog.Info("ephit-server starting",
		"config", *configPath,
		"listen_addr", listenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "ephit-server",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Video catalog ─────────────────────────────────────────────────────────
	var cat *catalog.Catalog
	if cfg.Catalog.IndexPath != "" {
		cat, err = catalog.LoadIndexFile(cfg.Catalog.IndexPath)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		slog.Error("failed to load video catalog", "err", err)
		return 1
	}
	slog.Info("video catalog loaded", "videos", cat.Len(), "categories", len(cat.Categories()))

	// ── AI gateway ────────────────────────────────────────────────────────────
	gwOpts := []gateway.Option{
		gateway.WithSystemPrompt(gateway.SystemPrompt(cat)),
	}
	if cfg.Gateway.BaseURL != "" {
		gwOpts = append(gwOpts, gateway.WithBaseURL(cfg.Gateway.BaseURL))
	}
	if cfg.Gateway.Model != "" {
		gwOpts = append(gwOpts, gateway.WithModel(cfg.Gateway.Model))
	}
	if cfg.Gateway.Timeout > 0 {
		gwOpts = append(gwOpts, gateway.WithTimeout(cfg.Gateway.Timeout))
	}
	if cfg.Gateway.RateLimit > 0 {
		gwOpts = append(gwOpts, gateway.WithRateLimit(rate.Limit(cfg.Gateway.RateLimit), cfg.Gateway.RateBurst))
	}
	gw, err := gateway.New(cfg.Gateway.APIKey, gwOpts...)
	if err != nil {
		slog.Error("failed to build gateway client", "err", err)
		return 1
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srvOpts := []server.Option{
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithTurnTimeout(cfg.Chat.TurnTimeout),
	}
	if cfg.Chat.MaxLinks > 0 {
		srvOpts = append(srvOpts, server.WithMaxLinks(cfg.Chat.MaxLinks))
	}
	if cfg.Quiz.RecommendCount > 0 {
		srvOpts = append(srvOpts, server.WithRecommendCount(cfg.Quiz.RecommendCount))
	}
	if cfg.Quiz.HistoryCap > 0 {
		srvOpts = append(srvOpts, server.WithQuizHistoryCap(cfg.Quiz.HistoryCap))
	}
	api := server.New(cat, gw, srvOpts...)

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", listenAddr)
		var serveErr error
		if tls := cfg.Server.TLS; tls != nil {
			serveErr = httpServer.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			serveErr = httpServer.ListenAndServe()
		}
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}
		return serveErr
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// slogLevel maps a config log level to its slog equivalent.
func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
