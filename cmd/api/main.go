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

	"github.com/your-org/visora/internal/api"
	"github.com/your-org/visora/internal/api/ws"
	"github.com/your-org/visora/internal/app"
	"github.com/your-org/visora/internal/config"
	"github.com/your-org/visora/internal/observability"
	"github.com/your-org/visora/internal/queue"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting Visora API service", "port", cfg.Server.Port, "camera_persistence", cfg.Camera.Persistence)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run(ctx)

	a, err := app.New(ctx, cfg, hub)
	if err != nil {
		slog.Error("init app", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// With NATS, camera events come back through the stream so every API
	// instance can push them to its own clients.
	if cfg.NATS.URL != "" {
		consumer, err := queue.NewConsumer(cfg.NATS.URL, cfg.NATS.Channel)
		if err != nil {
			slog.Error("create camera event consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()

		name := "api-camera-events-" + hostname()
		if err := consumer.ConsumeCameraEvents(ctx, name, hub.PublishCameraEvent); err != nil {
			slog.Warn("start camera event consumer", "error", err)
		}
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey: cfg.Server.APIKey,
		Tools:  a.Tools,
		Camera: a.Camera,
		Hub:    hub,
		Checks: a.Checks,
	})

	// Start HTTP server. Capture tools can run for several seconds.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// flush queued camera events before the hub goes away
	a.Close()
	cancel()

	slog.Info("API server stopped")
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "local"
	}
	return h
}
