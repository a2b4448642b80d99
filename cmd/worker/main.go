// Command worker runs the session engine's background processes: the
// transactional outbox processor, the reminder processor, and the
// meeting-link retry worker, plus a health/readiness HTTP surface.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skillswap/sessionengine/internal/app"
	"github.com/skillswap/sessionengine/pkg/config"
	"github.com/skillswap/sessionengine/pkg/observability"
)

func main() {
	bootLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       observability.LogLevel(cfg.LogLevel),
		Format:      logFormatFor(cfg),
		Output:      os.Stdout,
		AddSource:   cfg.IsProduction(),
		ServiceName: "sessionengine-worker",
	})
	logger.Info("starting session engine worker", "app_env", cfg.AppEnv)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build container", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database", "driver", container.Conn.Driver())

	if err := container.Start(ctx); err != nil {
		logger.Error("failed to start background processors", "error", err)
		os.Exit(1)
	}
	logger.Info("background processors started",
		"outbox_poll_interval", cfg.OutboxPollInterval,
		"reminder_tick_interval", 30*time.Second,
	)

	if cfg.WorkerHealthAddr != "" {
		startHealthServer(ctx, cfg.WorkerHealthAddr, container, logger)
	}

	<-ctx.Done()
	logger.Info("shutting down worker")
	container.Stop()
	logger.Info("worker stopped")

	fmt.Println("worker exited cleanly")
}

// logFormatFor picks JSON logs in production, text logs otherwise: the
// same split the teacher's own services use between local and deployed runs.
func logFormatFor(cfg *config.Config) observability.LogFormat {
	if cfg.IsProduction() {
		return observability.LogFormatJSON
	}
	return observability.LogFormatText
}

func startHealthServer(ctx context.Context, addr string, container *app.Container, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		overall := container.Health.GetOverallHealth(r.Context())
		outboxStats := container.OutboxProcessor.GetStats()

		status := http.StatusOK
		if overall.Status == observability.HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": overall.Status,
			"checks": overall.Checks,
			"outbox": map[string]any{
				"running":           outboxStats.IsRunning,
				"published":         outboxStats.PublishedCount,
				"failed":            outboxStats.FailedCount,
				"dead":              outboxStats.DeadCount,
				"last_processed_at": outboxStats.LastProcessedAt,
				"last_error":        outboxStats.LastError,
			},
		})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := container.Conn.Ping(checkCtx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "not_ready", "error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ready"})
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("health server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()
}
