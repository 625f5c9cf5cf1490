package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mapply/mapply/internal/adapters/http"
	natsadapter "github.com/mapply/mapply/internal/adapters/nats"
	"github.com/mapply/mapply/internal/adapters/postgres"
	"github.com/mapply/mapply/internal/adapters/valkey"
	"github.com/mapply/mapply/internal/core/ports"
	"github.com/mapply/mapply/internal/core/usecases"
	"github.com/mapply/mapply/internal/pkg/config"
	"github.com/mapply/mapply/internal/pkg/logging"
	"github.com/mapply/mapply/internal/pkg/metrics"
	"github.com/mapply/mapply/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("mapply-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg); err != nil {
		slog.Error("api server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	deps := &http.Dependencies{DB: db}

	// Cache
	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		c, err := valkey.New(cfg.Valkey.Addr, "mapply:")
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer c.Close()
			cache = c
			deps.Cache = c
		}
	}

	// NATS
	var publisher ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}

		// Separate connection for the WebSocket relay
		conn, err := natsadapter.Connect(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			sub := natsadapter.NewSubscriber(conn)
			defer sub.Close()
			deps.Changes = sub
			deps.NATS = sub
		}
	}

	repo := postgres.NewMapEventRepo(db)
	deps.MapEvents = usecases.NewMapEventService(repo, cache, publisher, cfg.Valkey.TTL)

	go reportPoolMetrics(ctx, db)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:             1024 * 1024, // 1 MB max request body
		AppName:               "Mapply API",
		DisableStartupMessage: true,
	})

	http.SetupRoutes(app, deps, http.RouterConfig{RateLimit: cfg.Server.RateLimit})

	listenErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		listenErr <- app.Listen(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-listenErr:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	}

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// reportPoolMetrics copies pgxpool statistics into Prometheus every 15s.
func reportPoolMetrics(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	var prevEmpty int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prevEmpty = metrics.UpdateDBPoolMetrics(db.Stat(), prevEmpty)
		}
	}
}
