package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/txnview/service/config"
	"github.com/brojonat/txnview/service/db"
	"github.com/brojonat/txnview/service/metrics"
	natspkg "github.com/brojonat/txnview/service/nats"
	"github.com/brojonat/txnview/service/server"
	"github.com/brojonat/txnview/service/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Fail fast on invalid configuration.
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"page_size", cfg.PageSize,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	fixture, err := loadFixture(cfg)
	if err != nil {
		logger.Error("failed to load fixture", "error", err)
		os.Exit(1)
	}

	st, closeStore, err := openStore(ctx, cfg, fixture, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Approval events are optional; without NATS the server still serves the API.
	var publisher natspkg.Publisher
	var ssePublisher *server.SSEPublisher
	if cfg.NATSURL != "" {
		p, err := natspkg.NewPublisher(cfg.NATSURL, logger, m)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p

		ssePublisher, err = server.NewSSEPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to create SSE publisher", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("NATS_URL not set, approval events disabled")
	}

	httpServer := server.New(cfg.ServerAddr, cfg, st, publisher, ssePublisher, m, logger)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// loadFixture reads FIXTURE_PATH, or generates the demo dataset.
func loadFixture(cfg *config.Config) (*store.Fixture, error) {
	if cfg.FixturePath != "" {
		return store.LoadFixture(cfg.FixturePath)
	}
	return store.DemoFixture(cfg.DemoTransactions), nil
}

// openStore returns the Postgres store when DATABASE_URL is set and the
// in-memory store otherwise. An empty database is seeded from the fixture.
func openStore(ctx context.Context, cfg *config.Config, fixture *store.Fixture, logger *slog.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		st, err := store.NewMemoryStore(fixture)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using in-memory store",
			"employees", len(fixture.Employees),
			"transactions", len(fixture.Transactions),
		)
		return st, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("connected to database")

	st := db.NewStore(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	n, err := st.CountTransactions(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	if n == 0 {
		if err := st.Seed(ctx, fixture); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("seeded empty database", "transactions", len(fixture.Transactions))
	}

	return st, pool.Close, nil
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
