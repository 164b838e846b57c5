package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/brojonat/txnview/service/db"
	"github.com/brojonat/txnview/service/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

// seed applies the schema to DATABASE_URL and loads a fixture into it.
// With -export it writes the demo fixture as YAML instead, which is a
// convenient starting point for a hand-edited FIXTURE_PATH.
func main() {
	fixturePath := flag.String("fixture", os.Getenv("FIXTURE_PATH"), "YAML fixture to load (default: generated demo data)")
	demoSize := flag.Int("demo-transactions", 40, "number of generated demo transactions")
	export := flag.String("export", "", "write the fixture as YAML to this path and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	fixture, err := loadFixture(*fixturePath, *demoSize)
	if err != nil {
		logger.Error("failed to load fixture", "error", err)
		os.Exit(1)
	}

	if *export != "" {
		data, err := fixture.Marshal()
		if err != nil {
			logger.Error("failed to encode fixture", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*export, data, 0o644); err != nil {
			logger.Error("failed to write fixture", "path", *export, "error", err)
			os.Exit(1)
		}
		logger.Info("fixture exported", "path", *export, "transactions", len(fixture.Transactions))
		return
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	st := db.NewStore(dbPool)
	if err := st.EnsureSchema(ctx); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	before, err := st.CountTransactions(ctx)
	if err != nil {
		logger.Error("failed to count transactions", "error", err)
		os.Exit(1)
	}

	if err := st.Seed(ctx, fixture); err != nil {
		logger.Error("failed to seed database", "error", err)
		os.Exit(1)
	}

	after, err := st.CountTransactions(ctx)
	if err != nil {
		logger.Error("failed to count transactions", "error", err)
		os.Exit(1)
	}

	logger.Info("seed complete",
		"employees", len(fixture.Employees),
		"inserted", after-before,
		"skipped", int64(len(fixture.Transactions))-(after-before),
	)
}

func loadFixture(path string, demoSize int) (*store.Fixture, error) {
	if path != "" {
		return store.LoadFixture(path)
	}
	if demoSize < 0 {
		return nil, fmt.Errorf("demo-transactions cannot be negative")
	}
	return store.DemoFixture(demoSize), nil
}
