package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mapply/mapply/internal/adapters/postgres"
	"github.com/mapply/mapply/internal/pkg/config"
	"github.com/mapply/mapply/internal/pkg/logging"
)

const usage = "usage: migrate <up|status>"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load("mapply-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	switch os.Args[1] {
	case "up", "status":
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), 1)
	if err != nil {
		slog.Error("database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, os.Args[1]); err != nil {
		slog.Error("migration failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}

	slog.Info("migration complete", "command", os.Args[1])
}
