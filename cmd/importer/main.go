package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/mapply/mapply/internal/adapters/nats"
	"github.com/mapply/mapply/internal/adapters/postgres"
	"github.com/mapply/mapply/internal/core/ports"
	"github.com/mapply/mapply/internal/core/usecases"
	"github.com/mapply/mapply/internal/pkg/config"
	"github.com/mapply/mapply/internal/pkg/logging"
)

func main() {
	concurrency := flag.Int("concurrency", 4, "maximum concurrent inserts")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: importer [-concurrency n] <file.json>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 || *concurrency < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load("mapply-importer")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		slog.Error("read input", "file", flag.Arg(0), "error", err)
		os.Exit(1)
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		slog.Error("database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Imports are announced like any other write so live clients see them.
	var publisher ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	svc := usecases.NewMapEventService(postgres.NewMapEventRepo(db), nil, publisher, 0)

	res, err := Import(ctx, svc, data, *concurrency)
	if err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}

	slog.Info("import complete", "created", res.Created, "invalid", res.Invalid, "failed", res.Failed)
	if res.Failed > 0 {
		os.Exit(1)
	}
}
