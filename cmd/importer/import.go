package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mapply/mapply/internal/core/domain"
	"github.com/mapply/mapply/internal/pkg/metrics"
)

// Creator stores a single validated map event.
type Creator interface {
	Create(ctx context.Context, event domain.MapEvent) (*domain.MapEvent, error)
}

// Result counts import outcomes.
type Result struct {
	Created int64
	Invalid int64
	Failed  int64
}

// Import decodes data as a JSON array of map event objects, validates each
// element and creates the valid ones with at most concurrency inserts in
// flight. Invalid elements are logged and skipped; only a malformed outer
// document is returned as an error.
func Import(ctx context.Context, svc Creator, data []byte, concurrency int) (Result, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return Result{}, fmt.Errorf("input must be a JSON array: %w", err)
	}

	var (
		created, invalid, failed atomic.Int64
		wg                       sync.WaitGroup
	)
	sem := make(chan struct{}, concurrency)

loop:
	for i, raw := range records {
		event, err := domain.ParseMapEvent(raw)
		if err != nil {
			slog.Warn("skipping invalid record", "index", i, "error", err)
			metrics.MapEventsImported.WithLabelValues("invalid").Inc()
			invalid.Add(1)
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break loop
		}
		if ctx.Err() != nil {
			<-sem
			break
		}

		wg.Add(1)
		go func(i int, event domain.MapEvent) {
			defer wg.Done()
			defer func() { <-sem }()

			stored, err := svc.Create(ctx, event)
			if err != nil {
				slog.Error("create failed", "index", i, "error", err)
				metrics.MapEventsImported.WithLabelValues("failed").Inc()
				failed.Add(1)
				return
			}
			slog.Debug("created map event", "index", i, "id", stored.ID)
			metrics.MapEventsImported.WithLabelValues("created").Inc()
			created.Add(1)
		}(i, event)
	}

	wg.Wait()

	return Result{
		Created: created.Load(),
		Invalid: invalid.Load(),
		Failed:  failed.Load(),
	}, ctx.Err()
}
