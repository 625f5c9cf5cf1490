package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mapply/mapply/internal/core/domain"
	"github.com/mapply/mapply/internal/core/ports"
	"github.com/mapply/mapply/internal/pkg/metrics"
)

var tracer = otel.Tracer("github.com/mapply/mapply/internal/core/usecases")

// MapEventService handles map event business logic.
type MapEventService struct {
	events    ports.MapEventRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	cacheTTL  int
	fills     fillGuard
}

// NewMapEventService creates a new MapEventService. cache and publisher may
// be nil.
func NewMapEventService(events ports.MapEventRepository, cache ports.CacheService, publisher ports.EventPublisher, cacheTTLSeconds int) *MapEventService {
	return &MapEventService{
		events:    events,
		cache:     cache,
		publisher: publisher,
		cacheTTL:  cacheTTLSeconds,
	}
}

func cacheKey(id int64) string {
	return "map_events:id:" + strconv.FormatInt(id, 10)
}

// Get returns a single map event, reading through the cache.
func (s *MapEventService) Get(ctx context.Context, id int64) (*domain.MapEvent, error) {
	ctx, span := tracer.Start(ctx, "MapEventService.Get", trace.WithAttributes(attribute.Int64("map_event.id", id)))
	defer span.End()

	var gen uint64
	if s.cache != nil {
		data, err := s.cache.Get(ctx, cacheKey(id))
		if err == nil {
			var event domain.MapEvent
			if err := json.Unmarshal(data, &event); err == nil {
				metrics.CacheHits.WithLabelValues("get").Inc()
				return &event, nil
			}
		} else if !errors.Is(err, ports.ErrCacheMiss) {
			slog.WarnContext(ctx, "cache read failed", "id", id, "error", err)
		}
		metrics.CacheMisses.WithLabelValues("get").Inc()
		gen = s.fills.generation(id)
	}

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, record(span, err)
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if data, err := json.Marshal(event); err == nil {
			stored := s.fills.fill(id, gen, func() {
				if err := s.cache.Set(ctx, cacheKey(id), data, s.cacheTTL); err != nil {
					slog.WarnContext(ctx, "cache fill failed", "id", id, "error", err)
				}
			})
			span.SetAttributes(attribute.Bool("cache.filled", stored))
		}
	}

	return event, nil
}

// List returns every map event.
func (s *MapEventService) List(ctx context.Context) ([]domain.MapEvent, error) {
	ctx, span := tracer.Start(ctx, "MapEventService.List")
	defer span.End()

	events, err := s.events.List(ctx)
	if err != nil {
		return nil, record(span, err)
	}
	span.SetAttributes(attribute.Int("map_event.count", len(events)))
	return events, nil
}

// Create stores a validated map event. Any client-supplied id is ignored.
func (s *MapEventService) Create(ctx context.Context, event domain.MapEvent) (*domain.MapEvent, error) {
	ctx, span := tracer.Start(ctx, "MapEventService.Create")
	defer span.End()

	event.ID = 0
	created, err := s.events.Create(ctx, event)
	if err != nil {
		return nil, record(span, err)
	}
	span.SetAttributes(attribute.Int64("map_event.id", created.ID))

	s.afterWrite(ctx, ports.ChangeCreated, created)
	return created, nil
}

// Update overwrites the map event with the given id.
func (s *MapEventService) Update(ctx context.Context, event domain.MapEvent, id int64) (*domain.MapEvent, error) {
	ctx, span := tracer.Start(ctx, "MapEventService.Update", trace.WithAttributes(attribute.Int64("map_event.id", id)))
	defer span.End()

	event.ID = id
	updated, err := s.events.UpdateByID(ctx, event, id)
	if err != nil {
		return nil, record(span, err)
	}

	s.afterWrite(ctx, ports.ChangeUpdated, updated)
	return updated, nil
}

// Delete removes the map event with the given id and returns it as it was.
func (s *MapEventService) Delete(ctx context.Context, id int64) (*domain.MapEvent, error) {
	ctx, span := tracer.Start(ctx, "MapEventService.Delete", trace.WithAttributes(attribute.Int64("map_event.id", id)))
	defer span.End()

	deleted, err := s.events.DeleteByID(ctx, id)
	if err != nil {
		return nil, record(span, err)
	}

	s.afterWrite(ctx, ports.ChangeDeleted, deleted)
	return deleted, nil
}

// afterWrite drops the cached copy and announces the change. Neither step
// affects the outcome of the write.
func (s *MapEventService) afterWrite(ctx context.Context, t ports.ChangeType, event *domain.MapEvent) {
	metrics.MapEventWrites.WithLabelValues(string(t)).Inc()

	if s.cache != nil {
		s.fills.invalidate(event.ID, func() {
			if err := s.cache.Delete(ctx, cacheKey(event.ID)); err != nil {
				slog.WarnContext(ctx, "cache invalidation failed", "id", event.ID, "error", err)
			}
		})
	}

	if s.publisher != nil {
		change := ports.MapEventChange{Type: t, Event: *event}
		if err := s.publisher.PublishMapEventChange(ctx, change); err != nil {
			slog.WarnContext(ctx, "publish map event change failed", "type", t, "id", event.ID, "error", err)
		}
	}
}

func record(span trace.Span, err error) error {
	if !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
