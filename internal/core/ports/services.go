package ports

import (
	"context"
	"errors"

	"github.com/mapply/mapply/internal/core/domain"
)

// ChangeType names the kind of mutation a MapEventChange describes.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// MapEventChange is the payload published after a successful write.
type MapEventChange struct {
	Type  ChangeType      `json:"type"`
	Event domain.MapEvent `json:"event"`
}

// EventPublisher publishes map event changes to a message broker.
type EventPublisher interface {
	PublishMapEventChange(ctx context.Context, change MapEventChange) error
}

// EventSubscriber delivers map event changes as they are published.
// The returned function cancels the subscription.
type EventSubscriber interface {
	SubscribeMapEventChanges(ctx context.Context, handler func(ctx context.Context, change MapEventChange)) (func(), error)
}

// ErrCacheMiss is returned by CacheService.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// CacheService provides read-through caching. Get reports an absent key
// as ErrCacheMiss; any other error is a cache fault.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
