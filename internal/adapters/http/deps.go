package http

import (
	"context"

	"github.com/mapply/mapply/internal/core/ports"
	"github.com/mapply/mapply/internal/core/usecases"
)

// Pinger is implemented by backing services that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionState is implemented by broker connections.
type ConnectionState interface {
	IsConnected() bool
}

// Dependencies holds all services needed by HTTP handlers. Only MapEvents is
// required; the rest are optional and disable their feature when nil.
type Dependencies struct {
	MapEvents *usecases.MapEventService
	Changes   ports.EventSubscriber
	DB        Pinger
	Cache     Pinger
	NATS      ConnectionState
}
