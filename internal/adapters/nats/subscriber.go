package natsadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/mapply/mapply/internal/core/ports"
)

// Subscriber implements ports.EventSubscriber on a core NATS connection so
// that every subscriber receives every change (fan-out, no acks).
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber wraps an existing connection.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

func (s *Subscriber) SubscribeMapEventChanges(ctx context.Context, handler func(ctx context.Context, change ports.MapEventChange)) (func(), error) {
	sub, err := s.conn.Subscribe(SubjectPrefix+">", func(msg *nats.Msg) {
		var change ports.MapEventChange
		if err := json.Unmarshal(msg.Data, &change); err != nil {
			slog.Warn("dropping malformed map event change", "subject", msg.Subject, "error", err)
			return
		}
		handler(ctx, change)
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// IsConnected reports the state of the underlying connection.
func (s *Subscriber) IsConnected() bool {
	return s.conn.IsConnected()
}

// Close drains the connection.
func (s *Subscriber) Close() {
	_ = s.conn.Drain()
}
