package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/mapply/mapply/internal/core/ports"
	"github.com/mapply/mapply/internal/pkg/metrics"
)

const wsPingInterval = 30 * time.Second

// wsMessage is sent from client to narrow the relayed change types.
type wsMessage struct {
	Action string           `json:"action"` // "subscribe" | "unsubscribe"
	Type   ports.ChangeType `json:"type"`   // "created" | "updated" | "deleted"
}

// WebSocketHandler returns a handler that relays map event changes to
// connected clients. Every change type is relayed until the client sends
// {"action":"unsubscribe","type":"deleted"} or similar.
func WebSocketHandler(changes ports.EventSubscriber) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		muted := make(map[ports.ChangeType]bool)

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		unsubscribe, err := changes.SubscribeMapEventChanges(ctx, func(_ context.Context, change ports.MapEventChange) {
			mu.Lock()
			skip := muted[change.Type]
			mu.Unlock()
			if skip {
				return
			}
			_ = writeJSON(change)
		})
		if err != nil {
			slog.Error("ws subscribe failed", "remote", remoteAddr, "error", err)
			return
		}
		defer unsubscribe()

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Type {
			case ports.ChangeCreated, ports.ChangeUpdated, ports.ChangeDeleted:
			default:
				_ = writeJSON(map[string]string{"error": "unknown type: " + string(m.Type)})
				continue
			}

			switch m.Action {
			case "subscribe":
				mu.Lock()
				delete(muted, m.Type)
				mu.Unlock()
				_ = writeJSON(map[string]string{"status": "subscribed", "type": string(m.Type)})
			case "unsubscribe":
				mu.Lock()
				muted[m.Type] = true
				mu.Unlock()
				_ = writeJSON(map[string]string{"status": "unsubscribed", "type": string(m.Type)})
			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
