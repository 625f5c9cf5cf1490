package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"

	"github.com/mapply/mapply/internal/pkg/metrics"
)

const (
	MapEventsPath = "/api/v1/map/events"
	MapEventPath  = "/api/v1/map/events/:id"
)

// Route binds a method and path template to a handler constructor.
type Route struct {
	Method  string
	Path    string
	Handler func(deps *Dependencies) fiber.Handler
}

// MapEventRoutes is the route table of the map event API.
func MapEventRoutes() []Route {
	return []Route{
		{fiber.MethodGet, MapEventsPath, ListMapEventsHandler},
		{fiber.MethodPost, MapEventsPath, CreateMapEventHandler},
		{fiber.MethodGet, MapEventPath, GetMapEventHandler},
		{fiber.MethodPut, MapEventPath, UpdateMapEventHandler},
		{fiber.MethodDelete, MapEventPath, DeleteMapEventHandler},
	}
}

// RouterConfig tunes the middleware stack.
type RouterConfig struct {
	// RateLimit is the number of requests allowed per IP per minute; 0 disables it.
	RateLimit int
}

// SetupRoutes registers middleware, the map event API, and the supporting
// health, metrics, GraphQL, WebSocket and docs routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, cfg RouterConfig) {
	app.Use(recover.New())

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID, propagated into the slog context
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Set before the limiter so that 429s carry the allow-origin header too.
	app.Use(func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return emptyStatus(c, fiber.StatusTooManyRequests)
			},
		}))
	}

	// Preflight only; the allow-origin header comes from the headers
	// middleware above, with or without an Origin request header.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	// Weak ETags on 200 responses, 304 on a matching If-None-Match
	app.Use(etag.New(etag.Config{Weak: true}))
	app.Use(CachingMiddleware())

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	for _, r := range MapEventRoutes() {
		app.Add(r.Method, r.Path, r.Handler(deps))
	}

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	if deps.Changes != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.Changes)))
	}
}
