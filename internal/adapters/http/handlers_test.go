package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/mapply/mapply/internal/adapters/http"
	"github.com/mapply/mapply/internal/core/domain"
	"github.com/mapply/mapply/internal/core/usecases"
)

// ---- In-memory repository ----

type memRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.MapEvent
	fault  error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[int64]domain.MapEvent)}
}

func (r *memRepo) GetByID(ctx context.Context, id int64) (*domain.MapEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fault != nil {
		return nil, r.fault
	}
	m, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (r *memRepo) List(ctx context.Context) ([]domain.MapEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fault != nil {
		return nil, r.fault
	}
	var out []domain.MapEvent
	for _, m := range r.rows {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) Create(ctx context.Context, event domain.MapEvent) (*domain.MapEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fault != nil {
		return nil, r.fault
	}
	r.nextID++
	event.ID = r.nextID
	r.rows[event.ID] = event
	return &event, nil
}

func (r *memRepo) UpdateByID(ctx context.Context, event domain.MapEvent, id int64) (*domain.MapEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fault != nil {
		return nil, r.fault
	}
	if _, ok := r.rows[id]; !ok {
		return nil, domain.ErrNotFound
	}
	event.ID = id
	r.rows[id] = event
	return &event, nil
}

func (r *memRepo) DeleteByID(ctx context.Context, id int64) (*domain.MapEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fault != nil {
		return nil, r.fault
	}
	m, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(r.rows, id)
	return &m, nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps, handler.RouterConfig{})
	return app
}

func makeDeps(repo *memRepo) *handler.Dependencies {
	return &handler.Dependencies{
		MapEvents: usecases.NewMapEventService(repo, nil, nil, 0),
	}
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, []byte, http.Header) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b, resp.Header
}

const cafeJSON = `{"title":"Cafe","description":"Corner cafe","position":{"lat":40.0,"lng":-73.9}}`

func decodeEvent(t *testing.T, b []byte) domain.MapEvent {
	t.Helper()
	var m domain.MapEvent
	require.NoError(t, json.Unmarshal(b, &m), "body: %s", b)
	return m
}

func seed(t *testing.T, app *fiber.App) domain.MapEvent {
	t.Helper()
	status, b, _ := do(t, app, fiber.MethodPost, handler.MapEventsPath, cafeJSON)
	require.Equal(t, fiber.StatusOK, status)
	return decodeEvent(t, b)
}

// ---- Create ----

func TestCreateMapEvent_Success(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))

	status, b, _ := do(t, app, fiber.MethodPost, handler.MapEventsPath, cafeJSON)
	require.Equal(t, fiber.StatusOK, status)

	m := decodeEvent(t, b)
	assert.Greater(t, m.ID, int64(0))
	assert.Equal(t, "Cafe", m.Title)
	assert.Equal(t, "Corner cafe", m.Description)
	assert.Equal(t, domain.Position{Lat: 40.0, Lng: -73.9}, m.Position)
}

func TestCreateMapEvent_IgnoresClientID(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))

	status, b, _ := do(t, app, fiber.MethodPost, handler.MapEventsPath,
		`{"id":4242,"title":"t","description":"d","position":{"lat":1,"lng":2}}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(1), decodeEvent(t, b).ID)
}

func TestCreateMapEvent_TrimsText(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))

	status, b, _ := do(t, app, fiber.MethodPost, handler.MapEventsPath,
		`{"title":"  Cafe ","description":"\tCorner cafe\n","position":{"lat":1,"lng":2}}`)
	require.Equal(t, fiber.StatusOK, status)
	m := decodeEvent(t, b)
	assert.Equal(t, "Cafe", m.Title)
	assert.Equal(t, "Corner cafe", m.Description)
}

func TestCreateMapEvent_InvalidBodies(t *testing.T) {
	cases := map[string]string{
		"empty":            ``,
		"unicode string":   `"ＵＮＩＣＯＤＥ"`,
		"underscore":       `"_"`,
		"empty object":     `{}`,
		"lat out of range": `{"title":"t","description":"d","position":{"lat":999,"lng":0}}`,
		"lng out of range": `{"title":"t","description":"d","position":{"lat":0,"lng":-999}}`,
		"title too long":   fmt.Sprintf(`{"title":%q,"description":"d","position":{"lat":0,"lng":0}}`, strings.Repeat("a", 65)),
		"blank title":      `{"title":"   ","description":"d","position":{"lat":0,"lng":0}}`,
		"missing position": `{"title":"t","description":"d"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			repo := newMemRepo()
			app := setupApp(makeDeps(repo))

			status, b, _ := do(t, app, fiber.MethodPost, handler.MapEventsPath, body)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Empty(t, b)
			assert.Empty(t, repo.rows)
		})
	}
}

// ---- Get ----

func TestGetMapEvent_Success(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))
	created := seed(t, app)

	status, b, hdr := do(t, app, fiber.MethodGet, fmt.Sprintf("%s/%d", handler.MapEventsPath, created.ID), "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, created, decodeEvent(t, b))
	assert.Contains(t, hdr.Get("Content-Type"), "application/json")
	assert.NotEmpty(t, hdr.Get("ETag"))
}

func TestGetMapEvent_NotFound(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))

	for _, id := range []string{"1", "999999", "-1"} {
		status, b, _ := do(t, app, fiber.MethodGet, handler.MapEventsPath+"/"+id, "")
		assert.Equal(t, fiber.StatusNotFound, status, "id %s", id)
		assert.Empty(t, b)
	}
}

func TestMapEvent_InvalidIDs(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))

	for _, id := range []string{"abc", "1e+2", "0.1", "NaN", "inf", "_"} {
		for _, method := range []string{fiber.MethodGet, fiber.MethodPut, fiber.MethodDelete} {
			body := ""
			if method == fiber.MethodPut {
				body = cafeJSON
			}
			status, b, _ := do(t, app, method, handler.MapEventsPath+"/"+id, body)
			assert.Equal(t, fiber.StatusBadRequest, status, "%s %s", method, id)
			assert.Empty(t, b)
		}
	}
}

func TestGetMapEvent_NotModified(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))
	created := seed(t, app)
	target := fmt.Sprintf("%s/%d", handler.MapEventsPath, created.ID)

	_, _, hdr := do(t, app, fiber.MethodGet, target, "")
	etag := hdr.Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(fiber.MethodGet, target, nil)
	req.Header.Set("If-None-Match", etag)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotModified, resp.StatusCode)
}

// ---- List ----

func TestListMapEvents_Empty(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))

	status, b, _ := do(t, app, fiber.MethodGet, handler.MapEventsPath, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `[]`, string(b))
}

func TestListMapEvents_ReturnsAll(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))
	first := seed(t, app)
	second := seed(t, app)

	status, b, _ := do(t, app, fiber.MethodGet, handler.MapEventsPath, "")
	require.Equal(t, fiber.StatusOK, status)

	var events []domain.MapEvent
	require.NoError(t, json.Unmarshal(b, &events))
	assert.Equal(t, []domain.MapEvent{first, second}, events)
}

// ---- Update ----

func TestUpdateMapEvent_Success(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))
	created := seed(t, app)
	target := fmt.Sprintf("%s/%d", handler.MapEventsPath, created.ID)

	status, b, _ := do(t, app, fiber.MethodPut, target,
		`{"id":77,"title":"Bakery","description":"Fresh bread","position":{"lat":-10,"lng":10}}`)
	require.Equal(t, fiber.StatusOK, status)

	updated := decodeEvent(t, b)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Bakery", updated.Title)

	_, b, _ = do(t, app, fiber.MethodGet, target, "")
	assert.Equal(t, updated, decodeEvent(t, b))
}

func TestUpdateMapEvent_MissingIsBadRequest(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))

	for _, id := range []string{"999999", "-1"} {
		status, b, _ := do(t, app, fiber.MethodPut, handler.MapEventsPath+"/"+id, cafeJSON)
		assert.Equal(t, fiber.StatusBadRequest, status, "id %s", id)
		assert.Empty(t, b)
	}
}

func TestUpdateMapEvent_InvalidBody(t *testing.T) {
	repo := newMemRepo()
	app := setupApp(makeDeps(repo))
	created := seed(t, app)
	target := fmt.Sprintf("%s/%d", handler.MapEventsPath, created.ID)

	status, b, _ := do(t, app, fiber.MethodPut, target,
		`{"title":"t","description":"d","position":{"lat":91,"lng":0}}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Empty(t, b)
	assert.Equal(t, created, repo.rows[created.ID])
}

// ---- Delete ----

func TestDeleteMapEvent_Twice(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))
	created := seed(t, app)
	target := fmt.Sprintf("%s/%d", handler.MapEventsPath, created.ID)

	status, b, _ := do(t, app, fiber.MethodDelete, target, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, created, decodeEvent(t, b))

	status, b, _ = do(t, app, fiber.MethodDelete, target, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Empty(t, b)

	status, _, _ = do(t, app, fiber.MethodGet, target, "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

// ---- Storage faults ----

func TestStorageFault_IsInternalServerError(t *testing.T) {
	repo := newMemRepo()
	repo.fault = fmt.Errorf("get map event: %w: %w", domain.ErrStorage, errors.New("connection refused"))
	app := setupApp(makeDeps(repo))

	requests := []struct{ method, target, body string }{
		{fiber.MethodGet, handler.MapEventsPath, ""},
		{fiber.MethodGet, handler.MapEventsPath + "/1", ""},
		{fiber.MethodPost, handler.MapEventsPath, cafeJSON},
		{fiber.MethodPut, handler.MapEventsPath + "/1", cafeJSON},
		{fiber.MethodDelete, handler.MapEventsPath + "/1", ""},
	}
	for _, r := range requests {
		status, b, _ := do(t, app, r.method, r.target, r.body)
		assert.Equal(t, fiber.StatusInternalServerError, status, "%s %s", r.method, r.target)
		assert.Empty(t, b)
	}
}

// ---- Headers and unknown routes ----

func TestCORSHeaderOnEveryResponse(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))

	for _, target := range []string{handler.MapEventsPath, handler.MapEventsPath + "/abc", handler.MapEventsPath + "/5"} {
		_, _, hdr := do(t, app, fiber.MethodGet, target, "")
		assert.Equal(t, "*", hdr.Get("Access-Control-Allow-Origin"), target)
	}
}

func TestUnknownRoute(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))

	status, _, _ := do(t, app, fiber.MethodGet, "/", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

// ---- Health ----

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))

	status, b, hdr := do(t, app, fiber.MethodGet, "/v1/health", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(b), `"healthy"`)
	assert.Equal(t, "no-store", hdr.Get("Cache-Control"))
}

func TestReady(t *testing.T) {
	deps := makeDeps(newMemRepo())
	deps.DB = stubPinger{}
	app := setupApp(deps)

	status, b, _ := do(t, app, fiber.MethodGet, "/v1/ready", "")
	require.Equal(t, fiber.StatusOK, status)

	var result struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(b, &result))
	assert.Equal(t, "ready", result.Status)
	assert.Equal(t, "ok", result.Checks["database"])
	assert.Equal(t, "not configured", result.Checks["cache"])
}

func TestReady_DatabaseDown(t *testing.T) {
	deps := makeDeps(newMemRepo())
	deps.DB = stubPinger{err: errors.New("connection refused")}
	app := setupApp(deps)

	status, _, _ := do(t, app, fiber.MethodGet, "/v1/ready", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
}

// ---- GraphQL ----

func TestGraphQL_MapEvent(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))
	created := seed(t, app)

	query := fmt.Sprintf(`{"query":"{ mapEvent(id: %d) { id title position { lat lng } } }"}`, created.ID)
	status, b, _ := do(t, app, fiber.MethodPost, "/graphql", query)
	require.Equal(t, fiber.StatusOK, status)

	var result struct {
		Data struct {
			MapEvent *struct {
				ID       int64           `json:"id"`
				Title    string          `json:"title"`
				Position domain.Position `json:"position"`
			} `json:"mapEvent"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(b, &result))
	require.Empty(t, result.Errors)
	require.NotNil(t, result.Data.MapEvent)
	assert.Equal(t, created.ID, result.Data.MapEvent.ID)
	assert.Equal(t, "Cafe", result.Data.MapEvent.Title)
	assert.Equal(t, created.Position, result.Data.MapEvent.Position)
}

func TestGraphQL_MissingMapEventIsNull(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))

	status, b, _ := do(t, app, fiber.MethodPost, "/graphql", `{"query":"{ mapEvent(id: 5) { id } }"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"data":{"mapEvent":null}}`, string(b))
}

func TestGraphQL_ListMapEvents(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))
	seed(t, app)
	seed(t, app)

	status, b, _ := do(t, app, fiber.MethodPost, "/graphql", `{"query":"{ mapEvents { id } }"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"data":{"mapEvents":[{"id":1},{"id":2}]}}`, string(b))
}

func TestGraphQL_EmptyQuery(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))

	status, _, _ := do(t, app, fiber.MethodPost, "/graphql", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestRateLimitedResponseCarriesCORSHeader(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, makeDeps(newMemRepo()), handler.RouterConfig{RateLimit: 1})

	status, _, _ := do(t, app, fiber.MethodGet, handler.MapEventsPath, "")
	require.Equal(t, fiber.StatusOK, status)

	status, b, hdr := do(t, app, fiber.MethodGet, handler.MapEventsPath, "")
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Empty(t, b)
	assert.Equal(t, "*", hdr.Get("Access-Control-Allow-Origin"))
}

type stubConn struct{ up bool }

func (s stubConn) IsConnected() bool { return s.up }

func TestReady_BrokerDisconnected(t *testing.T) {
	deps := makeDeps(newMemRepo())
	deps.DB = stubPinger{}
	deps.NATS = stubConn{up: false}
	app := setupApp(deps)

	status, b, _ := do(t, app, fiber.MethodGet, "/v1/ready", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Contains(t, string(b), `"nats":"error: disconnected"`)
}

func TestReady_NoDatabase(t *testing.T) {
	app := setupApp(makeDeps(newMemRepo()))

	status, b, _ := do(t, app, fiber.MethodGet, "/v1/ready", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Contains(t, string(b), `"database":"not configured"`)
}

func TestGraphQL_IDsBeyond32Bits(t *testing.T) {
	repo := newMemRepo()
	repo.nextID = 2999999999
	app := setupApp(makeDeps(repo))
	created := seed(t, app)
	require.Equal(t, int64(3000000000), created.ID)

	status, b, _ := do(t, app, fiber.MethodPost, "/graphql", `{"query":"{ mapEvent(id: 3000000000) { id title } }"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"data":{"mapEvent":{"id":3000000000,"title":"Cafe"}}}`, string(b))

	status, b, _ = do(t, app, fiber.MethodPost, "/graphql",
		`{"query":"query($id: Int64!) { mapEvent(id: $id) { id } }","variables":{"id":3000000000}}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"data":{"mapEvent":{"id":3000000000}}}`, string(b))

	status, b, _ = do(t, app, fiber.MethodPost, "/graphql", `{"query":"{ mapEvents { id } }"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"data":{"mapEvents":[{"id":3000000000}]}}`, string(b))
}
