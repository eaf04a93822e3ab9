// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objpoller.
//
// go-objpoller is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
	"github.com/jeremyhahn/go-objpoller/pkg/ingest"
	"github.com/jeremyhahn/go-objpoller/pkg/memory"
	"github.com/jeremyhahn/go-objpoller/pkg/metrics"
	"github.com/jeremyhahn/go-objpoller/pkg/server/middleware"
	"github.com/jeremyhahn/go-objpoller/pkg/watermark"
)

var fixedNow = time.Date(2024, 1, 1, 0, 1, 40, 0, time.UTC)

type testEnv struct {
	store  *memory.Memory
	server *Server
}

func testConfig() *ServerConfig {
	cfg := DefaultServerConfig()
	cfg.Mode = gin.TestMode
	cfg.Logger = adapters.NewNoOpLogger()
	return cfg
}

func newTestEnv(t *testing.T, cfg *ServerConfig) *testEnv {
	t.Helper()
	store := memory.NewWithClock(func() time.Time { return fixedNow })
	w, err := ingest.New(&ingest.Config{
		Storage: store,
		Clock:   func() time.Time { return fixedNow },
		NewID:   func() string { return "row-1" },
	})
	require.NoError(t, err)
	if cfg == nil {
		cfg = testConfig()
	}
	srv, err := NewServer(w, cfg)
	require.NoError(t, err)
	return &testEnv{store: store, server: srv}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.Router().ServeHTTP(w, req)
	return w
}

func TestNewServerRequiresWriter(t *testing.T) {
	_, err := NewServer(nil, testConfig())
	assert.ErrorIs(t, err, ErrWriterRequired)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/health", "/push"} {
		w := env.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.NotEmpty(t, resp.Version)
	}
}

func TestCreateEntity(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(http.MethodPost, "/push/create/Orders", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/push/Orders/addRows", w.Header().Get("Location"))

	var resp CreateEntityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Orders", resp.Entity)
	assert.True(t, env.store.ContainerExists())
}

func TestCreateEntityRejectsBlank(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(http.MethodPost, "/push/create/%20", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddRows(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(http.MethodPost, "/push/Orders/addRows", `{ "id": 1, "total": 9.5 }`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AddRowsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Orders/2024.01.01.00.01/row-1", resp.Path)

	rc, err := env.store.GetWithContext(context.Background(), resp.Path)
	require.NoError(t, err)
	defer rc.Close()
	stored, _ := io.ReadAll(rc)
	assert.Equal(t, `{"id":1,"total":9.5}`, string(stored))
}

func TestAddRowsRejectsBadBodies(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, body := range []string{"", "not json", "null", `{"open":`} {
		w := env.do(http.MethodPost, "/push/Orders/addRows", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
	assert.Equal(t, 0, env.store.Count())
}

func TestAddRowsTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestSize = 16
	env := newTestEnv(t, cfg)
	w := env.do(http.MethodPost, "/push/Orders/addRows", `{"payload":"`+strings.Repeat("x", 64)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

type failingWriter struct{ err error }

func (f failingWriter) CreateEntity(context.Context, string) error { return f.err }
func (f failingWriter) Append(context.Context, string, []byte) (string, error) {
	return "", f.err
}

func TestStorageFailureMapsToBadGateway(t *testing.T) {
	srv, err := NewServer(failingWriter{err: errors.New("503 from backend")}, testConfig())
	require.NoError(t, err)
	env := &testEnv{server: srv}

	assert.Equal(t, http.StatusBadGateway, env.do(http.MethodPost, "/push/create/Orders", "").Code)
	assert.Equal(t, http.StatusBadGateway, env.do(http.MethodPost, "/push/Orders/addRows", `{}`).Code)
}

func TestWatermarksEndpoint(t *testing.T) {
	wm := watermark.New(&watermark.Config{Initializer: watermark.Fixed(fixedNow)})
	_, err := wm.Advance(context.Background(), "Orders", fixedNow.Add(time.Minute))
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Watermarks = wm
	env := newTestEnv(t, cfg)

	w := env.do(http.MethodGet, "/watermarks", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp ListWatermarksResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Orders", resp.Watermarks[0].Entity)
	assert.Equal(t, "2024-01-01T00:02:40Z", resp.Watermarks[0].Watermark)
}

func TestWatermarksEndpointAbsentWithoutSource(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/watermarks", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	rep, err := metrics.NewPrometheus(reg)
	require.NoError(t, err)
	rep.ObjectsAdmitted("Orders", 3)

	cfg := testConfig()
	cfg.Gatherer = reg
	env := newTestEnv(t, cfg)

	w := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "objpoller_")
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(http.MethodGet, "/health", "")
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRateLimitedPush(t *testing.T) {
	cfg := testConfig()
	cfg.EnableRateLimit = true
	cfg.RateLimitConfig = &middleware.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1, Scope: middleware.ScopeEntity}
	env := newTestEnv(t, cfg)

	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/push/Orders/addRows", `{}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(http.MethodPost, "/push/Orders/addRows", `{}`).Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Addr = "127.0.0.1:0"
	env := newTestEnv(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Serve(ctx, time.Second) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
