package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakhq/curator/internal/api/handlers"
	"github.com/streakhq/curator/internal/architect"
	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/internal/curator"
	"github.com/streakhq/curator/internal/lifecycle"
	"github.com/streakhq/curator/internal/settlement"
	"github.com/streakhq/curator/internal/sources"
	"github.com/streakhq/curator/internal/watchtower"
	"github.com/streakhq/curator/pkg/logger"
)

func newTestEngine(t *testing.T) *curator.Engine {
	t.Helper()
	log := logger.Nop()
	registry := lifecycle.NewMemoryRegistry()

	var eng *curator.Engine
	lc := lifecycle.NewScheduler(registry, func(m contracts.GameMode) bool { return eng.GameModeEnabled(m) }, log)

	eng, err := curator.New(curator.Options{
		Config: contracts.CuratorConfig{
			Enabled: true, Mode: contracts.ModeHumanReview, IntervalSeconds: 300, MaxMarketsPerHour: 10,
		},
		Signals:   watchtower.New(nil, nil, sources.NewStatic(nil, nil), log, watchtower.Timeouts{Market: time.Second, Trends: time.Second}),
		Architect: architect.New(nil, 0, log),
		Lifecycle: lc,
		Registry:  registry,
		Publisher: settlement.NewLogPublisher(log),
		Logger:    log,
	})
	require.NoError(t, err)
	return eng
}

func serve(t *testing.T, h http.Handler, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestRouter_Health(t *testing.T) {
	router := NewRouter(handlers.NewCuratorHandler(newTestEngine(t), logger.Nop()), nil, nil, logger.Nop())

	code, body := serve(t, router, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "curator", body["service"])
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_HealthReportsDependencies(t *testing.T) {
	var redisDown bool
	checks := map[string]HealthCheck{
		"database": func(context.Context) (interface{}, error) {
			return map[string]interface{}{"total_conns": 4}, nil
		},
		"redis": func(context.Context) (interface{}, error) {
			if redisDown {
				return nil, errors.New("dial tcp 127.0.0.1:6379: connection refused")
			}
			return nil, nil
		},
	}
	router := NewRouter(handlers.NewCuratorHandler(newTestEngine(t), logger.Nop()), nil, checks, logger.Nop())

	code, body := serve(t, router, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, code)
	db := body["checks"].(map[string]interface{})["database"].(map[string]interface{})
	assert.Equal(t, true, db["healthy"])
	assert.NotNil(t, db["details"])

	redisDown = true
	code, body = serve(t, router, "GET", "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body["status"])
	rc := body["checks"].(map[string]interface{})["redis"].(map[string]interface{})
	assert.Equal(t, false, rc["healthy"])
	assert.Contains(t, rc["error"], "connection refused")
}

func TestRouter_CuratorRoutes(t *testing.T) {
	eng := newTestEngine(t)
	router := NewRouter(handlers.NewCuratorHandler(eng, logger.Nop()), handlers.NewHub(logger.Nop()), nil, logger.Nop())

	code, body := serve(t, router, "GET", "/api/curator/status", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "HUMAN_REVIEW", body["data"].(map[string]interface{})["mode"])

	code, _ = serve(t, router, "POST", "/api/curator/toggle", `{"mode":"FULL_CONTROL"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, contracts.ModeFullControl, eng.Config().Mode)

	at := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	opened, err := eng.CheckBoundaries(context.Background(), at)
	require.NoError(t, err)
	require.NotEmpty(t, opened)

	code, body = serve(t, router, "GET", "/api/curator/markets?status=OPEN", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(len(opened)), body["count"])

	code, body = serve(t, router, "GET", "/api/curator/markets/"+opened[0].ID, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, opened[0].ID, body["data"].(map[string]interface{})["id"])

	code, _ = serve(t, router, "GET", "/api/curator/markets/nope", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = serve(t, router, "POST", "/api/curator/drafts/nope/approve", "")
	assert.Equal(t, http.StatusNotFound, code)

	// no job scheduler is wired in this engine
	code, _ = serve(t, router, "POST", "/api/curator/jobs/settlement_sweep/run", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = serve(t, router, "GET", "/api/curator/jobs/settlement_sweep", "")
	assert.Equal(t, http.StatusNotFound, code)
}
