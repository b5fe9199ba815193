package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/insight/internal/config"
	"github.com/aristath/insight/internal/database"
	"github.com/aristath/insight/internal/evaluation"
	"github.com/aristath/insight/internal/events"
	"github.com/aristath/insight/internal/modules/benchmarks"
	"github.com/aristath/insight/internal/modules/reports"
	reportshandlers "github.com/aristath/insight/internal/modules/reports/handlers"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	dataDir := t.TempDir()

	evaluationsDB, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "evaluations.db"),
		Profile: database.ProfileArchive,
		Name:    "evaluations",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = evaluationsDB.Close() })
	require.NoError(t, evaluationsDB.Migrate())

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheDB.Close() })
	require.NoError(t, cacheDB.Migrate())

	bus := events.NewBus(zerolog.Nop())
	repo := reports.NewRepository(evaluationsDB.Conn(), zerolog.Nop())
	evaluator := evaluation.New(zerolog.Nop())
	resolver := benchmarks.NewResolver(benchmarks.NewCache(cacheDB.Conn(), zerolog.Nop()), bus, zerolog.Nop())
	handler := reportshandlers.NewHandler(repo, evaluator, resolver, bus, zerolog.Nop())

	return New(Config{
		Log:            zerolog.Nop(),
		Cfg:            &config.Config{DataDir: dataDir, Port: 0, DevMode: true},
		EvaluationsDB:  evaluationsDB,
		CacheDB:        cacheDB,
		EventBus:       bus,
		ReportHandlers: handler,
	})
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])

	databases, ok := body["databases"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", databases["evaluations"])
	assert.Equal(t, "ok", databases["cache"])
}

func TestSystemStatusEndpoint(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "uptime_seconds")
	assert.Contains(t, body, "cpu_percent")
	assert.Contains(t, body, "ram_percent")
}

func TestDatabaseStatsEndpoint(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/system/databases", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "evaluations")
	require.Contains(t, body, "cache")
	assert.NotContains(t, body["evaluations"], "error")
}

func TestReportRoutesAreMounted(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "data")
	assert.Contains(t, body, "metadata")
}

func TestUnknownRouteReturns404(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
