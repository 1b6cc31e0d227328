package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/proximity-backend-go/internal/config"
	"github.com/jengzang/proximity-backend-go/internal/events"
	"github.com/jengzang/proximity-backend-go/internal/handler"
	"github.com/jengzang/proximity-backend-go/internal/ingest"
	"github.com/jengzang/proximity-backend-go/internal/metrics"
	"github.com/jengzang/proximity-backend-go/internal/middleware"
	"github.com/jengzang/proximity-backend-go/internal/models"
	"github.com/jengzang/proximity-backend-go/internal/repository"
	"github.com/jengzang/proximity-backend-go/internal/service"
	"github.com/jengzang/proximity-backend-go/internal/tracker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(t *testing.T, shape config.IngestShape, wrap func(repository.Store) repository.Store) *gin.Engine {
	t.Helper()
	store, err := repository.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var s repository.Store = store
	if wrap != nil {
		s = wrap(store)
	}

	cfg := &config.Config{
		Shape:        shape,
		Unit:         config.UnitCentimeters,
		StaleAfter:   2 * time.Minute,
		FilterWindow: 10 * time.Second,
		RawKey:       "sensor",
		Location:     time.UTC,
		RateLimit:    100,
		RateWindow:   time.Minute,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	locks := tracker.NewKeyedMutex()

	return SetupRouter(cfg, Handlers{
		Ingest: handler.NewIngestHandler(
			ingest.NewDecoder(cfg.Shape, cfg.Location),
			service.NewIngestService(s, locks, cfg, events.Nop{}, m, log),
			log,
		),
		Readings:  handler.NewReadingHandler(service.NewReadingService(s), log),
		Employees: handler.NewEmployeeHandler(service.NewEmployeeService(s, locks), log),
		Limiter:   middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		Metrics:   m,
	}, log)
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestHealth(t *testing.T) {
	r := newRouter(t, config.ShapeSingle, nil)
	w, _ := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"shape":"single"`)
}

func TestIngestEmployeeMachinesFlow(t *testing.T) {
	r := newRouter(t, config.ShapeEmployeeMachines, nil)

	w, env := do(t, r, http.MethodPost, "/api/v1/ingest",
		`{"name":"ana","machines":[{"name":"lathe","lastDistance":120},{"name":"press","lastDistance":80}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Employee machines updated", env.Message)

	var result service.IngestResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotNil(t, result.Employee)
	assert.Len(t, result.Employee.Machines, 2)

	w, env = do(t, r, http.MethodGet, "/api/v1/employees/ana", "")
	require.Equal(t, http.StatusOK, w.Code)
	var emp models.Employee
	require.NoError(t, json.Unmarshal(env.Data, &emp))
	assert.Equal(t, "ana", emp.Name)

	w, env = do(t, r, http.MethodGet, "/api/v1/employees/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, env.Message, "ghost")

	w, _ = do(t, r, http.MethodDelete, "/api/v1/employees/ana/machines/drill", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodDelete, "/api/v1/employees/ghost/machines/lathe", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = do(t, r, http.MethodDelete, "/api/v1/employees/ana/machines/lathe", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &emp))
	assert.Len(t, emp.Machines, 1)

	w, env = do(t, r, http.MethodGet, "/api/v1/employees", "")
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Employee
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 1)
}

func TestIngestRejectsInvalidShape(t *testing.T) {
	r := newRouter(t, config.ShapeEmployeeMachines, nil)

	for _, body := range []string{`{"name":"ana"}`, `{"name":"ana","machines":"lathe"}`, `not json`, ``} {
		w, env := do(t, r, http.MethodPost, "/api/v1/ingest", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, http.StatusBadRequest, env.Code)
		assert.NotEmpty(t, env.Message)
	}

	w, env := do(t, r, http.MethodGet, "/api/v1/readings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestReadEndpoints(t *testing.T) {
	r := newRouter(t, config.ShapeSingle, nil)

	bodies := []string{
		`{"name":"B","distance":20,"date":"2024-05-01","time":"08:00:00"}`,
		`{"name":"A","distance":10,"date":"2024-05-01","time":"08:00:05"}`,
		`{"name":"A","distance":11,"date":"2024-05-01","time":"08:00:01"}`,
		`{"name":"A","distance":12,"date":"2024-05-01","time":"08:01:00"}`,
	}
	for _, b := range bodies {
		w, _ := do(t, r, http.MethodPost, "/api/v1/ingest", b)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w, env := do(t, r, http.MethodGet, "/api/v1/readings", "")
	require.Equal(t, http.StatusOK, w.Code)
	var readings []models.Reading
	require.NoError(t, json.Unmarshal(env.Data, &readings))
	require.Len(t, readings, 4)
	assert.Equal(t, []float64{12, 10, 11, 20}, []float64{readings[0].Value, readings[1].Value, readings[2].Value, readings[3].Value})

	_, again := do(t, r, http.MethodGet, "/api/v1/readings", "")
	assert.JSONEq(t, string(env.Data), string(again.Data))

	w, env = do(t, r, http.MethodGet, "/api/v1/readings?key=A&limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &readings))
	require.Len(t, readings, 1)
	assert.Equal(t, 12.0, readings[0].Value)

	w, env = do(t, r, http.MethodGet, "/api/v1/readings/latest", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &readings))
	require.Len(t, readings, 2)
	assert.Equal(t, "A", readings[0].Key)
	assert.Equal(t, 12.0, readings[0].Value)
	assert.Equal(t, "B", readings[1].Key)

	// A: 08:00:05 admitted (first), 08:00:01 admitted (before the last), 08:01:00 rejected
	w, env = do(t, r, http.MethodGet, "/api/v1/readings/filtered?values=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[20, 10, 11]`, string(env.Data))

	w, _ = do(t, r, http.MethodGet, "/api/v1/readings?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCoordinatesEndpoints(t *testing.T) {
	r := newRouter(t, config.ShapeCoordinates, nil)

	w, env := do(t, r, http.MethodPost, "/api/v1/ingest",
		`{"employees":[{"employeeId":"e1","x":3,"y":4}],"machines":[{"machineId":"m1","x":0,"y":0}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Positions recorded", env.Message)

	w, env = do(t, r, http.MethodGet, "/api/v1/distances", "")
	require.Equal(t, http.StatusOK, w.Code)
	var reports []models.DistanceReport
	require.NoError(t, json.Unmarshal(env.Data, &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, 500.0, reports[0].Distance)

	w, _ = do(t, r, http.MethodGet, "/api/v1/positions/e1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/positions/m1?kind=machine", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/positions/m1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/positions/e1?kind=robot", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/v1/positions/e9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, env.Message, "e9")
}

type brokenStore struct {
	repository.Store
}

func (brokenStore) CreateReading(context.Context, *models.Reading) error {
	return errors.New("database disk image is malformed")
}

func TestStoreFailureIsGeneric(t *testing.T) {
	r := newRouter(t, config.ShapeRawArray, func(s repository.Store) repository.Store { return brokenStore{s} })

	w, env := do(t, r, http.MethodPost, "/api/v1/ingest", `{"distances":[1]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server error", env.Message)
	assert.NotContains(t, w.Body.String(), "malformed")
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(t, config.ShapeRawArray, nil)
	do(t, r, http.MethodPost, "/api/v1/ingest", `{"distances":[1,2]}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `proximity_records_ingested_total{shape="raw_array"} 2`)
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(t, config.ShapeRawArray, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ingest", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
