package debugapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/isomap/internal/logging"
	"github.com/annel0/isomap/internal/metrics"
	"github.com/annel0/isomap/internal/render"
	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
	"github.com/annel0/isomap/internal/world/block"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestServer(t *testing.T) (*Server, *world.Map) {
	t.Helper()

	reg := prometheus.NewRegistry()
	mt := metrics.New("isotest", reg)

	m := world.NewMap(world.Options{
		Name:       t.Name(),
		MemoryArea: 1,
		Generator:  world.FlatGenerator{Height: 0, Surface: block.GrassID, Filler: block.StoneID},
		Metrics:    mt,
	})
	require.NoError(t, m.UpdateReference(context.Background(), vec.Vec2{}))

	sorter, err := render.NewSorter(render.KindTopological, 0, mt)
	require.NoError(t, err)
	p := render.NewPipeline(m, sorter, mt)
	t.Cleanup(p.Close)
	require.NoError(t, p.AddCamera(render.NewBasicCamera(0, vec.Vec2{})))

	s := New(Options{
		Namespace: "isotest",
		Map:       m,
		Pipeline:  p,
		Registry:  reg,
		Logger:    logging.NewConsoleLogger("api", io.Discard, logging.ERROR),
	})
	return s, m
}

func doGet(t *testing.T, s *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := setupTestServer(t)

	w := doGet(t, s, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Trace-Id"))
}

func TestStatus(t *testing.T) {
	s, m := setupTestServer(t)
	m.AddEntity(world.NewEntity(0, "critter", vec.Vec3Float{X: 1.5, Y: 1.5, Z: 1}))

	w := doGet(t, s, "/status")
	require.Equal(t, http.StatusOK, w.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, m.Name(), status.World)
	assert.Equal(t, m.ID().String(), status.WorldID)
	assert.Equal(t, 9, status.ResidentChunks)
	assert.Equal(t, 1, status.Entities)
	assert.Equal(t, "topological", status.Sorter)
	assert.Equal(t, 0, status.MaxSprites)
	assert.Equal(t, []int{0}, status.Cameras)
	assert.Greater(t, status.Process.Goroutines, 0)
}

func TestChunksAndEntities(t *testing.T) {
	s, m := setupTestServer(t)
	require.NoError(t, m.SetBlock(context.Background(), vec.Vec3{X: 2, Y: 2, Z: 1}, block.New(block.WoodID)))
	m.AddEntity(world.NewEntity(0, "deer", vec.Vec3Float{X: 3.5, Y: 3.5, Z: 1}))

	w := doGet(t, s, "/chunks")
	require.Equal(t, http.StatusOK, w.Code)
	var chunks struct {
		Chunks []ChunkInfo `json:"chunks"`
		Total  int         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chunks))
	assert.Equal(t, 9, chunks.Total)

	changed := 0
	for _, c := range chunks.Chunks {
		if c.Changes {
			changed++
			assert.Equal(t, 0, c.X)
			assert.Equal(t, 0, c.Y)
		}
	}
	assert.Equal(t, 1, changed)

	w = doGet(t, s, "/entities")
	require.Equal(t, http.StatusOK, w.Code)
	var entities struct {
		Entities []EntityInfo `json:"entities"`
		Total    int          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entities))
	require.Equal(t, 1, entities.Total)
	assert.Equal(t, "deer", entities.Entities[0].Name)
}

func TestRenderOrder(t *testing.T) {
	s, _ := setupTestServer(t)

	w := doGet(t, s, "/render-order?camera=0&limit=5")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sorter string      `json:"sorter"`
		Items  []OrderItem `json:"items"`
		Total  int         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "topological", resp.Sorter)
	assert.Equal(t, 5, resp.Total)
	for _, item := range resp.Items {
		assert.Equal(t, "cell", item.Kind)
		require.NotNil(t, item.Coord)
		assert.Equal(t, 0, item.Coord.Z)
		assert.Equal(t, "grass", item.Block)
	}
}

func TestRenderOrderErrors(t *testing.T) {
	s, _ := setupTestServer(t)

	assert.Equal(t, http.StatusBadRequest, doGet(t, s, "/render-order?camera=abc").Code)
	assert.Equal(t, http.StatusBadRequest, doGet(t, s, "/render-order?limit=x").Code)
	assert.Equal(t, http.StatusNotFound, doGet(t, s, "/render-order?camera=3").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := setupTestServer(t)

	doGet(t, s, "/health")
	w := doGet(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, "isotest_chunks_resident 9"), "resident gauge missing")
	assert.Contains(t, body, "isotest_debugapi_http_request_duration_seconds")
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "42s", formatUptime(42e9))
	assert.Equal(t, "2m5s", formatUptime(125e9))
	assert.Equal(t, "1h0m1s", formatUptime(3601e9))
}
