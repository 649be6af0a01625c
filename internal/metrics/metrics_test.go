package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRequestsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/v1/results/:draw_no", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/v1/results/:draw_no", "200"))
	for _, p := range []string{"/api/v1/results/1", "/api/v1/results/2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/v1/results/:draw_no", "200"))
	assert.Equal(t, 2.0, after-before)
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(syncedDraws)
	RecordSync("incremental", 3, true)
	assert.Equal(t, 3.0, testutil.ToFloat64(syncedDraws)-before)

	SetArchiveSize(42)
	assert.Equal(t, 42.0, testutil.ToFloat64(archiveSize))

	trialsBefore := testutil.ToFloat64(simulationTrials)
	RecordSimulation(1000, 10*time.Millisecond, false)
	assert.Equal(t, 1000.0, testutil.ToFloat64(simulationTrials)-trialsBefore)

	RecordTraining(time.Second, true)
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordSync("full", 0, false)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lotto_archive_sync_runs_total")
}
