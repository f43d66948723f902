package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCallAndFault(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCall("monitor", "write", "ok", time.Millisecond)
	m.RecordCall("monitor", "write", "ok", time.Millisecond)
	m.RecordCall("mounter", "mount", "argument", time.Millisecond)
	m.RecordFault("argument")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CapabilityCalls.WithLabelValues("monitor", "write", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Faults.WithLabelValues("argument")))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.CapabilityCalls)
	assert.Equal(t, int64(1), snap.Faults)
}

func TestGaugesAndCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.MountsActive.Inc()
	m.MountsActive.Inc()
	m.MountsActive.Dec()
	m.SetSessionsActive(3)
	m.IncRedraws()
	m.IncSnapshotsSaved()
	m.IncSnapshotsLoaded()
	m.RecordScriptRun("lua", "ok")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MountsActive))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Redraws))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotsSaved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotsLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScriptRuns.WithLabelValues("lua", "ok")))
}

func TestRegistriesAreIsolated(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	NewMetrics(prometheus.NewRegistry())

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "periphery_uptime_seconds")
	assert.Panics(t, func() { NewMetrics(reg) }, "duplicate registration")
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	r := gin.New()
	r.Use(Middleware(m))
	r.GET("/monitors/:name", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/monitors/a", "/monitors/b", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/monitors/:name", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
}
