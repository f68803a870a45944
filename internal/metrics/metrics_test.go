package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentCountsStatus(t *testing.T) {
	RegisterDefault()
	h := Instrument("/test", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/test", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test", nil))
	after := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/test", "418"))
	assert.Equal(t, before+1, after)
}

func TestObserveSolve(t *testing.T) {
	RegisterDefault()
	ObserveSolve("gdb1", 316, "ok", time.Second)
	assert.Equal(t, 316.0, testutil.ToFloat64(BestCost.WithLabelValues("gdb1")))
	ObserveSolve("gdb1", 0, "error", time.Second)
	assert.Equal(t, 316.0, testutil.ToFloat64(BestCost.WithLabelValues("gdb1")))
}

func TestHandlerExposesSolverMetrics(t *testing.T) {
	SolveRuns.WithLabelValues("ok").Inc()
	srv := httptest.NewServer(Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), "carp_solve_runs_total")
}
