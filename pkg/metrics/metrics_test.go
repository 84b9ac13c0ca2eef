package metrics

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreIndependentPerInstance(t *testing.T) {
	a, b := New(), New()
	a.PairsScored.Add(10)
	a.Findings.WithLabelValues("malformed_record").Inc()

	assert.Equal(t, 10.0, testutil.ToFloat64(a.PairsScored))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PairsScored))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Findings.WithLabelValues("malformed_record")))
}

func TestObservePhase(t *testing.T) {
	m := New()
	m.ObservePhase("score", 20*time.Millisecond)
	m.ObservePhase("score", 30*time.Millisecond)
	m.ObservePhase("resolve", time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.PhaseDuration))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObservePhase("score", time.Second) })
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Modularity.Set(0.42)
	m.Communities.Set(3)

	path := filepath.Join(t.TempDir(), "setlistgraph.prom")
	require.NoError(t, m.WriteTextfile(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "setlistgraph_modularity 0.42")
	assert.Contains(t, string(body), "setlistgraph_communities 3")
}

func TestHandler(t *testing.T) {
	m := New()
	m.GraphEdges.Set(5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "setlistgraph_graph_edges 5"))
}
