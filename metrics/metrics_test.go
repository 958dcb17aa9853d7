package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/arednch/nodemon/data"
)

func TestPollCycleAndForget(t *testing.T) {
	c := New()
	c.RecordPollCycle("a.local.mesh", true)
	c.RecordPollCycle("a.local.mesh", false)
	c.RecordPollCycle("b.local.mesh", true)
	c.SetSubEntities("a.local.mesh", []data.SubEntityKey{
		data.InterfaceKey("br-lan"),
		data.InterfaceKey("wlan0"),
		{Kind: data.SubEntityLink, Name: "b.local.mesh", LinkType: "RF"},
	})

	require.Equal(t, 1.0, testutil.ToFloat64(c.pollCycles.WithLabelValues("a.local.mesh", "failure")))
	require.Equal(t, 0.0, testutil.ToFloat64(c.reachable.WithLabelValues("a.local.mesh")))
	require.Equal(t, 2.0, testutil.ToFloat64(c.subEntities.WithLabelValues("a.local.mesh", "interface")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.subEntities.WithLabelValues("a.local.mesh", "link")))

	c.ForgetNode("a.local.mesh")
	require.Equal(t, 1, testutil.CollectAndCount(c.reachable))
	require.Equal(t, 1, testutil.CollectAndCount(c.pollCycles))
	require.Equal(t, 0, testutil.CollectAndCount(c.subEntities))
}

func TestRecordDiscovery(t *testing.T) {
	c := New()
	c.RecordDiscovery(3, false)
	c.RecordDiscovery(0, false)
	c.RecordDiscovery(5, true)

	require.Equal(t, 1.0, testutil.ToFloat64(c.discoveryRuns.WithLabelValues("completed")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.discoveryRuns.WithLabelValues("empty")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.discoveryRuns.WithLabelValues("cancelled")))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.RecordFetch("ok")
	c.RecordPollCycle("a.local.mesh", true)
	c.SetSubEntities("a.local.mesh", nil)
	c.ForgetNode("a.local.mesh")
	c.RecordDiscovery(1, false)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	c := New()
	c.RecordFetch("ok")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `nodemon_fetch_total{result="ok"} 1`)
}
