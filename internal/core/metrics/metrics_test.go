package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Event("gossip")
		m.BehaviourError("identify")
		m.Identify("identified")
		m.GossipMessage("hive")
		m.Publish(nil)
		m.GenerateError()
		m.SetConnectedPeers(3)
		m.SetRoutingTableSize(5)
	})
}

func TestRecording(t *testing.T) {
	m := New("")

	m.Event("gossip")
	m.Event("gossip")
	m.Event("discovery")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SwarmEvents.WithLabelValues("gossip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SwarmEvents.WithLabelValues("discovery")))

	m.Publish(nil)
	m.Publish(errors.New("no peers"))
	m.Publish(errors.New("no peers"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TelemetryPublish.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TelemetryPublish.WithLabelValues(OutcomeError)))

	m.GenerateError()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TelemetryGenerateErrors))

	m.SetConnectedPeers(4)
	m.SetRoutingTableSize(7)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ConnectedPeers))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.RoutingTableSize))
}

func TestIndependentRegistries(t *testing.T) {
	a := New("")
	b := New("")
	a.Event("gossip")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SwarmEvents.WithLabelValues("gossip")))
}

func TestHandler(t *testing.T) {
	m := New("")
	m.Event("identify")
	m.Bandwidth().LogSentMessage(128)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `hive_swarm_events_total{kind="identify"} 1`)
	assert.Contains(t, string(body), "hive_host_bytes_sent_total")
}

func TestModule(t *testing.T) {
	var m *Metrics
	app := fxtest.New(t, Module(), fx.Populate(&m))
	app.RequireStart()
	require.NotNil(t, m)
	assert.NotNil(t, m.Bandwidth())
	app.RequireStop()
}
