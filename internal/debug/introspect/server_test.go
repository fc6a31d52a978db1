package introspect

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	libp2pmetrics "github.com/libp2p/go-libp2p/core/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/hivemind/go-hive/config"
	"github.com/hivemind/go-hive/internal/core/metrics"
	"github.com/hivemind/go-hive/internal/core/swarm"
)

// ============================================================================
//                              测试辅助
// ============================================================================

type fakeNode struct {
	snap swarm.Snapshot
}

func (f *fakeNode) Snapshot() swarm.Snapshot { return f.snap }

type fakeBandwidth struct{}

func (fakeBandwidth) GetBandwidthTotals() libp2pmetrics.Stats {
	return libp2pmetrics.Stats{TotalIn: 100, TotalOut: 200}
}

func testNode() *fakeNode {
	return &fakeNode{snap: swarm.Snapshot{
		ID:               "12D3KooWtest",
		ListenAddrs:      []string{"/ip4/127.0.0.1/tcp/9000"},
		RoutingTableSize: 2,
		Peers: []swarm.PeerSnapshot{
			{ID: "12D3KooWpeer", Conns: 1, ProtocolVersion: "hive/1.0.0"},
		},
		Topics: []swarm.TopicSnapshot{{Name: "hive", Peers: 1}},
	}}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// ============================================================================
//                              基本行为
// ============================================================================

func TestNew(t *testing.T) {
	server := New(Config{})
	assert.Equal(t, DefaultAddr, server.config.Addr)

	server = New(Config{Addr: "127.0.0.1:9999"})
	assert.Equal(t, "127.0.0.1:9999", server.config.Addr)
}

func TestServer_StartStop(t *testing.T) {
	server := New(Config{Addr: "127.0.0.1:0"})

	ctx := context.Background()
	require.NoError(t, server.Start(ctx))
	assert.True(t, server.running)

	addr := server.Addr()
	assert.NotEqual(t, "127.0.0.1:0", addr)

	// 重复启动应该无效
	require.NoError(t, server.Start(ctx))

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, WelcomeMessage, strings.TrimSpace(string(body)))

	require.NoError(t, server.Stop())
	assert.False(t, server.running)
	require.NoError(t, server.Stop())
}

func TestServer_ListenConflict(t *testing.T) {
	first := New(Config{Addr: "127.0.0.1:0"})
	require.NoError(t, first.Start(context.Background()))
	defer first.Stop()

	second := New(Config{Addr: first.Addr()})
	assert.Error(t, second.Start(context.Background()))
}

// ============================================================================
//                              端点
// ============================================================================

func TestWelcome(t *testing.T) {
	h := New(Config{}).Handler()

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to HiveMind")

	rec = get(t, h, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	var health HealthResponse

	rec := get(t, New(Config{}).Handler(), "/health")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health.Status)
	assert.NotEmpty(t, health.Session)

	rec = get(t, New(Config{Node: testNode()}).Handler(), "/health")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
}

func TestNodeEndpoint(t *testing.T) {
	rec := get(t, New(Config{}).Handler(), "/debug/introspect/node")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = get(t, New(Config{Node: testNode()}).Handler(), "/debug/introspect/node")
	require.Equal(t, http.StatusOK, rec.Code)

	var info NodeInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "12D3KooWtest", info.ID)
	assert.Equal(t, 1, info.Peers)
	assert.Equal(t, 2, info.RoutingTableSize)
	require.Len(t, info.Topics, 1)
	assert.Equal(t, "hive", info.Topics[0].Name)
}

func TestPeersEndpoint(t *testing.T) {
	rec := get(t, New(Config{Node: testNode()}).Handler(), "/debug/introspect/peers")
	require.Equal(t, http.StatusOK, rec.Code)

	var peers []swarm.PeerSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &peers))
	require.Len(t, peers, 1)
	assert.Equal(t, "hive/1.0.0", peers[0].ProtocolVersion)

	rec = get(t, New(Config{Node: &fakeNode{}}).Handler(), "/debug/introspect/peers")
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestIntrospectEndpoint(t *testing.T) {
	h := New(Config{Node: testNode(), Bandwidth: fakeBandwidth{}}).Handler()
	rec := get(t, h, "/debug/introspect")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp IntrospectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Node)
	assert.Equal(t, "12D3KooWtest", resp.Node.ID)
	require.NotNil(t, resp.Bandwidth)
	assert.Equal(t, int64(100), resp.Bandwidth.TotalIn)
	assert.Equal(t, int64(200), resp.Bandwidth.TotalOut)
	require.NotNil(t, resp.Runtime)
	assert.NotEmpty(t, resp.Runtime.GoVersion)
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(Config{Node: testNode()}).Handler()
	for _, path := range []string{"/health", "/debug/introspect", "/debug/introspect/node", "/debug/introspect/peers"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New("")
	m.Event("gossip")

	rec := get(t, New(Config{Metrics: m.Handler()}).Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hive_swarm_events_total")
}

// ============================================================================
//                              模块
// ============================================================================

func TestModule_Disabled(t *testing.T) {
	var server *Server
	app := fxtest.New(t,
		fx.Supply(config.NewConfig()),
		Module(),
		fx.Populate(&server),
	)
	app.RequireStart()
	assert.Nil(t, server)
	app.RequireStop()
}

func TestModule_Enabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Diagnostics.EnableIntrospect = true
	cfg.Diagnostics.IntrospectAddr = "127.0.0.1:0"

	var server *Server
	app := fxtest.New(t,
		fx.Supply(cfg),
		metrics.Module(),
		Module(),
		fx.Populate(&server),
	)
	app.RequireStart()
	require.NotNil(t, server)

	resp, err := http.Get("http://" + server.Addr() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	app.RequireStop()
}
