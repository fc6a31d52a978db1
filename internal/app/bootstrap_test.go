package app

import (
	"context"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind/go-hive/config"
	hosttest "github.com/hivemind/go-hive/internal/core/host"
	"github.com/hivemind/go-hive/internal/core/metrics"
	"github.com/hivemind/go-hive/pkg/types"
)

// testNodeConfig 本地临时端口，较短的遥测周期
func testNodeConfig() *config.Config {
	cfg := hosttest.TestConfig()
	cfg.Telemetry.Interval = config.Duration(200 * time.Millisecond)
	cfg.Messaging.HeartbeatInterval = config.Duration(100 * time.Millisecond)
	return cfg
}

// startNode 启动节点并在后台运行事件循环
func startNode(t *testing.T, opts ...BootstrapOption) *Runtime {
	t.Helper()
	rt, err := NewBootstrap(opts...).Start(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Loop.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		assert.NoError(t, rt.Stop(context.Background()))
	})
	return rt
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	cfg := testNodeConfig()
	cfg.Messaging.Topic = ""

	_, err := NewBootstrap(WithConfig(cfg)).Start(context.Background())
	assert.ErrorIs(t, err, config.ErrInvalidTopic)
}

func TestBootstrap_StopBeforeBuild(t *testing.T) {
	assert.NoError(t, NewBootstrap().Stop(context.Background()))
}

func TestBootstrap_SingleNode(t *testing.T) {
	rt := startNode(t, WithConfig(testNodeConfig()))

	assert.Equal(t, types.ModeBootstrap, rt.Join.Mode())
	assert.Zero(t, rt.Join.DialAttempts())
	assert.NotEmpty(t, rt.Swarm.Host().Network().ListenAddresses())
	assert.Nil(t, rt.Introspect, "状态服务默认关闭")

	// 没有对端时发布被跳过，循环照常运行
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(rt.Metrics.TelemetryPublish.WithLabelValues(metrics.OutcomeError)) >= 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestBootstrap_FollowerJoinsBootstrap(t *testing.T) {
	a := startNode(t, WithConfig(testNodeConfig()))
	target := hosttest.P2PAddr(t, a.Swarm.Host())

	b := startNode(t,
		WithConfig(testNodeConfig()),
		WithJoin(types.ModeFollower, target),
	)
	assert.Equal(t, 1, b.Join.DialAttempts())

	aID := a.Swarm.LocalID()
	bID := b.Swarm.LocalID()
	topic := testNodeConfig().Messaging.Topic

	t.Run("引导节点看到连接与身份识别", func(t *testing.T) {
		require.Eventually(t, func() bool {
			return testutil.ToFloat64(a.Metrics.SwarmEvents.WithLabelValues(types.KindConnectionEstablished.String())) >= 1 &&
				testutil.ToFloat64(a.Metrics.IdentifyResults.WithLabelValues("identified")) >= 1
		}, 10*time.Second, 50*time.Millisecond)
	})

	t.Run("两端互相进入路由表", func(t *testing.T) {
		require.Eventually(t, func() bool {
			return containsPeer(b.Swarm.Discovery().RoutingPeers(), aID) &&
				containsPeer(a.Swarm.Discovery().RoutingPeers(), bID)
		}, 10*time.Second, 50*time.Millisecond)
	})

	t.Run("双方互相收到遥测", func(t *testing.T) {
		require.Eventually(t, func() bool {
			return testutil.ToFloat64(a.Metrics.GossipMessages.WithLabelValues(topic)) >= 1 &&
				testutil.ToFloat64(b.Metrics.GossipMessages.WithLabelValues(topic)) >= 1
		}, 15*time.Second, 100*time.Millisecond)
	})
}

func containsPeer(ps []peer.ID, p peer.ID) bool {
	for _, id := range ps {
		if id == p {
			return true
		}
	}
	return false
}
