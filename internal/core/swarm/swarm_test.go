package swarm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hosttest "github.com/hivemind/go-hive/internal/core/host"
	"github.com/hivemind/go-hive/internal/core/identity"
	"github.com/hivemind/go-hive/internal/core/messaging/gossipsub"
	"github.com/hivemind/go-hive/internal/core/metrics"
	"github.com/hivemind/go-hive/internal/core/protocol/system/identify"
	"github.com/hivemind/go-hive/internal/discovery/dht"
	"github.com/hivemind/go-hive/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

const testTopic = "hive"

// newTestSwarm 创建完整的 Swarm；listen 为 true 时在创建后开始监听
func newTestSwarm(t *testing.T, listen bool) *Swarm {
	t.Helper()
	h := hosttest.NewTestHost(t, false)

	d, err := dht.New(h, dht.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	gcfg := gossipsub.DefaultConfig()
	gcfg.HeartbeatInterval = 100 * time.Millisecond
	g, err := gossipsub.New(h, gcfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	s, err := New(Components{
		Host:      h,
		Discovery: d,
		Identify:  identify.New(hosttest.TestConfig().Identify.ProtocolVersion),
		Gossip:    g,
		Metrics:   metrics.New(""),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	if listen {
		addrs, err := hosttest.TestConfig().Transport.ListenAddrs()
		require.NoError(t, err)
		require.NoError(t, hosttest.Listen(h.Network(), addrs))
	}
	return s
}

// leftover 同一批次中尚未被检查的事件
var leftover = map[*Swarm][]types.SwarmEvent{}

// waitFor 驱动 Swarm 直到出现满足条件的事件
func waitFor(t *testing.T, s *Swarm, timeout time.Duration, match func(types.SwarmEvent) bool) types.SwarmEvent {
	t.Helper()
	deadline := time.After(timeout)
	for {
		for len(leftover[s]) > 0 {
			ev := leftover[s][0]
			leftover[s] = leftover[s][1:]
			if match(ev) {
				return ev
			}
		}
		select {
		case in := <-s.Inbound():
			leftover[s] = append(leftover[s], s.Handle(in)...)
		case <-deadline:
			t.Fatal("timed out waiting for swarm event")
			return nil
		}
	}
}

func connect(t *testing.T, from *Swarm, to *Swarm) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h := to.Host()
	require.NoError(t, from.Host().Connect(ctx, peer.AddrInfo{ID: h.ID(), Addrs: h.Addrs()}))
}

func randomPeer(t *testing.T) peer.ID {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	return id.ID()
}

type fakeStatConn struct {
	network.Conn
	id     string
	remote peer.ID
	addr   ma.Multiaddr
}

func (c *fakeStatConn) ID() string                    { return c.id }
func (c *fakeStatConn) RemotePeer() peer.ID           { return c.remote }
func (c *fakeStatConn) RemoteMultiaddr() ma.Multiaddr { return c.addr }
func (c *fakeStatConn) Stat() network.ConnStats {
	return network.ConnStats{Stats: network.Stats{Direction: network.DirInbound}}
}

type panicHook struct{}

func (panicHook) OnConnected(network.Conn) error    { panic("boom") }
func (panicHook) OnDisconnected(network.Conn) error { panic("boom") }

type errHook struct{}

func (errHook) OnConnected(network.Conn) error    { return errors.New("refused") }
func (errHook) OnDisconnected(network.Conn) error { return errors.New("refused") }

// ============================================================================
//                              创建
// ============================================================================

func TestNew_NilComponent(t *testing.T) {
	_, err := New(Components{})
	assert.ErrorIs(t, err, ErrNilComponent)
}

func TestClose_Idempotent(t *testing.T) {
	s := newTestSwarm(t, false)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

// ============================================================================
//                              事件汇集
// ============================================================================

func TestListenAddrEvent(t *testing.T) {
	s := newTestSwarm(t, true)

	ev := waitFor(t, s, 5*time.Second, func(ev types.SwarmEvent) bool {
		return ev.Kind() == types.KindNewListenAddr
	})
	assert.NotNil(t, ev.(types.NewListenAddr).Addr)
}

func TestNext(t *testing.T) {
	s := newTestSwarm(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.KindNewListenAddr, ev.Kind())
}

func TestNext_ContextDone(t *testing.T) {
	s := newTestSwarm(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnectionFanOut(t *testing.T) {
	a := newTestSwarm(t, true)
	b := newTestSwarm(t, true)
	connect(t, a, b)

	ev := waitFor(t, a, 5*time.Second, func(ev types.SwarmEvent) bool {
		return ev.Kind() == types.KindConnectionEstablished
	})
	est := ev.(types.ConnectionEstablished)
	assert.Equal(t, b.LocalID(), est.Peer)
	assert.Equal(t, network.DirOutbound, est.Direction)
	assert.Equal(t, 1, est.NumConns)

	// 每个组件都收到了连接通知
	assert.Equal(t, 1, a.Gossip().ConnectedPeers())
	_, ok := a.Discovery().Hint(b.LocalID())
	assert.True(t, ok)

	ev = waitFor(t, a, 10*time.Second, func(ev types.SwarmEvent) bool {
		return ev.Kind() == types.KindIdentify
	})
	idEv := ev.(types.IdentifyEvent)
	assert.True(t, idEv.Identified)
	assert.True(t, idEv.Compatible)
	assert.Equal(t, b.LocalID(), idEv.Peer)
	assert.Equal(t, 0, a.Identify().Pending())

	require.NoError(t, a.Disconnect(b.LocalID()))
	ev = waitFor(t, a, 5*time.Second, func(ev types.SwarmEvent) bool {
		return ev.Kind() == types.KindConnectionClosed
	})
	assert.Equal(t, b.LocalID(), ev.(types.ConnectionClosed).Peer)
	assert.Equal(t, 0, a.Gossip().ConnectedPeers())
}

func TestBehaviourFailureIsolated(t *testing.T) {
	s := newTestSwarm(t, false)
	s.hooks = append([]namedHook{{name: "panicky", hook: panicHook{}}, {name: "failing", hook: errHook{}}}, s.hooks...)

	conn := &fakeStatConn{
		id:     "conn-1",
		remote: randomPeer(t),
		addr:   ma.StringCast("/ip4/10.0.0.1/tcp/9000"),
	}

	events := s.Handle(Inbound{kind: inboundConnected, conn: conn})
	require.Len(t, events, 1)
	assert.Equal(t, types.KindConnectionEstablished, events[0].Kind())

	// 其他组件不受影响
	assert.Equal(t, 1, s.Gossip().ConnectedPeers())
	assert.Equal(t, 1, s.Identify().Pending())

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.BehaviourErrors.WithLabelValues("panicky")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.BehaviourErrors.WithLabelValues("failing")))

	events = s.Handle(Inbound{kind: inboundDisconnected, conn: conn})
	require.Len(t, events, 2)
	assert.Equal(t, types.KindConnectionClosed, events[0].Kind())
	failed := events[1].(types.IdentifyEvent)
	assert.False(t, failed.Identified)
	assert.ErrorIs(t, failed.Err, identify.ErrConnectionClosed)
	assert.Equal(t, 0, s.Gossip().ConnectedPeers())
}

func TestDuplicateQueryCompletionDropped(t *testing.T) {
	s := newTestSwarm(t, false)

	events := s.Handle(Inbound{kind: inboundDiscovery, discovery: types.DiscoveryEvent{
		Type:    types.QueryCompleted,
		QueryID: 9999,
	}})
	assert.Empty(t, events)

	events = s.Handle(Inbound{kind: inboundDiscovery, discovery: types.DiscoveryEvent{
		Type: types.PeerRoutable,
		Peer: randomPeer(t),
	}})
	require.Len(t, events, 1)
	assert.Equal(t, types.KindDiscovery, events[0].Kind())
}

func TestGossipThroughSwarm(t *testing.T) {
	a := newTestSwarm(t, true)
	b := newTestSwarm(t, true)
	require.NoError(t, a.Gossip().Subscribe(testTopic))
	require.NoError(t, b.Gossip().Subscribe(testTopic))
	connect(t, a, b)

	go func() {
		// 驱动 a 的事件，避免入站通道积压
		for {
			select {
			case in := <-a.Inbound():
				a.Handle(in)
			case <-time.After(15 * time.Second):
				return
			}
		}
	}()

	require.Eventually(t, func() bool {
		return len(a.Gossip().Peers(testTopic)) > 0
	}, 10*time.Second, 50*time.Millisecond)

	// 出站流协商期间的发布可能丢失，带序号重试直到 b 收到
	var msg types.GossipEvent
	seq := 0
	require.Eventually(t, func() bool {
		seq++
		payload := []byte(fmt.Sprintf("freq=60.0 seq=%d", seq))
		_, _ = a.Publish(context.Background(), testTopic, payload)
		for {
			select {
			case in := <-b.Inbound():
				for _, ev := range b.Handle(in) {
					if g, ok := ev.(types.GossipEvent); ok && g.Type == types.MessageReceived {
						msg = g
						return true
					}
				}
			default:
				return false
			}
		}
	}, 10*time.Second, 100*time.Millisecond)

	assert.True(t, strings.HasPrefix(string(msg.Payload), "freq=60.0"))
	assert.Equal(t, a.LocalID(), msg.Origin)
}

// ============================================================================
//                              快照
// ============================================================================

func TestSnapshot(t *testing.T) {
	a := newTestSwarm(t, true)
	b := newTestSwarm(t, true)
	require.NoError(t, a.Gossip().Subscribe(testTopic))
	connect(t, a, b)

	snap := a.Snapshot()
	assert.Equal(t, a.LocalID().String(), snap.ID)
	assert.NotEmpty(t, snap.ListenAddrs)
	require.Len(t, snap.Peers, 1)
	assert.Equal(t, b.LocalID().String(), snap.Peers[0].ID)
	assert.Equal(t, 1, snap.Peers[0].Conns)
	require.Len(t, snap.Topics, 1)
	assert.Equal(t, testTopic, snap.Topics[0].Name)
}
