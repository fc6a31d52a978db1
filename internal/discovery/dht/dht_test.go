package dht

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hosttest "github.com/hivemind/go-hive/internal/core/host"
	"github.com/hivemind/go-hive/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

func newTestDiscovery(t *testing.T, h host.Host, opts ...Option) *Discovery {
	t.Helper()
	d, err := New(h, DefaultConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// waitEvent 等待指定类型的发现事件
func waitEvent(t *testing.T, d *Discovery, typ types.DiscoveryEventType, timeout time.Duration) types.DiscoveryEvent {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-d.Events():
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
			return types.DiscoveryEvent{}
		}
	}
}

// ============================================================================
//                              创建与配置
// ============================================================================

func TestNew_NilHost(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilHost)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BucketSize = 0
	_, err := New(hosttest.NewTestHost(t, false), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "/hive", cfg.ProtocolPrefix)
	assert.Equal(t, 20, cfg.BucketSize)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Empty(t, cfg.BootstrapPeers)
}

// ============================================================================
//                              RecordPeer
// ============================================================================

func TestRecordPeer_RejectsSelf(t *testing.T) {
	h := hosttest.NewTestHost(t, true)
	d := newTestDiscovery(t, h)

	err := d.RecordPeer(h.ID(), h.Network().ListenAddresses())
	assert.ErrorIs(t, err, ErrSelfRecord)
	assert.Equal(t, 0, d.RoutingTableSize())
	_, ok := d.Hint(h.ID())
	assert.False(t, ok)
}

func TestRecordPeer_RequiresAddresses(t *testing.T) {
	other := hosttest.NewTestHost(t, false)
	d := newTestDiscovery(t, hosttest.NewTestHost(t, false))

	assert.ErrorIs(t, d.RecordPeer(other.ID(), nil), ErrNoAddresses)
}

func TestRecordPeer_AddsToRoutingTable(t *testing.T) {
	remote := hosttest.NewTestHost(t, true)
	local := hosttest.NewTestHost(t, false)
	d := newTestDiscovery(t, local)

	addr := hosttest.TCPAddr(t, remote)
	require.NoError(t, d.RecordPeer(remote.ID(), []ma.Multiaddr{addr}))

	assert.Equal(t, 1, d.RoutingTableSize())
	assert.Contains(t, d.RoutingPeers(), remote.ID())
	assert.Contains(t, local.Peerstore().Addrs(remote.ID()), addr)

	rec, ok := d.Hint(remote.ID())
	require.True(t, ok)
	assert.Len(t, rec.Addrs, 1)

	ev := waitEvent(t, d, types.PeerRoutable, 5*time.Second)
	assert.Equal(t, remote.ID(), ev.Peer)

	// 重复记录只合并地址
	require.NoError(t, d.RecordPeer(remote.ID(), []ma.Multiaddr{addr}))
	rec, _ = d.Hint(remote.ID())
	assert.Len(t, rec.Addrs, 1)
}

// ============================================================================
//                              Bootstrap 与刷新
// ============================================================================

func TestBootstrap_EmptyTable(t *testing.T) {
	mock := clock.NewMock()
	d := newTestDiscovery(t, hosttest.NewTestHost(t, false), WithClock(mock))

	require.NoError(t, d.Bootstrap(context.Background()))
	assert.ErrorIs(t, d.Bootstrap(context.Background()), ErrAlreadyStarted)

	// 多个刷新周期过去，既不查询也不报错
	for i := 0; i < 3; i++ {
		mock.Add(d.config.RefreshInterval)
	}
	assert.Never(t, func() bool { return d.InFlightQueries() > 0 }, 200*time.Millisecond, 20*time.Millisecond)

	select {
	case ev := <-d.Events():
		t.Fatalf("unexpected event on empty table: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBootstrap_AfterClose(t *testing.T) {
	d := newTestDiscovery(t, hosttest.NewTestHost(t, false))
	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Bootstrap(context.Background()), ErrClosed)
	assert.NoError(t, d.Close())
}

func TestBootstrap_SeedsFromConfig(t *testing.T) {
	seed := hosttest.NewTestHost(t, true)
	cfg := DefaultConfig()
	cfg.BootstrapPeers = []peer.AddrInfo{{ID: seed.ID(), Addrs: []ma.Multiaddr{hosttest.TCPAddr(t, seed)}}}

	d, err := New(hosttest.NewTestHost(t, false), cfg)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Bootstrap(context.Background()))
	_, ok := d.Hint(seed.ID())
	assert.True(t, ok)
}

// ============================================================================
//                              查询
// ============================================================================

func TestFindClosest_CompletesAndResolves(t *testing.T) {
	a := hosttest.NewTestHost(t, true)
	b := hosttest.NewTestHost(t, false)
	newTestDiscovery(t, a)
	db := newTestDiscovery(t, b)

	_, err := hosttest.NewDialer(b, 5*time.Second).Dial(context.Background(), hosttest.P2PAddr(t, a))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return db.RoutingTableSize() > 0 }, 5*time.Second, 50*time.Millisecond)

	_, _ = db.FindClosest(context.Background(), b.ID())
	assert.Equal(t, 1, db.InFlightQueries())

	ev := waitEvent(t, db, types.QueryCompleted, 5*time.Second)
	assert.Equal(t, b.ID(), ev.Target)
	assert.True(t, db.Resolve(ev))
	assert.False(t, db.Resolve(ev), "重复事件不再对账")
	assert.Equal(t, 0, db.InFlightQueries())
}

func TestNearest_OrdersByBucket(t *testing.T) {
	local := hosttest.NewTestHost(t, false)
	d := newTestDiscovery(t, local)

	var remotes []host.Host
	for i := 0; i < 4; i++ {
		r := hosttest.NewTestHost(t, true)
		remotes = append(remotes, r)
		require.NoError(t, d.RecordPeer(r.ID(), []ma.Multiaddr{hosttest.TCPAddr(t, r)}))
	}

	target := remotes[0].ID()
	got := d.Nearest(target, 2)
	require.Len(t, got, 2)
	assert.Equal(t, target, got[0].ID, "目标自身的公共前缀最长")

	all := d.Nearest(target, 0)
	assert.Len(t, all, 4)
}
