package dht

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/core/protocol"
	kaddht "github.com/libp2p/go-libp2p-kad-dht"
	kb "github.com/libp2p/go-libp2p-kbucket"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/hivemind/go-hive/internal/util/logger"
	"github.com/hivemind/go-hive/pkg/types"
)

var log = logger.Logger("discovery")

// Discovery Kademlia 发现组件
type Discovery struct {
	host   host.Host
	kad    *kaddht.IpfsDHT
	config *Config
	clock  clock.Clock

	// hints 学到的节点提示，仅由本组件修改
	hints  *hintBook
	events *eventQueue

	// queries 进行中的查询，按查询 ID 索引
	queryMu   sync.Mutex
	queries   map[uint64]*queryRecord
	nextQuery atomic.Uint64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
	closed  atomic.Bool
}

// Option 组件选项
type Option func(*Discovery)

// WithClock 替换刷新使用的时钟（用于测试）
func WithClock(c clock.Clock) Option {
	return func(d *Discovery) {
		d.clock = c
	}
}

// New 创建发现组件
//
// 创建后路由表事件即开始产生，周期刷新要等 Bootstrap 调用后才开始。
func New(h host.Host, cfg *Config, opts ...Option) (*Discovery, error) {
	if h == nil {
		return nil, ErrNilHost
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Discovery{
		host:    h,
		config:  cfg,
		clock:   clock.New(),
		hints:   newHintBook(cfg.MaxRecords, cfg.RecordTTL),
		events:  newEventQueue(64),
		queries: make(map[uint64]*queryRecord),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(d)
	}

	kad, err := kaddht.New(ctx, h,
		kaddht.Mode(kaddht.ModeServer),
		kaddht.ProtocolPrefix(protocol.ID(cfg.ProtocolPrefix)),
		kaddht.BucketSize(cfg.BucketSize),
		kaddht.Concurrency(cfg.Concurrency),
		kaddht.RoutingTableRefreshPeriod(cfg.RefreshInterval),
		kaddht.BootstrapPeers(cfg.BootstrapPeers...),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create kad dht: %w", err)
	}
	d.kad = kad
	d.hookRoutingTable(kad.RoutingTable())

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.events.run(ctx)
	}()

	log.Debug("发现组件已创建",
		"protocolPrefix", cfg.ProtocolPrefix,
		"bucketSize", cfg.BucketSize,
		"alpha", cfg.Concurrency)
	return d, nil
}

// hookRoutingTable 在 kad 自身的回调之后追加事件通知
func (d *Discovery) hookRoutingTable(rt *kb.RoutingTable) {
	prevAdded, prevRemoved := rt.PeerAdded, rt.PeerRemoved
	rt.PeerAdded = func(p peer.ID) {
		if prevAdded != nil {
			prevAdded(p)
		}
		d.events.push(types.DiscoveryEvent{Type: types.PeerRoutable, Peer: p})
	}
	rt.PeerRemoved = func(p peer.ID) {
		if prevRemoved != nil {
			prevRemoved(p)
		}
		d.events.push(types.DiscoveryEvent{Type: types.PeerUnreachable, Peer: p})
	}
}

// ============================================================================
//                              公共接口
// ============================================================================

// Bootstrap 从已知节点播种路由表并开始周期刷新
//
// 已知节点包括配置的种子和当前已连接的节点。两者都为空时
// 节点作为汇合点运行，Bootstrap 照常成功。
func (d *Discovery) Bootstrap(ctx context.Context) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	seeded := 0
	for _, info := range d.config.BootstrapPeers {
		if err := d.RecordPeer(info.ID, info.Addrs); err != nil {
			log.Warn("忽略种子节点", "peer", info.ID, "err", err)
			continue
		}
		seeded++
	}
	for _, p := range d.host.Network().Peers() {
		d.observe(p, d.host.Peerstore().Addrs(p))
		seeded++
	}

	if err := d.kad.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap kad: %w", err)
	}

	d.wg.Add(1)
	go d.refreshLoop()

	if seeded == 0 {
		log.Info("没有已知节点，作为汇合点运行")
	} else {
		log.Info("路由表已播种", "peers", seeded)
	}
	return nil
}

// RecordPeer 插入或更新一条节点记录
//
// 地址写入 peerstore 和提示簿，节点被提交给路由表；
// 桶满时由路由表自身的淘汰策略决定是否接纳，不作为错误返回。
func (d *Discovery) RecordPeer(id peer.ID, addrs []ma.Multiaddr) error {
	if id == d.host.ID() {
		return ErrSelfRecord
	}
	if len(addrs) == 0 {
		return ErrNoAddresses
	}
	d.host.Peerstore().AddAddrs(id, addrs, peerstore.AddressTTL)
	d.observe(id, addrs)
	return nil
}

// observe 更新提示并把节点提交给路由表
func (d *Discovery) observe(id peer.ID, addrs []ma.Multiaddr) {
	if id == d.host.ID() {
		return
	}
	d.hints.observe(id, addrs, d.clock.Now())
	if _, err := d.kad.RoutingTable().TryAddPeer(id, true, true); err != nil {
		log.Debug("路由表未接纳节点", "peer", id, "err", err)
	}
}

// OnConnected 连接建立时记录对端
//
// 只有出站连接的远端地址是对端的监听地址，入站连接只刷新活跃时间。
func (d *Discovery) OnConnected(c network.Conn) error {
	p := c.RemotePeer()
	if p == d.host.ID() {
		return ErrSelfRecord
	}
	var addrs []ma.Multiaddr
	if c.Stat().Direction == network.DirOutbound {
		addrs = []ma.Multiaddr{c.RemoteMultiaddr()}
	}
	d.observe(p, addrs)
	return nil
}

// OnDisconnected 连接关闭时刷新提示的活跃时间，路由表的去留由 kad 判定
func (d *Discovery) OnDisconnected(c network.Conn) error {
	p := c.RemotePeer()
	if _, ok := d.hints.get(p); ok {
		d.hints.observe(p, nil, d.clock.Now())
	}
	return nil
}

// OnIdentified 吸收身份识别得到的监听地址
func (d *Discovery) OnIdentified(rec types.PeerRecord) error {
	if len(rec.Addrs) == 0 {
		return nil
	}
	return d.RecordPeer(rec.ID, rec.Addrs)
}

// Nearest 返回离 target 最近的至多 n 个节点
//
// 按桶（与 target 的公共前缀长度）由近到远，同桶内最近活跃者优先。
func (d *Discovery) Nearest(target peer.ID, n int) []types.PeerRecord {
	rt := d.kad.RoutingTable()
	targetKey := kb.ConvertPeerID(target)

	useful := make(map[peer.ID]candidate)
	for _, info := range rt.GetPeerInfos() {
		useful[info.Id] = candidate{lastSeen: info.LastUsefulAt}
	}

	cands := make([]candidate, 0, len(useful))
	for _, id := range rt.ListPeers() {
		key := kb.ConvertPeerID(id)
		c := candidate{
			id:       id,
			key:      key,
			cpl:      kb.CommonPrefixLen(key, targetKey),
			lastSeen: useful[id].lastSeen,
		}
		if rec, ok := d.hints.get(id); ok {
			c.lastSeen = rec.LastSeen
		}
		cands = append(cands, c)
	}
	sortCandidates(targetKey, cands)

	if n > 0 && len(cands) > n {
		cands = cands[:n]
	}
	out := make([]types.PeerRecord, 0, len(cands))
	for _, c := range cands {
		rec, ok := d.hints.get(c.id)
		if !ok {
			rec = types.PeerRecord{ID: c.id, Addrs: d.host.Peerstore().Addrs(c.id), LastSeen: c.lastSeen}
		}
		out = append(out, rec)
	}
	return out
}

// Events 返回发现事件通道
func (d *Discovery) Events() <-chan types.DiscoveryEvent {
	return d.events.out
}

// RoutingTableSize 路由表中的节点数
func (d *Discovery) RoutingTableSize() int {
	return d.kad.RoutingTable().Size()
}

// RoutingPeers 路由表中的全部节点
func (d *Discovery) RoutingPeers() []peer.ID {
	return d.kad.RoutingTable().ListPeers()
}

// Hint 查询提示簿中的记录
func (d *Discovery) Hint(id peer.ID) (types.PeerRecord, bool) {
	return d.hints.get(id)
}

// Close 停止刷新并关闭 kad
func (d *Discovery) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.cancel()
	d.wg.Wait()
	return d.kad.Close()
}
