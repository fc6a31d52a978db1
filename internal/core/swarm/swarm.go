package swarm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/host/eventbus"

	"github.com/hivemind/go-hive/internal/core/messaging/gossipsub"
	"github.com/hivemind/go-hive/internal/core/metrics"
	"github.com/hivemind/go-hive/internal/core/protocol/system/identify"
	"github.com/hivemind/go-hive/internal/discovery/dht"
	"github.com/hivemind/go-hive/internal/util/logger"
	"github.com/hivemind/go-hive/pkg/types"
)

var log = logger.Logger("swarm")

// DefaultInboundBuffer 入站通道默认容量
const DefaultInboundBuffer = 256

// connHook 接收连接通知的组件
type connHook interface {
	OnConnected(network.Conn) error
	OnDisconnected(network.Conn) error
}

type namedHook struct {
	name string
	hook connHook
}

// Components Swarm 持有的 Host 与组件
type Components struct {
	Host      host.Host
	Discovery *dht.Discovery
	Identify  *identify.Identification
	Gossip    *gossipsub.Gossip

	// Metrics 可为 nil
	Metrics *metrics.Metrics
}

// Option Swarm 选项
type Option func(*Swarm)

// WithInboundBuffer 设置入站通道容量
func WithInboundBuffer(n int) Option {
	return func(s *Swarm) {
		if n > 0 {
			s.inbound = make(chan Inbound, n)
		}
	}
}

// Swarm Host 与三个组件的组合
type Swarm struct {
	host      host.Host
	discovery *dht.Discovery
	identify  *identify.Identification
	gossip    *gossipsub.Gossip
	metrics   *metrics.Metrics

	hooks   []namedHook
	inbound chan Inbound
	// ready Next 已转换但尚未返回的事件，仅事件循环访问
	ready   []types.SwarmEvent
	notifee *network.NotifyBundle
	sub     event.Subscription

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New 创建 Swarm 并立即开始汇集事件
//
// 应在 Host 开始监听和拨号之前创建，否则之前的连接通知会丢失。
func New(c Components, opts ...Option) (*Swarm, error) {
	if c.Host == nil || c.Discovery == nil || c.Identify == nil || c.Gossip == nil {
		return nil, ErrNilComponent
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Swarm{
		host:      c.Host,
		discovery: c.Discovery,
		identify:  c.Identify,
		gossip:    c.Gossip,
		metrics:   c.Metrics,
		hooks: []namedHook{
			{name: dht.Name, hook: c.Discovery},
			{name: gossipsub.Name, hook: c.Gossip},
		},
		inbound: make(chan Inbound, DefaultInboundBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	sub, err := c.Host.EventBus().Subscribe([]interface{}{
		new(event.EvtLocalAddressesUpdated),
		new(event.EvtPeerIdentificationCompleted),
		new(event.EvtPeerIdentificationFailed),
	}, eventbus.BufSize(64))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe host events: %w", err)
	}
	s.sub = sub

	s.notifee = &network.NotifyBundle{
		ConnectedF: func(_ network.Network, conn network.Conn) {
			s.push(Inbound{kind: inboundConnected, conn: conn})
		},
		DisconnectedF: func(_ network.Network, conn network.Conn) {
			s.push(Inbound{kind: inboundDisconnected, conn: conn})
		},
	}
	c.Host.Network().Notify(s.notifee)

	s.wg.Add(3)
	go s.pumpHostEvents()
	go s.pumpDiscovery()
	go s.pumpGossip()

	log.Debug("Swarm 已创建", "peer", c.Host.ID(), "buffer", cap(s.inbound))
	return s, nil
}

// ============================================================================
//                              入站汇集
// ============================================================================

// Inbound 返回入站通道，由事件循环读取
func (s *Swarm) Inbound() <-chan Inbound {
	return s.inbound
}

// Next 返回下一个 SwarmEvent，阻塞直到有事件或 ctx 结束
//
// 与 Inbound/Handle 消费同一个流，二者只能择一使用。
func (s *Swarm) Next(ctx context.Context) (types.SwarmEvent, error) {
	for len(s.ready) == 0 {
		select {
		case in := <-s.inbound:
			s.ready = s.Handle(in)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	ev := s.ready[0]
	s.ready = s.ready[1:]
	return ev, nil
}

// push 投递入站项；通道满时阻塞直到被读取或 Swarm 关闭
func (s *Swarm) push(in Inbound) {
	select {
	case s.inbound <- in:
		return
	default:
	}
	log.Warn("入站通道已满，等待事件循环", "kind", in.kind, "buffer", cap(s.inbound))
	select {
	case s.inbound <- in:
	case <-s.ctx.Done():
	}
}

func (s *Swarm) pumpHostEvents() {
	defer s.wg.Done()
	for {
		select {
		case e, ok := <-s.sub.Out():
			if !ok {
				return
			}
			switch evt := e.(type) {
			case event.EvtLocalAddressesUpdated:
				for _, u := range evt.Current {
					if u.Action == event.Added {
						s.push(Inbound{kind: inboundListenAddr, addr: u.Address})
					}
				}
			case event.EvtPeerIdentificationCompleted:
				s.push(Inbound{kind: inboundIdentified, completed: &evt})
			case event.EvtPeerIdentificationFailed:
				s.push(Inbound{kind: inboundIdentifyFailed, failed: &evt})
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Swarm) pumpDiscovery() {
	defer s.wg.Done()
	for {
		select {
		case ev := <-s.discovery.Events():
			s.push(Inbound{kind: inboundDiscovery, discovery: ev})
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Swarm) pumpGossip() {
	defer s.wg.Done()
	for {
		select {
		case ev := <-s.gossip.Events():
			s.push(Inbound{kind: inboundGossip, gossip: ev})
		case <-s.ctx.Done():
			return
		}
	}
}

// ============================================================================
//                              事件转换
// ============================================================================

// Handle 在事件循环中处理一个入站项，返回产生的事件
//
// 连接通知在这里分发给全部组件；重复的发现与识别结果不产生事件。
func (s *Swarm) Handle(in Inbound) []types.SwarmEvent {
	switch in.kind {
	case inboundConnected:
		return s.handleConnected(in.conn)
	case inboundDisconnected:
		return s.handleDisconnected(in.conn)
	case inboundListenAddr:
		return []types.SwarmEvent{types.NewListenAddr{Addr: in.addr}}
	case inboundIdentified:
		var ev types.IdentifyEvent
		var ok bool
		s.guard(identify.Name, func() error {
			ev, ok = s.identify.HandleCompleted(in.completed)
			return nil
		})
		if !ok {
			return nil
		}
		return s.identified(ev)
	case inboundIdentifyFailed:
		var ev types.IdentifyEvent
		var ok bool
		s.guard(identify.Name, func() error {
			ev, ok = s.identify.HandleFailed(in.failed)
			return nil
		})
		if !ok {
			return nil
		}
		return s.identified(ev)
	case inboundDiscovery:
		if !s.discovery.Resolve(in.discovery) {
			return nil
		}
		s.metrics.SetRoutingTableSize(s.discovery.RoutingTableSize())
		return []types.SwarmEvent{in.discovery}
	case inboundGossip:
		if in.gossip.Type == types.MessageReceived {
			s.metrics.GossipMessage(in.gossip.Topic)
		}
		return []types.SwarmEvent{in.gossip}
	default:
		log.Error("未知的入站项", "kind", in.kind)
		return nil
	}
}

func (s *Swarm) handleConnected(c network.Conn) []types.SwarmEvent {
	p := c.RemotePeer()
	out := []types.SwarmEvent{types.ConnectionEstablished{
		Peer:      p,
		ConnID:    c.ID(),
		Addr:      c.RemoteMultiaddr(),
		Direction: c.Stat().Direction,
		NumConns:  len(s.host.Network().ConnsToPeer(p)),
	}}

	for _, h := range s.hooks {
		s.guard(h.name, func() error { return h.hook.OnConnected(c) })
	}
	var ev types.IdentifyEvent
	var ok bool
	s.guard(identify.Name, func() error {
		ev, ok = s.identify.OnConnected(c)
		return nil
	})
	if ok {
		out = append(out, s.identified(ev)...)
	}

	s.metrics.SetConnectedPeers(len(s.host.Network().Peers()))
	return out
}

func (s *Swarm) handleDisconnected(c network.Conn) []types.SwarmEvent {
	p := c.RemotePeer()
	out := []types.SwarmEvent{types.ConnectionClosed{
		Peer:     p,
		ConnID:   c.ID(),
		Addr:     c.RemoteMultiaddr(),
		NumConns: len(s.host.Network().ConnsToPeer(p)),
	}}

	for _, h := range s.hooks {
		s.guard(h.name, func() error { return h.hook.OnDisconnected(c) })
	}
	var ev types.IdentifyEvent
	var ok bool
	s.guard(identify.Name, func() error {
		ev, ok = s.identify.OnDisconnected(c)
		return nil
	})
	if ok {
		out = append(out, ev)
	}

	s.metrics.SetConnectedPeers(len(s.host.Network().Peers()))
	return out
}

// identified 兼容节点的监听地址交给发现组件
func (s *Swarm) identified(ev types.IdentifyEvent) []types.SwarmEvent {
	if ev.Identified && ev.Compatible {
		s.guard(dht.Name, func() error { return s.discovery.OnIdentified(ev.Info) })
	}
	return []types.SwarmEvent{ev}
}

// guard 调用组件钩子，错误与 panic 只记录不传播
func (s *Swarm) guard(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrBehaviourPanic, r)
			log.Error("组件处理事件时 panic", "behaviour", name, "err", err)
			s.metrics.BehaviourError(name)
		}
	}()
	if err := fn(); err != nil {
		log.Warn("组件处理事件失败", "behaviour", name, "err", err)
		s.metrics.BehaviourError(name)
	}
}

// ============================================================================
//                              操作
// ============================================================================

// LocalID 本节点身份
func (s *Swarm) LocalID() peer.ID {
	return s.host.ID()
}

// Host 返回底层 Host
func (s *Swarm) Host() host.Host {
	return s.host
}

// Discovery 返回发现组件
func (s *Swarm) Discovery() *dht.Discovery {
	return s.discovery
}

// Identify 返回身份识别组件
func (s *Swarm) Identify() *identify.Identification {
	return s.identify
}

// Gossip 返回主题消息组件
func (s *Swarm) Gossip() *gossipsub.Gossip {
	return s.gossip
}

// Publish 向主题发布消息
func (s *Swarm) Publish(ctx context.Context, topic string, data []byte) (types.MessageID, error) {
	return s.gossip.Publish(ctx, topic, data)
}

// Disconnect 关闭与对端的所有连接
func (s *Swarm) Disconnect(p peer.ID) error {
	return s.host.Network().ClosePeer(p)
}

// Close 停止事件汇集
//
// 组件与 Host 的关闭由各自的所有者负责。
func (s *Swarm) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.host.Network().StopNotify(s.notifee)
	s.cancel()
	err := s.sub.Close()
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("close swarm: %w", err)
	}
	return nil
}
