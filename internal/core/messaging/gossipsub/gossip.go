package gossipsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/multierr"

	"github.com/hivemind/go-hive/internal/util/logger"
	"github.com/hivemind/go-hive/pkg/types"
)

var log = logger.Logger("gossipsub")

// topicState 一个已订阅主题的运行状态
type topicState struct {
	topic   *pubsub.Topic
	sub     *pubsub.Subscription
	handler *pubsub.TopicEventHandler
	cancel  context.CancelFunc
	done    sync.WaitGroup
}

// Gossip 主题消息组件
type Gossip struct {
	host   host.Host
	ps     *pubsub.PubSub
	config *Config

	// streams 出站流已就绪的对端
	streams *streamTracker

	mu     sync.RWMutex
	topics map[string]*topicState

	// conns 每个对端的连接数，由连接钩子维护
	connMu sync.Mutex
	conns  map[peer.ID]int

	events chan types.GossipEvent

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// New 创建主题消息组件
//
// 创建后即在 Host 上注册 GossipSub 协议处理器。
func New(h host.Host, cfg *Config) (*Gossip, error) {
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
	streams := newStreamTracker()
	ps, err := pubsub.NewGossipSub(ctx, h, pubsubOptions(cfg, streams)...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create gossipsub: %w", err)
	}

	log.Debug("GossipSub 已创建",
		"D", cfg.D,
		"heartbeat", cfg.HeartbeatInterval,
		"signed", cfg.SignMessages)

	return &Gossip{
		host:    h,
		ps:      ps,
		config:  cfg,
		streams: streams,
		topics:  make(map[string]*topicState),
		conns:   make(map[peer.ID]int),
		events:  make(chan types.GossipEvent, cfg.EventBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// ============================================================================
//                              订阅
// ============================================================================

// Subscribe 订阅主题
func (g *Gossip) Subscribe(name string) error {
	if g.closed.Load() {
		return ErrClosed
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.topics[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadySubscribed, name)
	}

	topic, err := g.ps.Join(name)
	if err != nil {
		return fmt.Errorf("join topic %s: %w", name, err)
	}
	handler, err := topic.EventHandler()
	if err != nil {
		_ = topic.Close()
		return fmt.Errorf("topic %s event handler: %w", name, err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		handler.Cancel()
		_ = topic.Close()
		return fmt.Errorf("subscribe topic %s: %w", name, err)
	}

	ctx, cancel := context.WithCancel(g.ctx)
	ts := &topicState{topic: topic, sub: sub, handler: handler, cancel: cancel}
	ts.done.Add(2)
	go g.readMessages(ctx, name, ts)
	go g.readPeerEvents(ctx, name, ts)
	g.topics[name] = ts

	log.Info("已订阅主题", "topic", name)
	return nil
}

// Unsubscribe 退订主题
func (g *Gossip) Unsubscribe(name string) error {
	g.mu.Lock()
	ts, ok := g.topics[name]
	delete(g.topics, name)
	g.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, name)
	}
	if err := ts.close(); err != nil {
		return err
	}
	log.Info("已退订主题", "topic", name)
	return nil
}

// Subscribed 是否已订阅主题
func (g *Gossip) Subscribed(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.topics[name]
	return ok
}

// Topics 已订阅的主题
func (g *Gossip) Topics() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.topics))
	for name := range g.topics {
		out = append(out, name)
	}
	return out
}

// Peers 返回主题上已知的对端
func (g *Gossip) Peers(name string) []peer.ID {
	g.mu.RLock()
	ts, ok := g.topics[name]
	g.mu.RUnlock()
	if !ok {
		return nil
	}
	return ts.topic.ListPeers()
}

func (ts *topicState) close() error {
	ts.cancel()
	ts.sub.Cancel()
	ts.handler.Cancel()
	ts.done.Wait()
	if err := ts.topic.Close(); err != nil {
		return fmt.Errorf("close topic %s: %w", ts.topic.String(), err)
	}
	return nil
}

// ============================================================================
//                              发布
// ============================================================================

// Publish 向主题发布消息并返回其消息 ID
//
// 至少需要一个订阅该主题且出站流已就绪的对端，否则返回 ErrInsufficientPeers。
// 投递是尽力而为的：返回成功只表示消息已交给路由器。
// 消息 ID 由来源和内容决定，SeenTTL 内重复发布相同内容会返回同一个 ID，
// 但路由器将其视为重复消息直接丢弃，不会再次送达。
func (g *Gossip) Publish(ctx context.Context, name string, data []byte) (types.MessageID, error) {
	if g.closed.Load() {
		return "", ErrClosed
	}

	g.mu.RLock()
	ts, ok := g.topics[name]
	g.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotSubscribed, name)
	}
	if len(data) > g.config.MaxMessageSize {
		return "", fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(data), g.config.MaxMessageSize)
	}
	if !g.streams.anyReady(ts.topic.ListPeers()) {
		return "", ErrInsufficientPeers
	}

	if err := ts.topic.Publish(ctx, data); err != nil {
		return "", fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	var from []byte
	if g.config.SignMessages {
		from = []byte(g.host.ID())
	}
	return messageID(from, data), nil
}

// ============================================================================
//                              事件
// ============================================================================

// Events 返回事件通道
func (g *Gossip) Events() <-chan types.GossipEvent {
	return g.events
}

func (g *Gossip) emit(ctx context.Context, ev types.GossipEvent) bool {
	select {
	case g.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (g *Gossip) readMessages(ctx context.Context, name string, ts *topicState) {
	defer ts.done.Done()
	self := g.host.ID()
	for {
		msg, err := ts.sub.Next(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, pubsub.ErrSubscriptionCancelled) {
				log.Debug("读取主题消息结束", "topic", name, "err", err)
			}
			return
		}
		// 自己发布的消息不回送
		if msg.ReceivedFrom == self {
			continue
		}
		ev := types.GossipEvent{
			Type:    types.MessageReceived,
			Topic:   name,
			Peer:    msg.ReceivedFrom,
			Origin:  msg.GetFrom(),
			ID:      types.MessageID(msg.ID),
			Payload: msg.GetData(),
		}
		if !g.emit(ctx, ev) {
			return
		}
	}
}

func (g *Gossip) readPeerEvents(ctx context.Context, name string, ts *topicState) {
	defer ts.done.Done()
	for {
		pe, err := ts.handler.NextPeerEvent(ctx)
		if err != nil {
			return
		}
		typ := types.PeerSubscribed
		if pe.Type == pubsub.PeerLeave {
			typ = types.PeerUnsubscribed
		}
		if !g.emit(ctx, types.GossipEvent{Type: typ, Topic: name, Peer: pe.Peer}) {
			return
		}
	}
}

// ============================================================================
//                              连接钩子
// ============================================================================

// OnConnected 连接建立
//
// 流的建立由 pubsub 自己的网络通知完成，这里只维护连接计数。
func (g *Gossip) OnConnected(c network.Conn) error {
	g.connMu.Lock()
	g.conns[c.RemotePeer()]++
	g.connMu.Unlock()
	return nil
}

// OnDisconnected 连接关闭
func (g *Gossip) OnDisconnected(c network.Conn) error {
	g.connMu.Lock()
	defer g.connMu.Unlock()
	p := c.RemotePeer()
	if n := g.conns[p]; n > 1 {
		g.conns[p] = n - 1
	} else {
		delete(g.conns, p)
	}
	return nil
}

// ConnectedPeers 当前有连接的对端数
func (g *Gossip) ConnectedPeers() int {
	g.connMu.Lock()
	defer g.connMu.Unlock()
	return len(g.conns)
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 关闭组件并退订所有主题
func (g *Gossip) Close() error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}

	g.mu.Lock()
	topics := g.topics
	g.topics = make(map[string]*topicState)
	g.mu.Unlock()

	var err error
	for _, ts := range topics {
		err = multierr.Append(err, ts.close())
	}
	g.cancel()
	return err
}
