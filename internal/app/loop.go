package app

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/hivemind/go-hive/config"
	"github.com/hivemind/go-hive/internal/core/messaging/gossipsub"
	"github.com/hivemind/go-hive/internal/core/metrics"
	"github.com/hivemind/go-hive/internal/core/swarm"
	"github.com/hivemind/go-hive/internal/telemetry"
	"github.com/hivemind/go-hive/internal/util/logger"
	"github.com/hivemind/go-hive/pkg/types"
)

var log = logger.Logger("app")

// EventSource 事件循环消费的统一事件流
type EventSource interface {
	Inbound() <-chan swarm.Inbound
	Handle(in swarm.Inbound) []types.SwarmEvent
}

// Publisher 发布遥测
type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte) (types.MessageID, error)
}

// Disconnector 断开对端
type Disconnector interface {
	Disconnect(p peer.ID) error
}

var (
	_ EventSource  = (*swarm.Swarm)(nil)
	_ Publisher    = (*swarm.Swarm)(nil)
	_ Disconnector = (*swarm.Swarm)(nil)
)

// LoopConfig 事件循环配置
type LoopConfig struct {
	// Topic 遥测发布主题
	Topic string

	// TelemetryEnabled 是否周期发布遥测
	TelemetryEnabled bool

	// Interval 遥测发布周期
	Interval time.Duration

	// DisconnectIncompatible 断开协议版本不一致的对端
	DisconnectIncompatible bool
}

// LoopConfigFromUnified 从统一配置创建事件循环配置
func LoopConfigFromUnified(cfg *config.Config) LoopConfig {
	return LoopConfig{
		Topic:                  cfg.Messaging.Topic,
		TelemetryEnabled:       cfg.Telemetry.Enabled,
		Interval:               cfg.Telemetry.Interval.Duration(),
		DisconnectIncompatible: cfg.Identify.DisconnectIncompatible,
	}
}

// LoopOption 事件循环选项
type LoopOption func(*Loop)

// WithLoopClock 替换遥测定时器使用的时钟
func WithLoopClock(c clock.Clock) LoopOption {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithDisconnector 设置断开不兼容对端使用的接口
func WithDisconnector(d Disconnector) LoopOption {
	return func(l *Loop) {
		l.disconnector = d
	}
}

// WithLoopMetrics 设置指标
func WithLoopMetrics(m *metrics.Metrics) LoopOption {
	return func(l *Loop) {
		l.metrics = m
	}
}

// Loop 节点的单一事件循环
//
// 每轮只处理一个来源：要么一个入站项（可能转换为多个事件），
// 要么一次遥测发布。处理过程中不会挂起等待其他来源。
type Loop struct {
	source       EventSource
	publisher    Publisher
	generator    telemetry.Generator
	disconnector Disconnector
	metrics      *metrics.Metrics
	clock        clock.Clock
	config       LoopConfig
}

// NewLoop 创建事件循环；generator 为 nil 时不发布遥测
func NewLoop(src EventSource, pub Publisher, gen telemetry.Generator, cfg LoopConfig, opts ...LoopOption) *Loop {
	l := &Loop{
		source:    src,
		publisher: pub,
		generator: gen,
		clock:     clock.New(),
		config:    cfg,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run 运行事件循环直到 ctx 结束
//
// 正常运行中不会返回错误；ctx 结束时返回 nil。
func (l *Loop) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if l.config.TelemetryEnabled && l.generator != nil && l.config.Interval > 0 {
		ticker := l.clock.Ticker(l.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	log.Info("事件循环已启动",
		"topic", l.config.Topic,
		"telemetry", tick != nil,
		"interval", l.config.Interval)

	for {
		select {
		case <-ctx.Done():
			log.Info("事件循环已停止")
			return nil
		case in := <-l.source.Inbound():
			for _, ev := range l.source.Handle(in) {
				l.dispatch(ev)
			}
		case <-tick:
			l.publishTelemetry(ctx)
		}
	}
}

// ============================================================================
//                              事件分发
// ============================================================================

func (l *Loop) dispatch(ev types.SwarmEvent) {
	l.metrics.Event(ev.Kind().String())

	switch e := ev.(type) {
	case types.NewListenAddr:
		log.Info("正在监听", "kind", e.Kind(), "addr", e.Addr)

	case types.ConnectionEstablished:
		log.Info("连接已建立",
			"kind", e.Kind(),
			"peer", e.Peer,
			"addr", e.Addr,
			"direction", e.Direction,
			"conns", e.NumConns)

	case types.ConnectionClosed:
		log.Info("连接已关闭",
			"kind", e.Kind(),
			"peer", e.Peer,
			"addr", e.Addr,
			"conns", e.NumConns)

	case types.DiscoveryEvent:
		l.onDiscovery(e)

	case types.IdentifyEvent:
		l.onIdentify(e)

	case types.GossipEvent:
		l.onGossip(e)

	default:
		log.Error("未知事件", "kind", ev.Kind())
	}
}

func (l *Loop) onDiscovery(e types.DiscoveryEvent) {
	switch e.Type {
	case types.PeerRoutable:
		log.Info("节点可路由", "kind", e.Kind(), "peer", e.Peer, "outcome", e.Type)
	case types.PeerUnreachable:
		log.Info("节点不可路由", "kind", e.Kind(), "peer", e.Peer, "outcome", e.Type)
	case types.QueryCompleted:
		if e.Err != nil {
			log.Warn("查询失败",
				"kind", e.Kind(),
				"query", e.QueryID,
				"target", e.Target,
				"duration", e.Duration,
				"err", e.Err)
			return
		}
		log.Info("查询完成",
			"kind", e.Kind(),
			"query", e.QueryID,
			"target", e.Target,
			"found", e.Found,
			"duration", e.Duration)
	}
}

func (l *Loop) onIdentify(e types.IdentifyEvent) {
	if !e.Identified {
		l.metrics.Identify("failed")
		log.Warn("身份识别失败", "kind", e.Kind(), "peer", e.Peer, "conn", e.ConnID, "err", e.Err)
		return
	}

	if e.Compatible {
		l.metrics.Identify("identified")
	} else {
		l.metrics.Identify("incompatible")
	}
	log.Info("已识别对端",
		"kind", e.Kind(),
		"peer", e.Peer,
		"protocol", e.Info.ProtocolVersion,
		"agent", e.Info.AgentVersion,
		"addrs", len(e.Info.Addrs),
		"compatible", e.Compatible)

	if !e.Compatible && l.config.DisconnectIncompatible && l.disconnector != nil {
		p := e.Peer
		// 断开会产生新的连接通知，不能在循环内同步等待
		go func() {
			if err := l.disconnector.Disconnect(p); err != nil {
				log.Debug("断开不兼容对端失败", "peer", p, "err", err)
			}
		}()
	}
}

func (l *Loop) onGossip(e types.GossipEvent) {
	switch e.Type {
	case types.MessageReceived:
		log.Info("收到消息",
			"kind", e.Kind(),
			"topic", e.Topic,
			"peer", e.Peer,
			"origin", e.Origin,
			"id", e.ID,
			"payload", string(e.Payload))
	case types.PeerSubscribed:
		log.Info("对端加入主题", "kind", e.Kind(), "topic", e.Topic, "peer", e.Peer)
	case types.PeerUnsubscribed:
		log.Info("对端离开主题", "kind", e.Kind(), "topic", e.Topic, "peer", e.Peer)
	}
}

// ============================================================================
//                              遥测发布
// ============================================================================

func (l *Loop) publishTelemetry(ctx context.Context) {
	reading, err := l.generator.Generate(ctx)
	if err != nil {
		l.metrics.GenerateError()
		log.Warn("生成遥测读数失败", "err", err)
		return
	}

	data, err := telemetry.Encode(reading)
	if err != nil {
		l.metrics.GenerateError()
		log.Warn("编码遥测读数失败", "seq", reading.Seq, "err", err)
		return
	}

	id, err := l.publisher.Publish(ctx, l.config.Topic, data)
	l.metrics.Publish(err)
	switch {
	case errors.Is(err, gossipsub.ErrInsufficientPeers):
		log.Info("暂无对端，跳过遥测发布", "topic", l.config.Topic, "seq", reading.Seq, "outcome", "no_peers")
	case err != nil:
		log.Warn("发布遥测失败", "topic", l.config.Topic, "seq", reading.Seq, "outcome", "error", "err", err)
	default:
		log.Info("已发布遥测", "topic", l.config.Topic, "seq", reading.Seq, "id", id, "size", len(data), "outcome", "ok")
	}
}
