package types

import (
	"time"

	"github.com/libp2p/go-libp2p/core/network"
	ma "github.com/multiformats/go-multiaddr"
)

// ============================================================================
//                              SwarmEvent
// ============================================================================

// EventKind SwarmEvent 的种类，用作日志与指标标签
type EventKind int

const (
	KindNewListenAddr EventKind = iota
	KindConnectionEstablished
	KindConnectionClosed
	KindDiscovery
	KindIdentify
	KindGossip
)

func (k EventKind) String() string {
	switch k {
	case KindNewListenAddr:
		return "new_listen_addr"
	case KindConnectionEstablished:
		return "connection_established"
	case KindConnectionClosed:
		return "connection_closed"
	case KindDiscovery:
		return "discovery"
	case KindIdentify:
		return "identify"
	case KindGossip:
		return "gossip"
	default:
		return "unknown"
	}
}

// SwarmEvent 统一事件流中的事件
//
// 这是一个封闭的和类型：只有本包中的变体实现了它，
// 事件循环对其做穷尽的类型分支。
type SwarmEvent interface {
	Kind() EventKind
	swarmEvent()
}

// NewListenAddr 本地开始在新地址上监听
type NewListenAddr struct {
	Addr ma.Multiaddr
}

// ConnectionEstablished 与某节点建立了一条连接
type ConnectionEstablished struct {
	Peer      NodeIdentity
	ConnID    string
	Addr      ma.Multiaddr
	Direction network.Direction
	// NumConns 建立后与该节点的连接总数
	NumConns int
}

// ConnectionClosed 与某节点的一条连接关闭
type ConnectionClosed struct {
	Peer   NodeIdentity
	ConnID string
	Addr   ma.Multiaddr
	// NumConns 关闭后与该节点剩余的连接数
	NumConns int
}

func (NewListenAddr) Kind() EventKind         { return KindNewListenAddr }
func (ConnectionEstablished) Kind() EventKind { return KindConnectionEstablished }
func (ConnectionClosed) Kind() EventKind      { return KindConnectionClosed }

func (NewListenAddr) swarmEvent()         {}
func (ConnectionEstablished) swarmEvent() {}
func (ConnectionClosed) swarmEvent()      {}

// ============================================================================
//                              发现事件
// ============================================================================

// DiscoveryEventType 发现事件子类型
type DiscoveryEventType int

const (
	// PeerRoutable 节点进入路由表
	PeerRoutable DiscoveryEventType = iota
	// PeerUnreachable 节点被移出路由表
	PeerUnreachable
	// QueryCompleted 一次迭代查询结束
	QueryCompleted
)

func (t DiscoveryEventType) String() string {
	switch t {
	case PeerRoutable:
		return "peer_routable"
	case PeerUnreachable:
		return "peer_unreachable"
	case QueryCompleted:
		return "query_completed"
	default:
		return "unknown"
	}
}

// DiscoveryEvent 发现组件产生的事件
type DiscoveryEvent struct {
	Type DiscoveryEventType
	Peer NodeIdentity

	// 以下字段仅 QueryCompleted 使用
	QueryID  uint64
	Target   NodeIdentity
	Found    int
	Duration time.Duration
	Err      error
}

func (DiscoveryEvent) Kind() EventKind { return KindDiscovery }
func (DiscoveryEvent) swarmEvent()     {}

// ============================================================================
//                              身份识别事件
// ============================================================================

// IdentifyEvent 每条连接恰好一个：识别成功或失败
type IdentifyEvent struct {
	Peer   NodeIdentity
	ConnID string

	// Identified 为 true 时 Info 有效，否则 Err 给出失败原因
	Identified bool
	Info       PeerRecord
	Err        error

	// Compatible 对端协议版本与本地一致
	Compatible bool
}

func (IdentifyEvent) Kind() EventKind { return KindIdentify }
func (IdentifyEvent) swarmEvent()     {}

// ============================================================================
//                              Gossip 事件
// ============================================================================

// GossipEventType Gossip 事件子类型
type GossipEventType int

const (
	// MessageReceived 订阅主题上收到一条新消息（非重复）
	MessageReceived GossipEventType = iota
	// PeerSubscribed 某节点加入了主题
	PeerSubscribed
	// PeerUnsubscribed 某节点离开了主题
	PeerUnsubscribed
)

func (t GossipEventType) String() string {
	switch t {
	case MessageReceived:
		return "message_received"
	case PeerSubscribed:
		return "peer_subscribed"
	case PeerUnsubscribed:
		return "peer_unsubscribed"
	default:
		return "unknown"
	}
}

// GossipEvent Gossip 组件产生的事件
type GossipEvent struct {
	Type  GossipEventType
	Topic string

	// Peer 对 MessageReceived 为转发给本节点的直接来源，
	// 对订阅事件为加入或离开的节点
	Peer NodeIdentity

	// 以下字段仅 MessageReceived 使用
	Origin  NodeIdentity
	ID      MessageID
	Payload []byte
}

func (GossipEvent) Kind() EventKind { return KindGossip }
func (GossipEvent) swarmEvent()     {}
