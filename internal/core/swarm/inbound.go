package swarm

import (
	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/network"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/hivemind/go-hive/pkg/types"
)

// inboundKind 入站项来源
type inboundKind int

const (
	inboundConnected inboundKind = iota
	inboundDisconnected
	inboundListenAddr
	inboundIdentified
	inboundIdentifyFailed
	inboundDiscovery
	inboundGossip
)

func (k inboundKind) String() string {
	switch k {
	case inboundConnected:
		return "connected"
	case inboundDisconnected:
		return "disconnected"
	case inboundListenAddr:
		return "listen_addr"
	case inboundIdentified:
		return "identified"
	case inboundIdentifyFailed:
		return "identify_failed"
	case inboundDiscovery:
		return "discovery"
	case inboundGossip:
		return "gossip"
	default:
		return "unknown"
	}
}

// Inbound 汇入事件循环的一个未处理项
//
// 由 Handle 在事件循环中转换为零个或多个 SwarmEvent。
type Inbound struct {
	kind inboundKind

	conn      network.Conn
	addr      ma.Multiaddr
	completed *event.EvtPeerIdentificationCompleted
	failed    *event.EvtPeerIdentificationFailed
	discovery types.DiscoveryEvent
	gossip    types.GossipEvent
}
