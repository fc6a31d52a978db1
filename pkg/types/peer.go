package types

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// NodeIdentity 节点身份，进程生命周期内不变
type NodeIdentity = peer.ID

// PeerRecord 从发现或身份识别中学到的节点记录
//
// 记录只是提示而非事实：任何节点都可能提供过时或恶意的记录。
type PeerRecord struct {
	ID              NodeIdentity
	Addrs           []ma.Multiaddr
	ProtocolVersion string
	AgentVersion    string
	Protocols       []string
	ObservedAddr    ma.Multiaddr
	LastSeen        time.Time
}

// MessageID Gossip 消息标识，由内容派生，用于去重
type MessageID string

func (id MessageID) String() string {
	return string(id)
}

// Mode 节点的加入模式
type Mode int

const (
	// ModeBootstrap 引导模式：网络中的第一个节点，只监听不拨号
	ModeBootstrap Mode = iota
	// ModeFollower 跟随模式：监听并拨号一个已知地址
	ModeFollower
)

func (m Mode) String() string {
	switch m {
	case ModeBootstrap:
		return "bootstrap"
	case ModeFollower:
		return "follower"
	default:
		return "unknown"
	}
}
