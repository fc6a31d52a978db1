package identify

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/hivemind/go-hive/internal/util/logger"
	"github.com/hivemind/go-hive/pkg/types"
)

var log = logger.Logger("identify")

var (
	// ErrConnectionClosed 识别完成前连接已关闭
	ErrConnectionClosed = errors.New("identify: connection closed before identification")

	// ErrIdentifyFailed 识别失败但没有给出原因
	ErrIdentifyFailed = errors.New("identify: identification failed")
)

// maxEarly 先行到达的识别结果最多保留的条数
const maxEarly = 256

// pendingConn 一条等待识别结果的连接
type pendingConn struct {
	connID string
	peer   peer.ID
	seq    uint64
}

// Identification 身份识别组件
//
// 所有方法由事件循环调用；互斥锁只保护并发的只读查询。
type Identification struct {
	protocolVersion string

	mu      sync.Mutex
	seq     uint64
	pending map[string]*pendingConn
	// early 连接通知到达之前就已完成的识别结果，超出容量时淘汰最旧的
	early *simplelru.LRU[string, *event.EvtPeerIdentificationCompleted]
	// resolved 已产生过事件的连接，连接关闭时清除
	resolved map[string]struct{}
}

// New 创建身份识别组件
//
// protocolVersion 为本地协议版本，用于判断对端是否兼容。
func New(protocolVersion string) *Identification {
	early, _ := simplelru.NewLRU[string, *event.EvtPeerIdentificationCompleted](maxEarly, nil)
	return &Identification{
		protocolVersion: protocolVersion,
		pending:         make(map[string]*pendingConn),
		early:           early,
		resolved:        make(map[string]struct{}),
	}
}

// ProtocolVersion 返回本地协议版本
func (i *Identification) ProtocolVersion() string {
	return i.protocolVersion
}

// OnConnected 为新连接登记一条进行中记录
//
// 如果该连接的识别结果已先行到达，立即了结并返回事件。
func (i *Identification) OnConnected(c network.Conn) (types.IdentifyEvent, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	id := c.ID()
	if _, ok := i.resolved[id]; ok {
		return types.IdentifyEvent{}, false
	}
	if _, ok := i.pending[id]; ok {
		return types.IdentifyEvent{}, false
	}
	if evt, ok := i.early.Peek(id); ok {
		i.early.Remove(id)
		return i.resolveLocked(id, i.identified(id, evt)), true
	}

	i.seq++
	i.pending[id] = &pendingConn{connID: id, peer: c.RemotePeer(), seq: i.seq}
	return types.IdentifyEvent{}, false
}

// OnDisconnected 连接关闭时了结其进行中记录
func (i *Identification) OnDisconnected(c network.Conn) (types.IdentifyEvent, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	id := c.ID()
	i.early.Remove(id)

	if p, ok := i.pending[id]; ok {
		ev := i.resolveLocked(id, types.IdentifyEvent{
			Peer:   p.peer,
			ConnID: id,
			Err:    ErrConnectionClosed,
		})
		delete(i.resolved, id)
		return ev, true
	}
	delete(i.resolved, id)
	return types.IdentifyEvent{}, false
}

// HandleCompleted 处理识别成功
func (i *Identification) HandleCompleted(evt *event.EvtPeerIdentificationCompleted) (types.IdentifyEvent, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if evt.Conn == nil {
		p := i.oldestPendingLocked(evt.Peer)
		if p == nil {
			return types.IdentifyEvent{}, false
		}
		return i.resolveLocked(p.connID, i.identified(p.connID, evt)), true
	}

	id := evt.Conn.ID()
	if _, ok := i.pending[id]; ok {
		return i.resolveLocked(id, i.identified(id, evt)), true
	}
	if _, ok := i.resolved[id]; ok {
		return types.IdentifyEvent{}, false
	}
	// 断开之后才到达的结果不会再有连接通知来领取
	if evt.Conn.IsClosed() {
		log.Debug("丢弃已关闭连接的识别结果", "peer", evt.Peer, "conn", id)
		return types.IdentifyEvent{}, false
	}
	i.early.Add(id, evt)
	return types.IdentifyEvent{}, false
}

// HandleFailed 处理识别失败
//
// 失败事件只携带节点身份，了结该节点最早的进行中记录。
func (i *Identification) HandleFailed(evt *event.EvtPeerIdentificationFailed) (types.IdentifyEvent, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	p := i.oldestPendingLocked(evt.Peer)
	if p == nil {
		return types.IdentifyEvent{}, false
	}
	reason := evt.Reason
	if reason == nil {
		reason = ErrIdentifyFailed
	}
	return i.resolveLocked(p.connID, types.IdentifyEvent{
		Peer:   evt.Peer,
		ConnID: p.connID,
		Err:    reason,
	}), true
}

// Pending 进行中的识别数
func (i *Identification) Pending() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.pending)
}

func (i *Identification) identified(connID string, evt *event.EvtPeerIdentificationCompleted) types.IdentifyEvent {
	protocols := make([]string, 0, len(evt.Protocols))
	for _, p := range evt.Protocols {
		protocols = append(protocols, string(p))
	}
	compatible := evt.ProtocolVersion == i.protocolVersion
	if !compatible {
		log.Warn("对端协议版本不一致",
			"peer", evt.Peer,
			"local", i.protocolVersion,
			"remote", evt.ProtocolVersion)
	}
	return types.IdentifyEvent{
		Peer:       evt.Peer,
		ConnID:     connID,
		Identified: true,
		Compatible: compatible,
		Info: types.PeerRecord{
			ID:              evt.Peer,
			Addrs:           evt.ListenAddrs,
			ProtocolVersion: evt.ProtocolVersion,
			AgentVersion:    evt.AgentVersion,
			Protocols:       protocols,
			ObservedAddr:    evt.ObservedAddr,
			LastSeen:        time.Now(),
		},
	}
}

func (i *Identification) resolveLocked(connID string, ev types.IdentifyEvent) types.IdentifyEvent {
	delete(i.pending, connID)
	i.resolved[connID] = struct{}{}
	return ev
}

func (i *Identification) oldestPendingLocked(p peer.ID) *pendingConn {
	var oldest *pendingConn
	for _, pc := range i.pending {
		if pc.peer != p {
			continue
		}
		if oldest == nil || pc.seq < oldest.seq {
			oldest = pc
		}
	}
	return oldest
}
