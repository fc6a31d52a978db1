package gossipsub

import (
	"sync"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
)

// streamTracker 记录路由器已建立出站流的对端
//
// 对端出现在主题成员列表中时，其出站流可能仍在协商；
// 此时发布的消息不会送达。路由器仅在出站流就绪后回调 AddPeer。
type streamTracker struct {
	mu    sync.RWMutex
	peers map[peer.ID]struct{}
}

var _ pubsub.RawTracer = (*streamTracker)(nil)

func newStreamTracker() *streamTracker {
	return &streamTracker{peers: make(map[peer.ID]struct{})}
}

// anyReady 返回候选对端中是否至少有一个出站流已就绪
func (t *streamTracker) anyReady(candidates []peer.ID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, p := range candidates {
		if _, ok := t.peers[p]; ok {
			return true
		}
	}
	return false
}

func (t *streamTracker) AddPeer(p peer.ID, _ protocol.ID) {
	t.mu.Lock()
	t.peers[p] = struct{}{}
	t.mu.Unlock()
}

func (t *streamTracker) RemovePeer(p peer.ID) {
	t.mu.Lock()
	delete(t.peers, p)
	t.mu.Unlock()
}

// 以下回调不关心

func (t *streamTracker) Join(string) {}
func (t *streamTracker) Leave(string) {}
func (t *streamTracker) Graft(peer.ID, string) {}
func (t *streamTracker) Prune(peer.ID, string) {}
func (t *streamTracker) ValidateMessage(*pubsub.Message) {}
func (t *streamTracker) DeliverMessage(*pubsub.Message) {}
func (t *streamTracker) RejectMessage(*pubsub.Message, string) {}
func (t *streamTracker) DuplicateMessage(*pubsub.Message) {}
func (t *streamTracker) ThrottlePeer(peer.ID) {}
func (t *streamTracker) RecvRPC(*pubsub.RPC) {}
func (t *streamTracker) SendRPC(*pubsub.RPC, peer.ID) {}
func (t *streamTracker) DropRPC(*pubsub.RPC, peer.ID) {}
func (t *streamTracker) UndeliverableMessage(*pubsub.Message) {}
