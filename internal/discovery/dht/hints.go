package dht

import (
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/libp2p/go-libp2p/core/peer"
	kb "github.com/libp2p/go-libp2p-kbucket"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/hivemind/go-hive/pkg/types"
)

// hintBook 有界的节点提示簿
//
// 容量满时淘汰最久未见的记录，记录在 RecordTTL 后过期。
// 提示簿只记录学到的地址与最近活跃时间，不影响路由表本身的容量策略。
type hintBook struct {
	cache *expirable.LRU[peer.ID, types.PeerRecord]
}

func newHintBook(size int, ttl time.Duration) *hintBook {
	return &hintBook{cache: expirable.NewLRU[peer.ID, types.PeerRecord](size, nil, ttl)}
}

// observe 记录一次观察，合并已有地址
func (b *hintBook) observe(id peer.ID, addrs []ma.Multiaddr, now time.Time) types.PeerRecord {
	rec, ok := b.cache.Peek(id)
	if !ok {
		rec = types.PeerRecord{ID: id}
	}
	rec.Addrs = mergeAddrs(rec.Addrs, addrs)
	rec.LastSeen = now
	b.cache.Add(id, rec)
	return rec
}

func (b *hintBook) get(id peer.ID) (types.PeerRecord, bool) {
	return b.cache.Peek(id)
}

func (b *hintBook) len() int {
	return b.cache.Len()
}

func mergeAddrs(have, add []ma.Multiaddr) []ma.Multiaddr {
	out := have
	for _, a := range add {
		dup := false
		for _, h := range out {
			if h.Equal(a) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, a)
		}
	}
	return out
}

// candidate 最近节点排序的候选
type candidate struct {
	id       peer.ID
	key      kb.ID
	cpl      int
	lastSeen time.Time
}

// sortCandidates 按桶距离排序：与目标公共前缀越长越靠前，
// 同一桶内最近活跃的靠前，仍相同时按 XOR 距离保证结果确定。
func sortCandidates(target kb.ID, cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.cpl != b.cpl {
			return a.cpl > b.cpl
		}
		if !a.lastSeen.Equal(b.lastSeen) {
			return a.lastSeen.After(b.lastSeen)
		}
		return closerTo(target, a.key, b.key)
	})
}

// closerTo 判断 a 到 target 的 XOR 距离是否小于 b
func closerTo(target, a, b kb.ID) bool {
	for i := range target {
		da, db := a[i]^target[i], b[i]^target[i]
		if da != db {
			return da < db
		}
	}
	return false
}
