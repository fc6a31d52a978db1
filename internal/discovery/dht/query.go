package dht

import (
	"context"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/hivemind/go-hive/pkg/types"
)

// queryRecord 一次进行中的查询
//
// 查询在独立的 goroutine 中执行，结束时产生 QueryCompleted 事件，
// 记录由事件循环调用 Resolve 时移除。
type queryRecord struct {
	id      uint64
	target  peer.ID
	started time.Time
}

func (d *Discovery) beginQuery(target peer.ID) *queryRecord {
	q := &queryRecord{
		id:      d.nextQuery.Add(1),
		target:  target,
		started: d.clock.Now(),
	}
	d.queryMu.Lock()
	d.queries[q.id] = q
	d.queryMu.Unlock()
	return q
}

// FindClosest 迭代查找离 target 最近的节点
//
// 查询从已知最近的节点出发，向它们询问更近的节点，
// 直到不再返回更近的节点为止。结果同时以 QueryCompleted 事件报告。
func (d *Discovery) FindClosest(ctx context.Context, target peer.ID) ([]peer.ID, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	q := d.beginQuery(target)

	ctx, cancel := context.WithTimeout(ctx, d.config.QueryTimeout)
	defer cancel()

	peers, err := d.kad.GetClosestPeers(ctx, string(target))
	d.events.push(types.DiscoveryEvent{
		Type:     types.QueryCompleted,
		QueryID:  q.id,
		Target:   target,
		Found:    len(peers),
		Duration: d.clock.Since(q.started),
		Err:      err,
	})
	return peers, err
}

// Resolve 在事件循环中对账一个发现事件
//
// QueryCompleted 会移除对应的进行中记录；记录不存在（重复事件）时返回 false。
func (d *Discovery) Resolve(ev types.DiscoveryEvent) bool {
	if ev.Type != types.QueryCompleted {
		return true
	}
	d.queryMu.Lock()
	defer d.queryMu.Unlock()
	if _, ok := d.queries[ev.QueryID]; !ok {
		return false
	}
	delete(d.queries, ev.QueryID)
	return true
}

// InFlightQueries 进行中的查询数
func (d *Discovery) InFlightQueries() int {
	d.queryMu.Lock()
	defer d.queryMu.Unlock()
	return len(d.queries)
}

// refreshLoop 周期性查找离自身最近的节点
func (d *Discovery) refreshLoop() {
	defer d.wg.Done()

	ticker := d.clock.Ticker(d.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.refresh()
		}
	}
}

func (d *Discovery) refresh() {
	if d.RoutingTableSize() == 0 {
		log.Debug("路由表为空，跳过刷新")
		return
	}
	if _, err := d.FindClosest(d.ctx, d.host.ID()); err != nil {
		log.Debug("刷新查询失败", "err", err)
	}
}
