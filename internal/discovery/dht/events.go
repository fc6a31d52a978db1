package dht

import (
	"context"
	"sync"

	"github.com/hivemind/go-hive/pkg/types"
)

// eventQueue 无界事件队列
//
// 路由表回调在持有路由表锁时调用，push 因此绝不能阻塞。
// 事件按产生顺序由 run 转发到输出通道。
type eventQueue struct {
	mu      sync.Mutex
	pending []types.DiscoveryEvent
	notify  chan struct{}
	out     chan types.DiscoveryEvent
}

func newEventQueue(buffer int) *eventQueue {
	return &eventQueue{
		notify: make(chan struct{}, 1),
		out:    make(chan types.DiscoveryEvent, buffer),
	}
}

func (q *eventQueue) push(ev types.DiscoveryEvent) {
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *eventQueue) run(ctx context.Context) {
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, ev := range batch {
			select {
			case q.out <- ev:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return
		}
	}
}
