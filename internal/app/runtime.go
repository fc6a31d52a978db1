package app

import (
	"context"

	"github.com/hivemind/go-hive/internal/core/metrics"
	"github.com/hivemind/go-hive/internal/core/swarm"
	"github.com/hivemind/go-hive/internal/debug/introspect"
)

// Runtime 一个已组装并启动的节点
//
// Stop 会触发 fx OnStop，各模块按注册的逆序关闭。
type Runtime struct {
	Swarm   *swarm.Swarm
	Join    *JoinController
	Loop    *Loop
	Metrics *metrics.Metrics

	// Introspect 未启用时为 nil
	Introspect *introspect.Server

	stop func(ctx context.Context) error
}

// Stop 停止节点
func (r *Runtime) Stop(ctx context.Context) error {
	if r.stop == nil {
		return nil
	}
	return r.stop(ctx)
}
