package swarm

import (
	"context"

	"github.com/libp2p/go-libp2p/core/host"
	"go.uber.org/fx"

	"github.com/hivemind/go-hive/internal/core/messaging/gossipsub"
	"github.com/hivemind/go-hive/internal/core/metrics"
	"github.com/hivemind/go-hive/internal/core/protocol/system/identify"
	"github.com/hivemind/go-hive/internal/discovery/dht"
)

// Params 模块依赖
type Params struct {
	fx.In

	Host      host.Host
	Discovery *dht.Discovery
	Identify  *identify.Identification
	Gossip    *gossipsub.Gossip
	Metrics   *metrics.Metrics `optional:"true"`
}

// NewFromParams 从 fx 依赖创建 Swarm
func NewFromParams(p Params) (*Swarm, error) {
	return New(Components{
		Host:      p.Host,
		Discovery: p.Discovery,
		Identify:  p.Identify,
		Gossip:    p.Gossip,
		Metrics:   p.Metrics,
	})
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module(Name,
		fx.Provide(NewFromParams),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In
	LC    fx.Lifecycle
	Swarm *Swarm
}

// registerLifecycle Swarm 创建即开始汇集，这里只负责停止
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return input.Swarm.Close()
		},
	})
}

// 模块元信息常量
const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "swarm"
	// Description 模块描述
	Description = "组合模块，把连接通知分发给各组件并汇集为统一事件流"
)
