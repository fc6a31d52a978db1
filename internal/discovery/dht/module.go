package dht

import (
	"context"

	"github.com/libp2p/go-libp2p/core/host"
	"go.uber.org/fx"

	"github.com/hivemind/go-hive/config"
)

// Params 模块依赖
type Params struct {
	fx.In

	Host       host.Host
	UnifiedCfg *config.Config `optional:"true"`
}

// NewFromParams 从 fx 依赖创建发现组件
func NewFromParams(p Params) (*Discovery, error) {
	return New(p.Host, ConfigFromUnified(p.UnifiedCfg))
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
	LC        fx.Lifecycle
	Discovery *Discovery
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Discovery.Bootstrap(ctx)
		},
		OnStop: func(_ context.Context) error {
			return input.Discovery.Close()
		},
	})
}

// 模块元信息常量
const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "discovery_dht"
	// Description 模块描述
	Description = "Kademlia 发现模块，维护按 XOR 距离分桶的路由表"
)
