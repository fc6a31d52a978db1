package gossipsub

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

// NewFromParams 从 fx 依赖创建主题消息组件
func NewFromParams(p Params) (*Gossip, error) {
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
	LC     fx.Lifecycle
	Gossip *Gossip
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if topic := input.Gossip.config.Topic; topic != "" {
				return input.Gossip.Subscribe(topic)
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			return input.Gossip.Close()
		},
	})
}

// 模块元信息常量
const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "gossipsub"
	// Description 模块描述
	Description = "GossipSub 主题消息模块，以内容哈希去重并上报主题成员变化"
)
