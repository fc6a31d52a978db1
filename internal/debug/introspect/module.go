package introspect

import (
	"context"

	"go.uber.org/fx"

	"github.com/hivemind/go-hive/config"
	"github.com/hivemind/go-hive/internal/core/metrics"
	"github.com/hivemind/go-hive/internal/core/swarm"
)

// Module 返回状态服务 Fx 模块
func Module() fx.Option {
	return fx.Module(Name,
		fx.Provide(NewFromParams),
		fx.Invoke(registerLifecycle),
	)
}

// Params 状态服务依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config   `optional:"true"`
	Swarm      *swarm.Swarm     `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
}

// Output 状态服务输出
type Output struct {
	fx.Out

	Server *Server
}

// ConfigFromUnified 从统一配置创建服务配置，未启用时返回 nil
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil || !cfg.Diagnostics.EnableIntrospect {
		return nil
	}
	addr := cfg.Diagnostics.IntrospectAddr
	if addr == "" {
		addr = DefaultAddr
	}
	return &Config{
		Addr: addr,
	}
}

// NewFromParams 从参数创建状态服务，未启用时提供 nil
func NewFromParams(params Params) Output {
	cfg := ConfigFromUnified(params.UnifiedCfg)
	if cfg == nil {
		return Output{}
	}

	if params.Swarm != nil {
		cfg.Node = params.Swarm
	}
	if params.Metrics != nil {
		cfg.Metrics = params.Metrics.Handler()
		cfg.Bandwidth = params.Metrics.Bandwidth()
	}

	return Output{
		Server: New(*cfg),
	}
}

func registerLifecycle(lc fx.Lifecycle, server *Server) {
	if server == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return server.Stop()
		},
	})
}

// 模块元信息常量
const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "introspect"
	// Description 模块描述
	Description = "本地状态 HTTP 服务，提供欢迎页、健康检查、节点与对端视图、指标和 pprof"
)
