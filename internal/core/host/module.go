package host

import (
	"context"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	libp2pmetrics "github.com/libp2p/go-libp2p/core/metrics"
	"go.uber.org/fx"

	"github.com/hivemind/go-hive/config"
	"github.com/hivemind/go-hive/internal/core/identity"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Config   *config.Config
	Identity *identity.Identity

	// Bandwidth 可选的带宽计数器，由指标模块提供
	Bandwidth *libp2pmetrics.BandwidthCounter `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Host   host.Host
	Dialer *Dialer
}

// ProvideHost 提供 Host 与拨号器
func ProvideHost(input ModuleInput) (ModuleOutput, error) {
	var extra []libp2p.Option
	if input.Bandwidth != nil {
		extra = append(extra, libp2p.BandwidthReporter(input.Bandwidth))
	}
	h, err := New(input.Config, input.Identity, extra...)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{
		Host:   h,
		Dialer: NewDialer(h, input.Config.Transport.DialTimeout.Duration()),
	}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module(Name,
		fx.Provide(ProvideHost),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In
	LC   fx.Lifecycle
	Host host.Host
}

// registerLifecycle Host 在创建时即已就绪，这里只负责关闭
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return input.Host.Close()
		},
	})
}

// 模块元信息常量
const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "host"
	// Description 模块描述
	Description = "传输层模块，基于 go-libp2p 提供 TCP/QUIC 连接、Noise 安全与 Yamux 多路复用"
)
