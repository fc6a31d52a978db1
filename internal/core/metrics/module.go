package metrics

import (
	libp2pmetrics "github.com/libp2p/go-libp2p/core/metrics"
	"go.uber.org/fx"
)

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Metrics   *Metrics
	Bandwidth *libp2pmetrics.BandwidthCounter
}

// ProvideMetrics 提供节点指标与带宽计数器
func ProvideMetrics() ModuleOutput {
	m := New(DefaultNamespace)
	return ModuleOutput{Metrics: m, Bandwidth: m.Bandwidth()}
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module(Name,
		fx.Provide(ProvideMetrics),
	)
}

// 模块元信息常量
const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "metrics"
	// Description 模块描述
	Description = "指标模块，以 Prometheus 格式导出事件、识别、遥测与带宽统计"
)
