package telemetry

import "go.uber.org/fx"

// ProvideGenerator 提供默认的模拟读数生成器
func ProvideGenerator() Generator {
	return NewGridGenerator()
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module(Name,
		fx.Provide(ProvideGenerator),
	)
}

// 模块元信息常量
const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "telemetry"
	// Description 模块描述
	Description = "遥测模块，产生模拟电网读数"
)
