package identify

import (
	"go.uber.org/fx"

	"github.com/hivemind/go-hive/config"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Config *config.Config
}

// ProvideIdentification 提供身份识别组件
func ProvideIdentification(input ModuleInput) *Identification {
	return New(input.Config.Identify.ProtocolVersion)
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module(Name,
		fx.Provide(ProvideIdentification),
	)
}

// 模块元信息常量
const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "identify"
	// Description 模块描述
	Description = "身份识别模块，跟踪每条连接的识别握手并产生恰好一个结果事件"
)
