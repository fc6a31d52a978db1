package identity

import (
	"go.uber.org/fx"

	"github.com/hivemind/go-hive/config"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config *config.Config
}

// ProvideIdentity 按配置加载身份
func ProvideIdentity(input ModuleInput) (*Identity, error) {
	return Load(input.Config.Identity)
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module(Name,
		fx.Provide(ProvideIdentity),
	)
}

// 模块元信息常量
const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "identity"
	// Description 模块描述
	Description = "节点身份模块，提供 Ed25519 密钥的生成、加载与持久化"
)
