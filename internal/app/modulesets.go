// Package app 组装节点并运行事件循环
//
// app 包负责：
//   - fx 模块组装与生命周期
//   - 加入控制器：决定引导或跟随模式并监听、拨号
//   - 事件循环：消费统一事件流并周期发布遥测
package app

import (
	"go.uber.org/fx"

	"github.com/hivemind/go-hive/internal/core/host"
	"github.com/hivemind/go-hive/internal/core/identity"
	"github.com/hivemind/go-hive/internal/core/messaging/gossipsub"
	"github.com/hivemind/go-hive/internal/core/metrics"
	"github.com/hivemind/go-hive/internal/core/protocol/system/identify"
	"github.com/hivemind/go-hive/internal/core/swarm"
	"github.com/hivemind/go-hive/internal/debug/introspect"
	"github.com/hivemind/go-hive/internal/discovery/dht"
	"github.com/hivemind/go-hive/internal/telemetry"
)

// ============================================================================
//                              模块集合
// ============================================================================

// FoundationModules 基础层：身份与指标
func FoundationModules() fx.Option {
	return fx.Options(
		identity.Module(),
		metrics.Module(),
	)
}

// TransportModules 传输层：Host 与拨号器
func TransportModules() fx.Option {
	return fx.Options(
		host.Module(),
	)
}

// BehaviourModules 组件层：发现、身份识别、主题消息
func BehaviourModules() fx.Option {
	return fx.Options(
		dht.Module(),
		identify.Module(),
		gossipsub.Module(),
	)
}

// ComposerModules 组合层：统一事件流与遥测来源
func ComposerModules() fx.Option {
	return fx.Options(
		swarm.Module(),
		telemetry.Module(),
	)
}

// DiagnosticsModules 诊断层：本地状态服务（按配置启用）
func DiagnosticsModules() fx.Option {
	return fx.Options(
		introspect.Module(),
	)
}
