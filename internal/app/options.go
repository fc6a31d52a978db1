package app

import (
	"github.com/benbjohnson/clock"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/hivemind/go-hive/config"
	"github.com/hivemind/go-hive/internal/telemetry"
	"github.com/hivemind/go-hive/pkg/types"
)

// BootstrapOption Bootstrap 配置选项
type BootstrapOption func(*Bootstrap)

// WithConfig 设置配置
func WithConfig(cfg *config.Config) BootstrapOption {
	return func(b *Bootstrap) {
		b.config = cfg
	}
}

// WithJoin 设置加入模式与跟随模式的拨号目标
func WithJoin(mode types.Mode, target ma.Multiaddr) BootstrapOption {
	return func(b *Bootstrap) {
		b.mode = mode
		b.target = target
	}
}

// WithGenerator 替换遥测读数来源
func WithGenerator(g telemetry.Generator) BootstrapOption {
	return func(b *Bootstrap) {
		b.generator = g
	}
}

// WithClock 替换事件循环使用的时钟
func WithClock(c clock.Clock) BootstrapOption {
	return func(b *Bootstrap) {
		b.clock = c
	}
}

// WithFxLogger 设置 fx 生命周期事件的日志器，默认不输出
func WithFxLogger(l *zap.Logger) BootstrapOption {
	return func(b *Bootstrap) {
		b.fxLogger = l
	}
}
