// Package logger 提供 hive 的统一日志系统
//
// 基于标准库 log/slog，每个子系统一个 Logger，级别可按子系统配置：
//
//	package dht
//
//	import "github.com/hivemind/go-hive/internal/util/logger"
//
//	var log = logger.Logger("discovery")
//
//	func foo() {
//	    log.Info("节点可路由", "peer", id)
//	}
//
// 环境变量:
//
//	HIVE_LOG_LEVEL=discovery=debug,info   # discovery 为 debug，其余为 info
//	HIVE_LOG_FORMAT=json                  # JSON 输出
//
// go-libp2p 内部组件使用 ipfs/go-log，由 SetLibp2pLevel 统一调整。
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	golog "github.com/ipfs/go-log/v2"
)

var (
	loggers  sync.Map // map[string]*slog.Logger
	handlers sync.Map // map[string]*subsystemHandler
)

// Logger 获取指定子系统的 Logger
//
// 同一子系统多次调用返回同一实例。
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	cfg := ConfigFromEnv()
	h := newHandler(subsystem, cfg.LevelForSubsystem(subsystem), cfg)

	actual, loaded := loggers.LoadOrStore(subsystem, slog.New(h))
	if !loaded {
		handlers.Store(subsystem, h)
	}
	return actual.(*slog.Logger)
}

// SetLevel 在运行时调整子系统的日志级别
func SetLevel(subsystem string, level slog.Level) {
	if h, ok := handlers.Load(subsystem); ok {
		h.(*subsystemHandler).level.Set(level)
	}
}

// SetGlobalLevel 调整所有已创建子系统的日志级别
func SetGlobalLevel(level slog.Level) {
	handlers.Range(func(_, value any) bool {
		value.(*subsystemHandler).level.Set(level)
		return true
	})
}

// SetOutput 设置全局日志输出目标，对已创建的 Logger 同样生效
func SetOutput(w io.Writer) {
	outputMu.Lock()
	output = w
	outputMu.Unlock()
}

// SetLibp2pLevel 设置 go-libp2p 内部日志（dht、pubsub、swarm 等）的级别
func SetLibp2pLevel(level string) error {
	lvl, err := golog.LevelFromString(level)
	if err != nil {
		return fmt.Errorf("invalid libp2p log level %q: %w", level, err)
	}
	golog.SetAllLoggers(lvl)
	return nil
}

// Discard 返回一个丢弃所有日志的 Logger（用于测试）
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}
