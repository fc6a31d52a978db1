package config

import (
	"fmt"
	"strings"
)

// LogConfig 日志配置
//
// 子系统级别仍由 HIVE_LOG_LEVEL 控制，这里只处理输出目标和 libp2p 内部日志。
type LogConfig struct {
	// File 日志文件路径，为空时输出到 stderr
	File string `json:"file,omitempty"`

	// Libp2pLevel go-libp2p 内部组件的日志级别
	Libp2pLevel string `json:"libp2p_level"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Libp2pLevel: "error",
	}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Libp2pLevel) {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
		return nil
	default:
		return fmt.Errorf("invalid libp2p_level %q", c.Libp2pLevel)
	}
}
