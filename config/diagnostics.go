package config

import (
	"errors"
	"net"
)

// DiagnosticsConfig 本地状态服务配置
type DiagnosticsConfig struct {
	// EnableIntrospect 启用状态服务
	EnableIntrospect bool `json:"enable_introspect"`

	// IntrospectAddr 状态服务监听地址
	IntrospectAddr string `json:"introspect_addr"`
}

// DefaultDiagnosticsConfig 返回默认诊断配置
func DefaultDiagnosticsConfig() DiagnosticsConfig {
	return DiagnosticsConfig{
		EnableIntrospect: false, // 默认禁用
		IntrospectAddr:   "127.0.0.1:8080",
	}
}

// Validate 验证诊断配置
func (c DiagnosticsConfig) Validate() error {
	if !c.EnableIntrospect {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.IntrospectAddr); err != nil {
		return errors.New("introspect_addr must be host:port")
	}
	return nil
}
