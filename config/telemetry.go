package config

import (
	"fmt"
	"time"
)

// TelemetryConfig 遥测发布配置
type TelemetryConfig struct {
	// Enabled 是否周期性生成并发布遥测读数
	Enabled bool `json:"enabled"`

	// Interval 发布间隔
	Interval Duration `json:"interval"`
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:  true,
		Interval: Duration(5 * time.Second),
	}
}

// Validate 验证遥测配置
func (c TelemetryConfig) Validate() error {
	if c.Enabled && c.Interval <= 0 {
		return fmt.Errorf("interval: %w", ErrInvalidDuration)
	}
	return nil
}
