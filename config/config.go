// Package config 提供 hive 节点的统一配置
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 并各自提供 DefaultXxxConfig() 与 Validate()。
//
// 配置来源的优先级（由低到高）：
//   - 默认值（NewConfig）
//   - JSON 配置文件（LoadFile）
//   - HIVE_* 环境变量（ApplyEnv）
//   - 命令行参数（由 cmd/hive 应用）
//
// 使用示例：
//
//	cfg, err := config.LoadFile("hive.json")
//	if err != nil {
//	    return err
//	}
//	config.ApplyEnv(cfg, os.Getenv)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config 是 hive 节点的完整配置结构
//
// 配置按照功能模块组织：
//   - Identity: 身份密钥
//   - Transport: 监听地址、拨号与连接管理
//   - Discovery: DHT 路由表
//   - Identify: 身份识别协议
//   - Messaging: GossipSub 消息传播
//   - Telemetry: 遥测发布
//   - Log: 日志输出
//   - Diagnostics: 本地状态服务
type Config struct {
	Identity    IdentityConfig    `json:"identity"`
	Transport   TransportConfig   `json:"transport"`
	Discovery   DiscoveryConfig   `json:"discovery"`
	Identify    IdentifyConfig    `json:"identify"`
	Messaging   MessagingConfig   `json:"messaging"`
	Telemetry   TelemetryConfig   `json:"telemetry"`
	Log         LogConfig         `json:"log"`
	Diagnostics DiagnosticsConfig `json:"diagnostics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Identity:    DefaultIdentityConfig(),
		Transport:   DefaultTransportConfig(),
		Discovery:   DefaultDiscoveryConfig(),
		Identify:    DefaultIdentifyConfig(),
		Messaging:   DefaultMessagingConfig(),
		Telemetry:   DefaultTelemetryConfig(),
		Log:         DefaultLogConfig(),
		Diagnostics: DefaultDiagnosticsConfig(),
	}
}

// Validate 验证配置的有效性
//
// 任何一项子配置无效都视为配置错误，进程应以非零状态退出。
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	validators := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"identity", c.Identity},
		{"transport", c.Transport},
		{"discovery", c.Discovery},
		{"identify", c.Identify},
		{"messaging", c.Messaging},
		{"telemetry", c.Telemetry},
		{"log", c.Log},
		{"diagnostics", c.Diagnostics},
	}
	for _, item := range validators {
		if err := item.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", item.name, err)
		}
	}
	return nil
}

// FromJSON 从 JSON 数据创建配置
//
// 未出现在 JSON 中的字段保持默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的配置文件路径是预期行为
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return FromJSON(data)
}

// ToJSON 将配置序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
