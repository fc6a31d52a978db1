package config

// IdentifyConfig 身份识别协议配置
type IdentifyConfig struct {
	// ProtocolVersion 握手中交换的协议名与版本
	// 仅用于日志与兼容性提示，从不用于自动拒绝连接
	ProtocolVersion string `json:"protocol_version"`

	// AgentVersion 代理版本串，为空时使用 go-hive/<版本>
	AgentVersion string `json:"agent_version,omitempty"`

	// DisconnectIncompatible 协议版本不匹配时是否由事件循环断开该节点
	DisconnectIncompatible bool `json:"disconnect_incompatible"`
}

// DefaultIdentifyConfig 返回默认识别配置
func DefaultIdentifyConfig() IdentifyConfig {
	return IdentifyConfig{
		ProtocolVersion: "hive/1.0.0",
	}
}

// Validate 验证识别配置
func (c IdentifyConfig) Validate() error {
	if c.ProtocolVersion == "" {
		return ErrInvalidProtocolVersion
	}
	return nil
}
