package config

// IdentityConfig 身份配置
type IdentityConfig struct {
	// KeyFile 私钥文件路径
	// 为空时每次启动在内存中生成临时 Ed25519 密钥，节点身份随进程结束而失效
	KeyFile string `json:"key_file"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	return nil
}
