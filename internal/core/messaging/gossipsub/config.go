package gossipsub

import (
	"fmt"
	"time"

	"github.com/hivemind/go-hive/config"
)

// ============================================================================
//                              GossipSub 配置
// ============================================================================

// Config GossipSub 组件配置
type Config struct {
	// Topic 启动时订阅的主题，为空则不自动订阅
	Topic string

	// ==================== Mesh 参数 ====================

	// D 目标 mesh 大小
	D int

	// Dlo 最小 mesh 大小，低于此值会触发 GRAFT
	Dlo int

	// Dhi 最大 mesh 大小，超过此值会触发 PRUNE
	Dhi int

	// ==================== 时间参数 ====================

	// HeartbeatInterval 心跳间隔
	HeartbeatInterval time.Duration

	// SeenTTL 已见消息缓存时间
	SeenTTL time.Duration

	// ==================== 消息参数 ====================

	// MaxMessageSize 最大消息长度
	MaxMessageSize int

	// SignMessages 是否签名消息并要求入站消息带签名
	SignMessages bool

	// EventBuffer 事件通道缓冲
	EventBuffer int
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建 GossipSub 配置
func ConfigFromUnified(cfg *config.Config) *Config {
	mc := config.DefaultMessagingConfig()
	if cfg != nil {
		mc = cfg.Messaging
	}
	return &Config{
		Topic:             mc.Topic,
		D:                 mc.D,
		Dlo:               mc.Dlo,
		Dhi:               mc.Dhi,
		HeartbeatInterval: mc.HeartbeatInterval.Duration(),
		SeenTTL:           mc.SeenTTL.Duration(),
		MaxMessageSize:    mc.MaxMessageSize,
		SignMessages:      mc.SignMessages,
		EventBuffer:       256,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Dlo <= 0 || c.Dlo > c.D || c.D > c.Dhi {
		return fmt.Errorf("%w: Dlo=%d D=%d Dhi=%d", ErrInvalidConfig, c.Dlo, c.D, c.Dhi)
	}
	if c.HeartbeatInterval <= 0 || c.SeenTTL <= 0 {
		return fmt.Errorf("%w: non-positive interval", ErrInvalidConfig)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: max message size %d", ErrInvalidConfig, c.MaxMessageSize)
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("%w: event buffer %d", ErrInvalidConfig, c.EventBuffer)
	}
	return nil
}
