package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MessagingConfig GossipSub 消息传播配置
type MessagingConfig struct {
	// Topic 遥测频道名，所有节点订阅同一主题
	Topic string `json:"topic"`

	// HeartbeatInterval 网格维护心跳间隔
	HeartbeatInterval Duration `json:"heartbeat_interval"`

	// D 目标网格度数
	D int `json:"d"`

	// Dlo 网格度数下限
	Dlo int `json:"dlo"`

	// Dhi 网格度数上限
	Dhi int `json:"dhi"`

	// SeenTTL 去重窗口
	SeenTTL Duration `json:"seen_ttl"`

	// MaxMessageSize 单条消息的最大字节数
	MaxMessageSize int `json:"max_message_size"`

	// SignMessages 是否签名并严格校验签名
	SignMessages bool `json:"sign_messages"`
}

// DefaultMessagingConfig 返回默认消息配置
func DefaultMessagingConfig() MessagingConfig {
	return MessagingConfig{
		Topic:             "hive",
		HeartbeatInterval: Duration(10 * time.Second),
		D:                 6,
		Dlo:               4,
		Dhi:               12,
		SeenTTL:           Duration(2 * time.Minute),
		MaxMessageSize:    64 * 1024,
		SignMessages:      true,
	}
}

// Validate 验证消息配置
func (c MessagingConfig) Validate() error {
	if strings.TrimSpace(c.Topic) == "" {
		return ErrInvalidTopic
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval: %w", ErrInvalidDuration)
	}
	if c.Dlo <= 0 || c.Dlo > c.D || c.D > c.Dhi {
		return fmt.Errorf("%w (got Dlo=%d D=%d Dhi=%d)", ErrInvalidMeshDegree, c.Dlo, c.D, c.Dhi)
	}
	if c.SeenTTL <= 0 {
		return fmt.Errorf("seen_ttl: %w", ErrInvalidDuration)
	}
	if c.MaxMessageSize <= 0 {
		return errors.New("max_message_size must be positive")
	}
	return nil
}
