package dht

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/hivemind/go-hive/config"
)

// Config 发现组件配置
type Config struct {
	// ProtocolPrefix 协议前缀
	ProtocolPrefix string

	// BucketSize K 桶大小
	BucketSize int

	// Concurrency 迭代查询并行度（alpha）
	Concurrency int

	// RefreshInterval 周期刷新间隔
	RefreshInterval time.Duration

	// QueryTimeout 单次查询超时
	QueryTimeout time.Duration

	// MaxRecords 提示簿容量上限
	MaxRecords int

	// RecordTTL 提示记录过期时间
	RecordTTL time.Duration

	// BootstrapPeers 种子节点
	BootstrapPeers []peer.AddrInfo
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建发现配置
func ConfigFromUnified(cfg *config.Config) *Config {
	dc := config.DefaultDiscoveryConfig()
	if cfg != nil {
		dc = cfg.Discovery
	}
	// Validate 已检查过种子格式，这里忽略错误
	seeds, _ := dc.BootstrapAddrInfos()
	return &Config{
		ProtocolPrefix:  dc.ProtocolPrefix,
		BucketSize:      dc.BucketSize,
		Concurrency:     dc.Concurrency,
		RefreshInterval: dc.RefreshInterval.Duration(),
		QueryTimeout:    dc.QueryTimeout.Duration(),
		MaxRecords:      dc.MaxRecords,
		RecordTTL:       dc.RecordTTL.Duration(),
		BootstrapPeers:  seeds,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.ProtocolPrefix == "" || c.BucketSize <= 0 || c.Concurrency <= 0 ||
		c.RefreshInterval <= 0 || c.QueryTimeout <= 0 || c.MaxRecords <= 0 || c.RecordTTL <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
