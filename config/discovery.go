package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
)

// DiscoveryConfig DHT 发现配置
type DiscoveryConfig struct {
	// ProtocolPrefix DHT 协议前缀，最终协议为 <prefix>/kad/1.0.0
	ProtocolPrefix string `json:"protocol_prefix"`

	// BucketSize 每个 K 桶的容量
	BucketSize int `json:"bucket_size"`

	// Concurrency 迭代查询的并行度（alpha）
	Concurrency int `json:"concurrency"`

	// RefreshInterval 周期性自查询的间隔
	RefreshInterval Duration `json:"refresh_interval"`

	// QueryTimeout 单次查询超时
	QueryTimeout Duration `json:"query_timeout"`

	// MaxRecords 节点提示簿的容量上限
	MaxRecords int `json:"max_records"`

	// RecordTTL 提示记录的过期时间
	RecordTTL Duration `json:"record_ttl"`

	// BootstrapPeers 种子节点，格式为带 /p2p 组件的 multiaddr
	BootstrapPeers []string `json:"bootstrap_peers,omitempty"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		ProtocolPrefix:  "/hive",
		BucketSize:      20,
		Concurrency:     3,
		RefreshInterval: Duration(5 * time.Minute),
		QueryTimeout:    Duration(30 * time.Second),
		MaxRecords:      1024,
		RecordTTL:       Duration(time.Hour),
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	if c.ProtocolPrefix == "" || c.ProtocolPrefix[0] != '/' {
		return errors.New("protocol_prefix must start with '/'")
	}
	if c.BucketSize <= 0 {
		return errors.New("bucket_size must be positive")
	}
	if c.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval: %w", ErrInvalidDuration)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query_timeout: %w", ErrInvalidDuration)
	}
	if c.MaxRecords <= 0 {
		return errors.New("max_records must be positive")
	}
	if c.RecordTTL <= 0 {
		return fmt.Errorf("record_ttl: %w", ErrInvalidDuration)
	}
	_, err := c.BootstrapAddrInfos()
	return err
}

// BootstrapAddrInfos 解析种子节点列表
func (c DiscoveryConfig) BootstrapAddrInfos() ([]peer.AddrInfo, error) {
	infos := make([]peer.AddrInfo, 0, len(c.BootstrapPeers))
	for _, s := range c.BootstrapPeers {
		info, err := peer.AddrInfoFromString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bootstrap peer %q: %w", s, err)
		}
		infos = append(infos, *info)
	}
	return infos, nil
}
