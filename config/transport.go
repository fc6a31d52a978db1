package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	ma "github.com/multiformats/go-multiaddr"
)

// TransportConfig 传输层配置
//
// 节点固定监听一个流式地址（TCP）和一个数据报地址（QUIC-v1），
// 端口由配置给出而非临时分配，便于其它节点确定性地寻址。
type TransportConfig struct {
	// ListenHost 监听的主机地址，默认 0.0.0.0（所有网卡）
	ListenHost string `json:"listen_host"`

	// TCPPort TCP 监听端口
	TCPPort int `json:"tcp_port"`

	// QUICPort QUIC 监听端口（UDP）
	QUICPort int `json:"quic_port"`

	// DialTimeout 单次拨号超时
	DialTimeout Duration `json:"dial_timeout"`

	// DialRetries 跟随者模式下拨号失败后的额外重试次数
	// 默认 0：启动时只拨号一次
	DialRetries int `json:"dial_retries"`

	// DialBackoff 两次拨号之间的等待时间
	DialBackoff Duration `json:"dial_backoff"`

	// ConnMgrLowWater 连接管理器低水位
	ConnMgrLowWater int `json:"conn_mgr_low_water"`

	// ConnMgrHighWater 连接管理器高水位，超过后裁剪到低水位
	ConnMgrHighWater int `json:"conn_mgr_high_water"`

	// ConnMgrGracePeriod 新连接免于裁剪的宽限期
	ConnMgrGracePeriod Duration `json:"conn_mgr_grace_period"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ListenHost:         "0.0.0.0",
		TCPPort:            9000,
		QUICPort:           9001,
		DialTimeout:        Duration(10 * time.Second),
		DialRetries:        0,
		DialBackoff:        Duration(2 * time.Second),
		ConnMgrLowWater:    100,
		ConnMgrHighWater:   400,
		ConnMgrGracePeriod: Duration(time.Minute),
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if net.ParseIP(c.ListenHost) == nil {
		return fmt.Errorf("%w: %q", ErrInvalidListenHost, c.ListenHost)
	}
	if c.TCPPort < 0 || c.TCPPort > 65535 {
		return fmt.Errorf("tcp %w: %d", ErrInvalidPort, c.TCPPort)
	}
	if c.QUICPort < 0 || c.QUICPort > 65535 {
		return fmt.Errorf("quic %w: %d", ErrInvalidPort, c.QUICPort)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("dial_timeout: %w", ErrInvalidDuration)
	}
	if c.DialRetries < 0 {
		return errors.New("dial_retries must not be negative")
	}
	if c.DialRetries > 0 && c.DialBackoff <= 0 {
		return fmt.Errorf("dial_backoff: %w", ErrInvalidDuration)
	}
	if c.ConnMgrLowWater < 0 || c.ConnMgrHighWater < c.ConnMgrLowWater {
		return errors.New("conn manager watermarks must satisfy 0 <= low <= high")
	}
	return nil
}

// ListenAddrs 返回配置对应的监听 multiaddr 列表
//
// 依次为 TCP 地址和 QUIC-v1 地址。
func (c TransportConfig) ListenAddrs() ([]ma.Multiaddr, error) {
	ipProto := "ip4"
	if ip := net.ParseIP(c.ListenHost); ip != nil && ip.To4() == nil {
		ipProto = "ip6"
	}
	specs := []string{
		fmt.Sprintf("/%s/%s/tcp/%d", ipProto, c.ListenHost, c.TCPPort),
		fmt.Sprintf("/%s/%s/udp/%d/quic-v1", ipProto, c.ListenHost, c.QUICPort),
	}
	addrs := make([]ma.Multiaddr, 0, len(specs))
	for _, s := range specs {
		addr, err := ma.NewMultiaddr(s)
		if err != nil {
			return nil, fmt.Errorf("invalid listen address %q: %w", s, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
