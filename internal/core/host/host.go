// Package host 构建节点使用的 libp2p Host
//
// Host 提供监听、建立和接受经过认证、多路复用的连接的能力：
//   - 传输: TCP 与 QUIC-v1
//   - 安全: Noise（QUIC 自带 TLS 1.3）
//   - 多路复用: Yamux
//   - 连接管理: 低/高水位裁剪
//
// Host 创建时不监听任何地址，监听由加入控制器在启动阶段完成。
package host

import (
	"fmt"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/p2p/muxer/yamux"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	libp2pquic "github.com/libp2p/go-libp2p/p2p/transport/quic"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	ma "github.com/multiformats/go-multiaddr"

	hive "github.com/hivemind/go-hive"
	"github.com/hivemind/go-hive/config"
	"github.com/hivemind/go-hive/internal/core/identity"
	"github.com/hivemind/go-hive/internal/util/logger"
)

var log = logger.Logger("host")

// New 创建 libp2p Host
//
// extra 追加在默认选项之后，可用于挂接带宽统计等。
func New(cfg *config.Config, id *identity.Identity, extra ...libp2p.Option) (host.Host, error) {
	cm, err := connmgr.NewConnManager(
		cfg.Transport.ConnMgrLowWater,
		cfg.Transport.ConnMgrHighWater,
		connmgr.WithGracePeriod(cfg.Transport.ConnMgrGracePeriod.Duration()),
	)
	if err != nil {
		return nil, fmt.Errorf("create conn manager: %w", err)
	}

	agent := cfg.Identify.AgentVersion
	if agent == "" {
		agent = hive.AgentVersion()
	}

	opts := []libp2p.Option{
		libp2p.Identity(id.PrivKey()),
		libp2p.NoListenAddrs,
		// 关闭 SO_REUSEPORT，端口被占用时监听直接失败
		libp2p.Transport(tcp.NewTCPTransport, tcp.DisableReuseport()),
		libp2p.Transport(libp2pquic.NewTransport),
		libp2p.Security(noise.ID, noise.New),
		libp2p.Muxer(yamux.ID, yamux.DefaultTransport),
		libp2p.ProtocolVersion(cfg.Identify.ProtocolVersion),
		libp2p.UserAgent(agent),
		libp2p.ConnectionManager(cm),
		libp2p.DisableRelay(),
	}
	h, err := libp2p.New(append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("create libp2p host: %w", err)
	}

	log.Info("Host 已创建",
		"peer", h.ID(),
		"protocolVersion", cfg.Identify.ProtocolVersion,
		"agent", agent)
	return h, nil
}

// Listen 在给定地址上开始监听
//
// 任何一个地址监听失败都返回错误，调用方应将其视为配置错误。
func Listen(n network.Network, addrs []ma.Multiaddr) error {
	for _, addr := range addrs {
		if err := n.Listen(addr); err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		log.Debug("开始监听", "addr", addr)
	}
	return nil
}
