package host

import (
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/hivemind/go-hive/config"
	"github.com/hivemind/go-hive/internal/core/identity"
)

// TestConfig 返回测试用配置：只监听 127.0.0.1 的临时端口
func TestConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Transport.ListenHost = "127.0.0.1"
	cfg.Transport.TCPPort = 0
	cfg.Transport.QUICPort = 0
	cfg.Transport.DialTimeout = config.Duration(5 * time.Second)
	return cfg
}

// NewTestHost 创建测试用 Host，测试结束时自动关闭
func NewTestHost(t testing.TB, listen bool) host.Host {
	t.Helper()
	cfg := TestConfig()
	id, err := identity.Generate()
	if err != nil {
		t.Fatal(err)
	}

	h, err := New(cfg, id)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = h.Close() })

	if listen {
		addrs, err := cfg.Transport.ListenAddrs()
		if err != nil {
			t.Fatal(err)
		}
		if err := Listen(h.Network(), addrs); err != nil {
			t.Fatal(err)
		}
	}
	return h
}

// TCPAddr 返回 Host 的 TCP 监听地址（不含 /p2p）
func TCPAddr(t testing.TB, h host.Host) ma.Multiaddr {
	t.Helper()
	for _, a := range h.Network().ListenAddresses() {
		if _, err := a.ValueForProtocol(ma.P_TCP); err == nil {
			return a
		}
	}
	t.Fatal("host has no tcp listen address")
	return nil
}

// P2PAddr 返回带 /p2p 组件的 TCP 地址
func P2PAddr(t testing.TB, h host.Host) ma.Multiaddr {
	t.Helper()
	addrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{ID: h.ID(), Addrs: []ma.Multiaddr{TCPAddr(t, h)}})
	if err != nil {
		t.Fatal(err)
	}
	return addrs[0]
}
