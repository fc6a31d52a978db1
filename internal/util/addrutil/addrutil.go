// Package addrutil 提供 multiaddr 分类与展示工具
package addrutil

import (
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

// ============================================================================
//                              地址分类
// ============================================================================

// 地址范围
const (
	ScopeLoopback    = "loopback"
	ScopePrivate     = "private"
	ScopePublic      = "public"
	ScopeUnspecified = "unspecified"
	ScopeDNS         = "dns"
	ScopeUnknown     = "unknown"
)

// Scope 返回地址的可达范围
func Scope(addr ma.Multiaddr) string {
	if addr == nil {
		return ScopeUnknown
	}
	if first, _ := ma.SplitFirst(addr); first != nil {
		switch first.Protocol().Code {
		case ma.P_DNS, ma.P_DNS4, ma.P_DNS6, ma.P_DNSADDR:
			return ScopeDNS
		}
	}

	ip, err := manet.ToIP(addr)
	if err != nil {
		return ScopeUnknown
	}
	switch {
	case ip.IsUnspecified():
		return ScopeUnspecified
	case ip.IsLoopback():
		return ScopeLoopback
	case ip.IsPrivate() || ip.IsLinkLocalUnicast():
		return ScopePrivate
	case ip.IsGlobalUnicast():
		return ScopePublic
	default:
		return ScopeUnknown
	}
}

// Dialable 过滤掉其他节点无法拨号的地址（未指定地址与无法识别的地址）
func Dialable(addrs []ma.Multiaddr) []ma.Multiaddr {
	out := make([]ma.Multiaddr, 0, len(addrs))
	for _, a := range addrs {
		switch Scope(a) {
		case ScopeUnspecified, ScopeUnknown:
			continue
		}
		out = append(out, a)
	}
	return out
}

// ShareableAddrs 返回可交给跟随节点使用的完整地址（带 /p2p 组件）
//
// 公网地址排在前，回环地址排在最后。
func ShareableAddrs(id peer.ID, addrs []ma.Multiaddr) []string {
	dialable := Dialable(addrs)
	ordered := make([]ma.Multiaddr, 0, len(dialable))
	for _, scope := range []string{ScopePublic, ScopeDNS, ScopePrivate, ScopeLoopback} {
		for _, a := range dialable {
			if Scope(a) == scope {
				ordered = append(ordered, a)
			}
		}
	}

	full, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{ID: id, Addrs: ordered})
	if err != nil {
		return nil
	}
	out := make([]string, len(full))
	for i, a := range full {
		out[i] = a.String()
	}
	return out
}
