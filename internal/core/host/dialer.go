package host

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/sec"
	ma "github.com/multiformats/go-multiaddr"
)

// ErrDialSelf 拨号地址指向本节点
var ErrDialSelf = errors.New("refusing to dial self")

// Dialer 按 multiaddr 拨号
//
// 地址可以带 /p2p/<id> 组件，也可以只是一个传输地址
// （如 /ip4/127.0.0.1/tcp/9000）。后者在安全握手中才能得知对端身份。
type Dialer struct {
	host    host.Host
	timeout time.Duration
}

// NewDialer 创建拨号器
func NewDialer(h host.Host, timeout time.Duration) *Dialer {
	return &Dialer{host: h, timeout: timeout}
}

// Dial 拨号给定地址，返回对端身份
func (d *Dialer) Dial(ctx context.Context, addr ma.Multiaddr) (peer.ID, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		if !errors.Is(err, peer.ErrInvalidAddr) {
			return "", err
		}
		// 没有 /p2p 组件，先通过握手得知对端身份
		id, err := d.resolvePeerID(ctx, addr)
		if err != nil {
			return "", err
		}
		info = &peer.AddrInfo{ID: id, Addrs: []ma.Multiaddr{addr}}
	}

	if info.ID == d.host.ID() {
		return "", ErrDialSelf
	}
	if err := d.host.Connect(ctx, *info); err != nil {
		return info.ID, err
	}
	return info.ID, nil
}

// resolvePeerID 以一个随机身份作为期望对端拨号，
// 从安全层返回的身份不匹配错误中取出对端真实身份。
// 之后的 Connect 会再握手一次，裸地址拨号因此有两次网络往返。
func (d *Dialer) resolvePeerID(ctx context.Context, addr ma.Multiaddr) (peer.ID, error) {
	_, pub, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return "", err
	}
	placeholder, err := peer.IDFromPublicKey(pub)
	if err != nil {
		return "", err
	}

	ps := d.host.Peerstore()
	defer ps.RemovePeer(placeholder)
	defer ps.ClearAddrs(placeholder)

	err = d.host.Connect(ctx, peer.AddrInfo{ID: placeholder, Addrs: []ma.Multiaddr{addr}})
	if err == nil {
		return "", fmt.Errorf("unexpected handshake success with placeholder identity at %s", addr)
	}

	var mismatch sec.ErrPeerIDMismatch
	if errors.As(err, &mismatch) {
		log.Debug("通过握手获得对端身份", "addr", addr, "peer", mismatch.Actual)
		return mismatch.Actual, nil
	}
	return "", err
}
