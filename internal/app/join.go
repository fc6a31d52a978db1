package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/hivemind/go-hive/config"
	"github.com/hivemind/go-hive/internal/core/host"
	"github.com/hivemind/go-hive/internal/util/addrutil"
	"github.com/hivemind/go-hive/pkg/types"
)

// ============================================================================
//                              启动参数
// ============================================================================

// ParseArgs 解析进程位置参数
//
// 没有参数为引导模式；一个 multiaddr 参数为跟随模式。
func ParseArgs(args []string) (types.Mode, ma.Multiaddr, error) {
	switch len(args) {
	case 0:
		return types.ModeBootstrap, nil, nil
	case 1:
		addr, err := ma.NewMultiaddr(strings.TrimSpace(args[0]))
		if err != nil {
			return 0, nil, fmt.Errorf("%w %q: %w", ErrInvalidPeerAddr, args[0], err)
		}
		return types.ModeFollower, addr, nil
	default:
		return 0, nil, fmt.Errorf("%w (got %d)", ErrTooManyArgs, len(args))
	}
}

// ============================================================================
//                              加入控制器
// ============================================================================

// Dialer 跟随模式使用的拨号器
type Dialer interface {
	Dial(ctx context.Context, addr ma.Multiaddr) (peer.ID, error)
}

var _ Dialer = (*host.Dialer)(nil)

// JoinController 决定节点以引导还是跟随身份加入网络
//
// 两种模式都在配置的地址上监听；跟随模式随后向给定地址拨号。
// 拨号失败只记录日志，节点仍保持监听，可被其他节点发现。
type JoinController struct {
	network network.Network
	dialer  Dialer
	addrs   []ma.Multiaddr

	mode   types.Mode
	target ma.Multiaddr

	retries int
	backoff time.Duration
	clock   clock.Clock

	attempts atomic.Int32
}

// NewJoinController 创建加入控制器
func NewJoinController(n network.Network, d Dialer, cfg config.TransportConfig, mode types.Mode, target ma.Multiaddr) (*JoinController, error) {
	if mode == types.ModeFollower && target == nil {
		return nil, fmt.Errorf("%w: follower mode without address", ErrInvalidPeerAddr)
	}
	addrs, err := cfg.ListenAddrs()
	if err != nil {
		return nil, err
	}
	return &JoinController{
		network: n,
		dialer:  d,
		addrs:   addrs,
		mode:    mode,
		target:  target,
		retries: cfg.DialRetries,
		backoff: cfg.DialBackoff.Duration(),
		clock:   clock.New(),
	}, nil
}

// Mode 加入模式
func (j *JoinController) Mode() types.Mode {
	return j.mode
}

// DialAttempts 已发起的拨号次数
func (j *JoinController) DialAttempts() int {
	return int(j.attempts.Load())
}

// Start 开始监听，跟随模式再向目标拨号
//
// 只有监听失败会返回错误；拨号结果通过日志报告。
func (j *JoinController) Start(ctx context.Context) error {
	if err := host.Listen(j.network, j.addrs); err != nil {
		return fmt.Errorf("%w: %w", ErrListen, err)
	}

	j.logShareable()

	if j.mode == types.ModeBootstrap {
		log.Info("作为引导节点运行", "listen", j.network.ListenAddresses())
		return nil
	}

	log.Info("作为跟随节点运行", "dial", j.target)
	j.dial(ctx)
	return nil
}

// logShareable 输出其他节点加入时可使用的完整地址
func (j *JoinController) logShareable() {
	addrs, err := j.network.InterfaceListenAddresses()
	if err != nil {
		log.Debug("获取网卡监听地址失败", "err", err)
		addrs = j.network.ListenAddresses()
	}
	for _, a := range addrutil.ShareableAddrs(j.network.LocalPeer(), addrs) {
		log.Info("本节点地址", "addr", a)
	}
}

func (j *JoinController) dial(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		j.attempts.Add(1)
		id, err := j.dialer.Dial(ctx, j.target)
		if err == nil {
			log.Info("已拨号", "addr", j.target, "peer", id)
			return
		}
		log.Warn("拨号失败", "addr", j.target, "attempt", attempt+1, "err", err)

		if attempt >= j.retries {
			return
		}
		select {
		case <-j.clock.After(j.backoff):
		case <-ctx.Done():
			return
		}
	}
}
