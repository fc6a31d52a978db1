package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hivemind/go-hive/config"
	"github.com/hivemind/go-hive/internal/core/host"
	"github.com/hivemind/go-hive/internal/core/metrics"
	"github.com/hivemind/go-hive/internal/core/swarm"
	"github.com/hivemind/go-hive/internal/debug/introspect"
	"github.com/hivemind/go-hive/internal/telemetry"
	"github.com/hivemind/go-hive/internal/util/logger"
	"github.com/hivemind/go-hive/pkg/types"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 30 * time.Second
)

// Bootstrap 节点引导程序
//
// Bootstrap 负责：
//   - 校验配置并设置日志
//   - 组装 fx 模块
//   - 创建加入控制器和事件循环
//   - 管理节点生命周期
type Bootstrap struct {
	config    *config.Config
	mode      types.Mode
	target    ma.Multiaddr
	generator telemetry.Generator
	clock     clock.Clock
	fxLogger  *zap.Logger

	fxApp   *fx.App
	logFile *os.File
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts ...BootstrapOption) *Bootstrap {
	b := &Bootstrap{
		config:   config.NewConfig(),
		mode:     types.ModeBootstrap,
		clock:    clock.New(),
		fxLogger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build 构建节点（已启动各模块，但尚未监听）
func (b *Bootstrap) Build() (*Runtime, error) {
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// 日志配置必须在所有模块初始化之前
	if err := b.setupLogging(); err != nil {
		return nil, fmt.Errorf("设置日志失败: %w", err)
	}

	var (
		sw     *swarm.Swarm
		dialer *host.Dialer
		gen    telemetry.Generator
		m      *metrics.Metrics
		server *introspect.Server
	)
	b.fxApp = fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: b.fxLogger}
		}),
		fx.Supply(b.config),
		FoundationModules(),
		TransportModules(),
		BehaviourModules(),
		ComposerModules(),
		DiagnosticsModules(),
		fx.Populate(&sw, &dialer, &gen, &m, &server),
	)
	if err := b.fxApp.Err(); err != nil {
		return nil, multierr.Append(fmt.Errorf("组装模块失败: %w", err), b.closeLogFile())
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := b.fxApp.Start(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("启动应用失败: %w", err), b.closeLogFile())
	}

	join, err := NewJoinController(sw.Host().Network(), dialer, b.config.Transport, b.mode, b.target)
	if err != nil {
		return nil, multierr.Append(err, b.Stop(context.Background()))
	}

	if b.generator != nil {
		gen = b.generator
	}
	loop := NewLoop(sw, sw, gen, LoopConfigFromUnified(b.config),
		WithDisconnector(sw),
		WithLoopMetrics(m),
		WithLoopClock(b.clock),
	)

	log.Info("节点已构建",
		"peer", sw.LocalID(),
		"mode", b.mode,
		"topic", b.config.Messaging.Topic)

	return &Runtime{
		Swarm:      sw,
		Join:       join,
		Loop:       loop,
		Metrics:    m,
		Introspect: server,
		stop:       b.Stop,
	}, nil
}

// Start 构建节点并开始监听，跟随模式随后拨号
func (b *Bootstrap) Start(ctx context.Context) (*Runtime, error) {
	rt, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := rt.Join.Start(ctx); err != nil {
		return nil, multierr.Append(err, b.Stop(context.Background()))
	}
	return rt, nil
}

// Stop 停止应用
func (b *Bootstrap) Stop(ctx context.Context) error {
	if b.fxApp == nil {
		return nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	err := b.fxApp.Stop(stopCtx)
	return multierr.Append(err, b.closeLogFile())
}

// setupLogging 配置日志输出
//
// 指定了日志文件时，所有子系统日志追加写入该文件。
func (b *Bootstrap) setupLogging() error {
	if err := logger.SetLibp2pLevel(b.config.Log.Libp2pLevel); err != nil {
		return err
	}
	if b.config.Log.File == "" {
		return nil
	}

	file, err := os.OpenFile(b.config.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("打开日志文件失败: %w", err)
	}
	b.logFile = file
	logger.SetOutput(file)

	log.Info("日志文件初始化成功", "path", b.config.Log.File)
	return nil
}

func (b *Bootstrap) closeLogFile() error {
	if b.logFile == nil {
		return nil
	}
	logger.SetOutput(os.Stderr)
	err := b.logFile.Close()
	b.logFile = nil
	return err
}
