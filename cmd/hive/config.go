package main

import (
	"flag"
	"fmt"
	"io"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/hivemind/go-hive/config"
	"github.com/hivemind/go-hive/internal/app"
	"github.com/hivemind/go-hive/pkg/types"
)

// ============================================================================
//                              命令行参数
// ============================================================================
//
//   命令行参数：这次运行怎么跑（端口、密钥、日志）
//   JSON 配置文件：这个节点的固定配置（主题、网格参数、DHT）
//
// ============================================================================

// cliFlags 命令行参数
type cliFlags struct {
	configFile   string
	tcpPort      int
	quicPort     int
	listenHost   string
	identityFile string
	statusAddr   string
	logFile      string

	showVersion bool
	showHelp    bool

	// set 命令行上显式给出的参数名
	set map[string]bool
}

// launch 解析后的启动参数
type launch struct {
	cfg    *config.Config
	mode   types.Mode
	target ma.Multiaddr
}

func newFlagSet(out io.Writer) (*flag.FlagSet, *cliFlags) {
	f := &cliFlags{set: make(map[string]bool)}
	fs := flag.NewFlagSet("hive", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringVar(&f.configFile, "config", "", "配置文件路径（JSON）")
	fs.IntVar(&f.tcpPort, "tcp-port", 0, "TCP 监听端口（0 = 随机端口）")
	fs.IntVar(&f.quicPort, "quic-port", 0, "QUIC 监听端口（0 = 随机端口）")
	fs.StringVar(&f.listenHost, "listen-host", "", "监听 IP")
	fs.StringVar(&f.identityFile, "identity", "", "身份密钥文件路径，不存在时生成并保存")
	fs.StringVar(&f.statusAddr, "status-addr", "", "本地状态服务地址（设置即启用）")
	fs.StringVar(&f.logFile, "log-file", "", "日志文件路径")
	fs.BoolVar(&f.showVersion, "version", false, "显示版本信息")
	fs.BoolVar(&f.showHelp, "help", false, "显示帮助信息")
	return fs, f
}

// parseLaunch 按优先级合成配置：默认值 < 配置文件 < 环境变量 < 命令行
func parseLaunch(fs *flag.FlagSet, f *cliFlags, args []string, getenv func(string) string) (*launch, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	if f.showVersion || f.showHelp {
		return nil, nil
	}

	cfg := config.NewConfig()
	if f.configFile != "" {
		loaded, err := config.LoadFile(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		cfg = loaded
	}

	config.ApplyEnv(cfg, getenv)
	f.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mode, target, err := app.ParseArgs(fs.Args())
	if err != nil {
		return nil, err
	}
	return &launch{cfg: cfg, mode: mode, target: target}, nil
}

// apply 只覆盖显式给出的参数
func (f *cliFlags) apply(cfg *config.Config) {
	if f.set["tcp-port"] {
		cfg.Transport.TCPPort = f.tcpPort
	}
	if f.set["quic-port"] {
		cfg.Transport.QUICPort = f.quicPort
	}
	if f.set["listen-host"] {
		cfg.Transport.ListenHost = f.listenHost
	}
	if f.set["identity"] {
		cfg.Identity.KeyFile = f.identityFile
	}
	if f.set["status-addr"] {
		cfg.Diagnostics.EnableIntrospect = f.statusAddr != ""
		if f.statusAddr != "" {
			cfg.Diagnostics.IntrospectAddr = f.statusAddr
		}
	}
	if f.set["log-file"] {
		cfg.Log.File = f.logFile
	}
}
