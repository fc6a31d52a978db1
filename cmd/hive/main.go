// Package main 提供 hive 命令行入口
//
// 用法：
//
//	hive [选项]                 作为引导节点运行
//	hive [选项] <multiaddr>     作为跟随节点运行并拨号该地址
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	hive "github.com/hivemind/go-hive"
	"github.com/hivemind/go-hive/internal/app"
	"github.com/hivemind/go-hive/internal/util/logger"
)

var log = logger.Logger("cmd")

func main() {
	os.Exit(run(os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

// run 返回进程退出码
func run(args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	fs, f := newFlagSet(stderr)
	l, err := parseLaunch(fs, f, args, getenv)
	switch {
	case errors.Is(err, flag.ErrHelp):
		printHelp(stdout, fs)
		return 0
	case err != nil:
		fmt.Fprintf(stderr, "配置错误: %v\n", err)
		return 2
	case f.showVersion:
		fmt.Fprintln(stdout, hive.VersionInfo())
		return 0
	case f.showHelp:
		printHelp(stdout, fs)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("启动 hive 节点",
		"version", hive.Version,
		"commit", hive.GitCommit,
		"buildDate", hive.BuildDate,
		"mode", l.mode)

	b := app.NewBootstrap(
		app.WithConfig(l.cfg),
		app.WithJoin(l.mode, l.target),
	)
	if err := app.Run(ctx, b); err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// printHelp 打印帮助信息
func printHelp(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "hive - HiveMind 遥测覆盖网络节点")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "用法:")
	fmt.Fprintln(w, "  hive [选项]               作为引导节点运行")
	fmt.Fprintln(w, "  hive [选项] <multiaddr>   作为跟随节点运行")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "选项:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "环境变量:")
	fmt.Fprintln(w, "  HIVE_TCP_PORT             TCP 监听端口")
	fmt.Fprintln(w, "  HIVE_QUIC_PORT            QUIC 监听端口")
	fmt.Fprintln(w, "  HIVE_LISTEN_HOST          监听 IP")
	fmt.Fprintln(w, "  HIVE_IDENTITY_KEY_FILE    身份密钥文件")
	fmt.Fprintln(w, "  HIVE_BOOTSTRAP_PEERS      DHT 种子节点（逗号分隔）")
	fmt.Fprintln(w, "  HIVE_TOPIC                遥测主题")
	fmt.Fprintln(w, "  HIVE_TELEMETRY_INTERVAL   遥测发布周期")
	fmt.Fprintln(w, "  HIVE_TELEMETRY_ENABLED    是否发布遥测 (true/false)")
	fmt.Fprintln(w, "  HIVE_INTROSPECT_ADDR      本地状态服务地址")
	fmt.Fprintln(w, "  HIVE_LOG_FILE             日志文件路径")
	fmt.Fprintln(w, "  HIVE_LOG_LEVEL            子系统日志级别")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "示例:")
	fmt.Fprintln(w, "  # 第一个节点")
	fmt.Fprintln(w, "  hive -tcp-port 9000 -quic-port 9001")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # 加入已有节点")
	fmt.Fprintln(w, "  hive -tcp-port 9100 /ip4/192.168.1.10/tcp/9000/p2p/12D3KooW...")
}
