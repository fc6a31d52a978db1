package app

import (
	"context"

	"go.uber.org/multierr"
)

// Run 启动节点并运行事件循环，直到 ctx 结束后关闭节点
//
// 只有配置错误与监听失败会在启动阶段返回；运行期间的网络错误只记录日志。
func Run(ctx context.Context, b *Bootstrap) error {
	rt, err := b.Start(ctx)
	if err != nil {
		return err
	}

	runErr := rt.Loop.Run(ctx)

	log.Info("正在关闭节点")
	return multierr.Append(runErr, rt.Stop(context.Background()))
}
