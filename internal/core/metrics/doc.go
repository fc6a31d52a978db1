// Package metrics 提供节点的 Prometheus 指标
//
// 每个节点持有独立的 Registry，指标包括：
//   - 按类型统计的 Swarm 事件
//   - 组件钩子的错误与 panic
//   - 身份识别结果
//   - 遥测的生成与发布结果
//   - 连接对端数与路由表大小
//   - Host 收发字节数（由 libp2p 带宽计数器提供）
//
// 所有记录方法对 nil *Metrics 安全，未启用指标的组件可直接传 nil。
package metrics
