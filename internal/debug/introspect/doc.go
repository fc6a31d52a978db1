// Package introspect 提供本地状态 HTTP 服务
//
// 该服务运行在本地端口，提供 JSON 格式的诊断信息，用于调试和监控。
// 默认绑定到 127.0.0.1:8080，且默认不启用。
//
// # 端点
//
//	GET /                        - 欢迎页
//	GET /health                  - 健康检查
//	GET /debug/introspect        - 完整诊断报告 (JSON)
//	GET /debug/introspect/node   - 节点概要
//	GET /debug/introspect/peers  - 已连接对端
//	GET /debug/introspect/runtime - 运行时信息
//	GET /metrics                 - Prometheus 指标
//	GET /debug/pprof/*           - Go pprof 端点
//
// # 安全
//
// 默认只监听本地地址，不暴露到网络。
// 如果需要远程访问，请确保配置适当的访问控制。
//
// 通过 config.Diagnostics.EnableIntrospect 配置启用。
package introspect
