// Package identify 实现身份识别组件
//
// 每条新连接建立后，Host 的 identify 服务（/ipfs/id/1.0.0）自动与对端交换：
//   - 协议名与版本（hive/1.0.0）
//   - 代理版本
//   - 本地已知的监听地址
//   - 支持的协议列表
//
// 本组件为每条连接维护一条进行中记录，以连接 ID 为键，
// 由 Host 事件总线上的识别结果或连接关闭来了结，
// 保证每条连接恰好产生一个 identified 或 identification-failed 事件。
//
// 协议版本不一致不是致命错误：结果以 Compatible 字段报告，
// 是否断开由调用方决定，本组件从不主动断开连接。
package identify
