// Package swarm 将 Host 与三个组件组合为统一的事件流
//
// Swarm 持有 Host 以及发现、身份识别、主题消息三个组件，负责：
//   - 把每条连接的建立与关闭通知分发给全部三个组件，一个不漏
//   - 把 Host 事件总线、发现组件、主题消息组件的事件汇入同一个入站通道
//   - 在事件循环中把入站项转换为 SwarmEvent
//
// 单个组件处理出错或 panic 只记录日志和指标，不影响其他组件。
//
// 入站通道有界；通道满时生产者记录警告后阻塞等待，连接通知从不丢弃。
package swarm
