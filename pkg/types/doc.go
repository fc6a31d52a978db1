// Package types 定义 hive 的公共数据结构
//
// 这是最底层的包，不依赖任何其他 hive 内部包，只引用 go-libp2p 的
// 基础类型（peer.ID、multiaddr）。所有类型都是值类型，用于在
// 组件之间以及组件与事件循环之间传递数据。
//
// 文件组织:
//   - peer.go   - NodeIdentity, PeerRecord, MessageID, Mode
//   - events.go - SwarmEvent 及其全部变体
package types
