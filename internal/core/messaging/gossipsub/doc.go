// Package gossipsub 实现基于 GossipSub 的主题消息组件
//
// 组件在 go-libp2p-pubsub 之上提供：
//   - 订阅/退订主题，订阅后收到的新消息以 MessageReceived 事件上报
//   - 以内容哈希作为消息 ID，同一内容在 SeenTTL 内只传播一次
//   - 发布前检查订阅状态、消息大小和主题对端数
//   - 主题成员变化以 PeerSubscribed/PeerUnsubscribed 事件上报
//
// 本节点自己发布的消息不会以事件形式回送。
package gossipsub
