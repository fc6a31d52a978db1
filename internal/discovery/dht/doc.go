// Package dht 实现基于 Kademlia 的节点发现组件
//
// # 模块概述
//
// 组件封装 go-libp2p-kad-dht，以服务端模式运行在 /hive/kad/1.0.0 协议上，
// 维护一张按 XOR 距离分桶的路由表。路由表中的记录只是提示：
// 任何节点都可能提供过时或恶意的地址，因此记录会过期、会被验证淘汰。
//
// # 核心功能
//
//   - Bootstrap: 从已知节点（种子与当前连接）播种路由表并开始周期刷新
//   - RecordPeer: 插入或更新一条节点记录（拒绝本节点自身）
//   - Nearest: 按桶距离排序的最近节点，同桶内按最近活跃排序
//   - FindClosest: 迭代查询，以 QueryCompleted 事件结束
//
// # 事件
//
//   - PeerRoutable: 节点进入路由表
//   - PeerUnreachable: 节点被移出路由表
//   - QueryCompleted: 一次查询结束（成功或失败）
//
// # 空路由表
//
// 作为网络中第一个节点启动时路由表为空。此时周期刷新会跳过查询，
// 节点作为固定的汇合点无限期运行，不会失败也不会反复重试。
package dht
