// Package hive 是 HiveMind 遥测覆盖网络节点
//
// 节点通过 DHT 发现其它节点，在新连接上交换身份信息，并通过
// GossipSub 将遥测读数传播给所有订阅了同一主题的节点。
//
// 进程入口位于 cmd/hive，组件实现位于 internal/。
package hive

// Version 当前版本
const Version = "v0.1.0"

// 构建信息，通过 -ldflags 注入
var (
	// GitCommit Git 提交哈希
	GitCommit string

	// BuildDate 构建日期
	BuildDate string
)

// VersionInfo 返回完整版本信息字符串
func VersionInfo() string {
	info := "HiveMind " + Version
	if GitCommit != "" {
		info += " (" + GitCommit[:min(8, len(GitCommit))] + ")"
	}
	if BuildDate != "" {
		info += " built " + BuildDate
	}
	return info
}

// AgentVersion 返回身份识别协议中使用的默认代理版本串
func AgentVersion() string {
	return "go-hive/" + Version
}
