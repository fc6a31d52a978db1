package dht

import "errors"

var (
	// ErrSelfRecord 试图记录本节点自身
	ErrSelfRecord = errors.New("dht: refusing to record local peer")

	// ErrNoAddresses 记录没有任何地址
	ErrNoAddresses = errors.New("dht: record has no addresses")

	// ErrNilHost Host 为空
	ErrNilHost = errors.New("dht: host is nil")

	// ErrAlreadyStarted 已经引导过
	ErrAlreadyStarted = errors.New("dht: already bootstrapped")

	// ErrClosed 组件已关闭
	ErrClosed = errors.New("dht: closed")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("dht: invalid config")
)
