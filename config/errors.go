package config

import "errors"

var (
	// ErrNilConfig 配置为空
	ErrNilConfig = errors.New("config is nil")

	// ErrInvalidPort 端口超出范围
	ErrInvalidPort = errors.New("port must be within 0-65535")

	// ErrInvalidListenHost 监听主机无效
	ErrInvalidListenHost = errors.New("listen host must be an IPv4 or IPv6 literal")

	// ErrInvalidTopic 主题名无效
	ErrInvalidTopic = errors.New("topic must not be empty")

	// ErrInvalidProtocolVersion 协议版本串无效
	ErrInvalidProtocolVersion = errors.New("protocol version must not be empty")

	// ErrInvalidDuration 时间参数无效
	ErrInvalidDuration = errors.New("duration must be positive")

	// ErrInvalidMeshDegree 网格度数不满足 Dlo <= D <= Dhi
	ErrInvalidMeshDegree = errors.New("mesh degree must satisfy 0 < Dlo <= D <= Dhi")
)
