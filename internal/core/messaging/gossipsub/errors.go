package gossipsub

import "errors"

var (
	// ErrNotSubscribed 未订阅该主题
	ErrNotSubscribed = errors.New("gossipsub: not subscribed to topic")

	// ErrAlreadySubscribed 已订阅该主题
	ErrAlreadySubscribed = errors.New("gossipsub: already subscribed to topic")

	// ErrPayloadTooLarge 消息超过最大长度
	ErrPayloadTooLarge = errors.New("gossipsub: payload too large")

	// ErrInsufficientPeers 主题上没有可转发的对端
	ErrInsufficientPeers = errors.New("gossipsub: insufficient peers")

	// ErrPublishFailed 发布失败
	ErrPublishFailed = errors.New("gossipsub: publish failed")

	// ErrNilHost Host 为空
	ErrNilHost = errors.New("gossipsub: nil host")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("gossipsub: invalid config")

	// ErrClosed 组件已关闭
	ErrClosed = errors.New("gossipsub: closed")
)
