package app

import "errors"

var (
	// ErrTooManyArgs 位置参数超过一个
	ErrTooManyArgs = errors.New("app: at most one peer address may be given")

	// ErrInvalidPeerAddr 对端地址不是合法的 multiaddr
	ErrInvalidPeerAddr = errors.New("app: invalid peer address")

	// ErrListen 监听失败
	ErrListen = errors.New("app: listen failed")
)
