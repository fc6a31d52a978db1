package swarm

import "errors"

var (
	// ErrNilComponent 缺少 Host 或组件
	ErrNilComponent = errors.New("swarm: nil host or component")

	// ErrBehaviourPanic 组件钩子 panic
	ErrBehaviourPanic = errors.New("swarm: behaviour panicked")
)
