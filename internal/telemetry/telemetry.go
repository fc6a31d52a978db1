// Package telemetry 产生模拟的电网遥测读数
//
// 读数对网络层是不透明的字节序列：事件循环每个周期取一个读数，
// 编码后原样发布到遥测主题。
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// 电网稳态值
const (
	// GridFrequency 电网频率（Hz）
	GridFrequency = 60.0
	// StateOfCharge 储能荷电状态（%）
	StateOfCharge = 95.0
	// GridImport 购电功率（kW）
	GridImport = 0.0
	// GridExport 售电功率（kW）
	GridExport = 0.5

	// GridVariance 频率允许的偏差
	GridVariance = 1
	// MaxStartVariance 荷电状态允许的偏差
	MaxStartVariance = 5
)

// Reading 一次遥测读数
type Reading struct {
	Seq           uint64    `json:"seq"`
	Timestamp     time.Time `json:"timestamp"`
	Variance      int       `json:"variance"`
	Frequency     float64   `json:"frequency_hz"`
	StateOfCharge float64   `json:"soc_pct"`
	Import        float64   `json:"import_kw"`
	Export        float64   `json:"export_kw"`
}

// Encode 把读数编码为发布用的字节
func Encode(r Reading) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode reading: %w", err)
	}
	return data, nil
}

// Generator 遥测读数来源
type Generator interface {
	Generate(ctx context.Context) (Reading, error)
}

// Option GridGenerator 选项
type Option func(*GridGenerator)

// WithClock 替换时间戳使用的时钟
func WithClock(c clock.Clock) Option {
	return func(g *GridGenerator) {
		g.clock = c
	}
}

// WithSeed 使用固定种子，读数序列可复现
func WithSeed(seed uint64) Option {
	return func(g *GridGenerator) {
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// GridGenerator 在稳态值附近随机抖动的模拟电网读数
type GridGenerator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clock clock.Clock
	seq   uint64
}

var _ Generator = (*GridGenerator)(nil)

// NewGridGenerator 创建模拟读数生成器
func NewGridGenerator(opts ...Option) *GridGenerator {
	g := &GridGenerator{
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate 产生下一个读数，序号单调递增
func (g *GridGenerator) Generate(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	return Reading{
		Seq:           g.seq,
		Timestamp:     g.clock.Now().UTC(),
		Variance:      GridVariance,
		Frequency:     GridFrequency + float64(g.jitter(GridVariance)),
		StateOfCharge: StateOfCharge + float64(g.jitter(MaxStartVariance)),
		Import:        GridImport,
		Export:        GridExport,
	}, nil
}

// jitter 返回 [-v, v) 内的整数偏差
func (g *GridGenerator) jitter(v int) int {
	return g.rng.IntN(2*v) - v
}
