package metrics

import (
	"net/http"

	libp2pmetrics "github.com/libp2p/go-libp2p/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace 默认指标命名空间
const DefaultNamespace = "hive"

// 遥测发布结果标签
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics 节点指标
type Metrics struct {
	registry  *prometheus.Registry
	bandwidth *libp2pmetrics.BandwidthCounter

	// SwarmEvents 事件循环处理的事件数，按类型
	SwarmEvents *prometheus.CounterVec

	// BehaviourErrors 组件钩子返回错误或 panic 的次数，按组件
	BehaviourErrors *prometheus.CounterVec

	// IdentifyResults 身份识别结果，按 identified/incompatible/failed
	IdentifyResults *prometheus.CounterVec

	// GossipMessages 收到的主题消息数，按主题
	GossipMessages *prometheus.CounterVec

	// TelemetryPublish 遥测发布结果，按 ok/error
	TelemetryPublish *prometheus.CounterVec

	// TelemetryGenerateErrors 遥测生成失败次数
	TelemetryGenerateErrors prometheus.Counter

	// ConnectedPeers 当前有连接的对端数
	ConnectedPeers prometheus.Gauge

	// RoutingTableSize 路由表中的节点数
	RoutingTableSize prometheus.Gauge
}

// New 创建节点指标
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	bwc := libp2pmetrics.NewBandwidthCounter()

	m := &Metrics{
		registry:  reg,
		bandwidth: bwc,
		SwarmEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swarm",
			Name:      "events_total",
			Help:      "Number of swarm events handled by the event loop",
		}, []string{"kind"}),
		BehaviourErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swarm",
			Name:      "behaviour_errors_total",
			Help:      "Number of errors and panics raised by behaviour hooks",
		}, []string{"behaviour"}),
		IdentifyResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identify",
			Name:      "results_total",
			Help:      "Number of identification results",
		}, []string{"result"}),
		GossipMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gossip",
			Name:      "messages_received_total",
			Help:      "Number of gossip messages received",
		}, []string{"topic"}),
		TelemetryPublish: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "publish_total",
			Help:      "Number of telemetry publish attempts",
		}, []string{"outcome"}),
		TelemetryGenerateErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "generate_errors_total",
			Help:      "Number of failed telemetry readings",
		}),
		ConnectedPeers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "swarm",
			Name:      "connected_peers",
			Help:      "Number of peers with at least one open connection",
		}),
		RoutingTableSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "routing_table_size",
			Help:      "Number of peers in the routing table",
		}),
	}

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "host",
		Name:      "bytes_received_total",
		Help:      "Bytes received by the host",
	}, func() float64 { return float64(bwc.GetBandwidthTotals().TotalIn) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "host",
		Name:      "bytes_sent_total",
		Help:      "Bytes sent by the host",
	}, func() float64 { return float64(bwc.GetBandwidthTotals().TotalOut) })

	return m
}

// Registry 返回指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Bandwidth 返回供 Host 使用的带宽计数器
func (m *Metrics) Bandwidth() *libp2pmetrics.BandwidthCounter {
	return m.bandwidth
}

// Handler 返回 Prometheus 抓取处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ============================================================================
//                              记录
// ============================================================================

// Event 记录一个已处理的事件
func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.SwarmEvents.WithLabelValues(kind).Inc()
}

// BehaviourError 记录一次组件钩子失败
func (m *Metrics) BehaviourError(behaviour string) {
	if m == nil {
		return
	}
	m.BehaviourErrors.WithLabelValues(behaviour).Inc()
}

// Identify 记录一次身份识别结果
func (m *Metrics) Identify(result string) {
	if m == nil {
		return
	}
	m.IdentifyResults.WithLabelValues(result).Inc()
}

// GossipMessage 记录收到一条主题消息
func (m *Metrics) GossipMessage(topic string) {
	if m == nil {
		return
	}
	m.GossipMessages.WithLabelValues(topic).Inc()
}

// Publish 记录一次遥测发布
func (m *Metrics) Publish(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.TelemetryPublish.WithLabelValues(outcome).Inc()
}

// GenerateError 记录一次遥测生成失败
func (m *Metrics) GenerateError() {
	if m == nil {
		return
	}
	m.TelemetryGenerateErrors.Inc()
}

// SetConnectedPeers 更新连接对端数
func (m *Metrics) SetConnectedPeers(n int) {
	if m == nil {
		return
	}
	m.ConnectedPeers.Set(float64(n))
}

// SetRoutingTableSize 更新路由表大小
func (m *Metrics) SetRoutingTableSize(n int) {
	if m == nil {
		return
	}
	m.RoutingTableSize.Set(float64(n))
}
