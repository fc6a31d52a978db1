package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	libp2pmetrics "github.com/libp2p/go-libp2p/core/metrics"

	hive "github.com/hivemind/go-hive"
	"github.com/hivemind/go-hive/internal/core/swarm"
	"github.com/hivemind/go-hive/internal/util/logger"
)

var log = logger.Logger("introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:8080"

// WelcomeMessage 根路径返回的欢迎语
const WelcomeMessage = "Welcome to HiveMind"

// ============================================================================
//                              配置
// ============================================================================

// NodeSource 节点状态来源
type NodeSource interface {
	Snapshot() swarm.Snapshot
}

// BandwidthReporter 带宽报告接口
type BandwidthReporter interface {
	GetBandwidthTotals() libp2pmetrics.Stats
}

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:8080"
	Addr string

	// Node 可选的节点状态来源
	Node NodeSource

	// Bandwidth 可选的带宽报告器
	Bandwidth BandwidthReporter

	// Metrics 可选的 Prometheus 抓取处理器
	Metrics http.Handler
}

// ============================================================================
//                              Server
// ============================================================================

// Server 本地状态 HTTP 服务
type Server struct {
	config Config

	// session 本次进程的会话标识，重启后变化
	session string

	server   *http.Server
	listener net.Listener

	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建状态服务
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		config:  cfg,
		session: uuid.NewString(),
	}
}

// Handler 返回服务的路由，不需要监听即可使用
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleWelcome)
	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/debug/introspect", s.handleIntrospect)
	mux.HandleFunc("/debug/introspect/node", s.handleNode)
	mux.HandleFunc("/debug/introspect/peers", s.handlePeers)
	mux.HandleFunc("/debug/introspect/runtime", s.handleRuntime)

	if s.config.Metrics != nil {
		mux.Handle("/metrics", s.config.Metrics)
	}

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return mux
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen introspect %s: %w", s.config.Addr, err)
	}
	s.listener = listener
	s.startTime = time.Now()

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("状态服务异常退出", "err", err)
		}
	}()

	s.running = true
	log.Info("状态服务已启动", "addr", listener.Addr(), "session", s.session)
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown introspect: %w", err)
	}

	s.running = false
	log.Info("状态服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ============================================================================
//                              响应结构
// ============================================================================

// IntrospectResponse 完整诊断响应
type IntrospectResponse struct {
	Timestamp time.Time       `json:"timestamp"`
	Uptime    string          `json:"uptime"`
	Version   string          `json:"version"`
	Node      *swarm.Snapshot `json:"node,omitempty"`
	Bandwidth *BandwidthInfo  `json:"bandwidth,omitempty"`
	Runtime   *RuntimeInfo    `json:"runtime"`
}

// NodeInfo 节点概要
type NodeInfo struct {
	ID               string                `json:"id"`
	Version          string                `json:"version"`
	ListenAddrs      []string              `json:"listen_addrs"`
	Peers            int                   `json:"peers"`
	RoutingTableSize int                   `json:"routing_table_size"`
	Topics           []swarm.TopicSnapshot `json:"topics"`
	PendingIdentify  int                   `json:"pending_identify"`
	InFlightQueries  int                   `json:"in_flight_queries"`
}

// BandwidthInfo 带宽信息
type BandwidthInfo struct {
	TotalIn  int64   `json:"total_in"`
	TotalOut int64   `json:"total_out"`
	RateIn   float64 `json:"rate_in"`
	RateOut  float64 `json:"rate_out"`
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc"`
	MemSys       uint64 `json:"mem_sys"`
	NumGC        uint32 `json:"num_gc"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Session   string    `json:"session"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime,omitempty"`
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, WelcomeMessage)
}

func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := IntrospectResponse{
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
		Version:   hive.Version,
		Bandwidth: s.collectBandwidthInfo(),
		Runtime:   collectRuntimeInfo(),
	}
	if s.config.Node != nil {
		snap := s.config.Node.Snapshot()
		response.Node = &snap
	}

	s.writeJSON(w, response)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.Node == nil {
		http.Error(w, "Node info not available", http.StatusServiceUnavailable)
		return
	}

	snap := s.config.Node.Snapshot()
	s.writeJSON(w, NodeInfo{
		ID:               snap.ID,
		Version:          hive.Version,
		ListenAddrs:      snap.ListenAddrs,
		Peers:            len(snap.Peers),
		RoutingTableSize: snap.RoutingTableSize,
		Topics:           snap.Topics,
		PendingIdentify:  snap.PendingIdentify,
		InFlightQueries:  snap.InFlightQueries,
	})
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.Node == nil {
		http.Error(w, "Peer info not available", http.StatusServiceUnavailable)
		return
	}

	peers := s.config.Node.Snapshot().Peers
	if peers == nil {
		peers = []swarm.PeerSnapshot{}
	}
	s.writeJSON(w, peers)
}

func (s *Server) handleRuntime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, collectRuntimeInfo())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := HealthResponse{
		Status:    "ok",
		Session:   s.session,
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
	}
	if s.config.Node == nil {
		health.Status = "degraded"
	}

	s.writeJSON(w, health)
}

// ============================================================================
//                              数据收集
// ============================================================================

func (s *Server) collectBandwidthInfo() *BandwidthInfo {
	if s.config.Bandwidth == nil {
		return nil
	}
	stats := s.config.Bandwidth.GetBandwidthTotals()
	return &BandwidthInfo{
		TotalIn:  stats.TotalIn,
		TotalOut: stats.TotalOut,
		RateIn:   stats.RateIn,
		RateOut:  stats.RateOut,
	}
}

func collectRuntimeInfo() *RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (s *Server) uptime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startTime.IsZero() {
		return ""
	}
	return time.Since(s.startTime).Round(time.Second).String()
}

// ============================================================================
//                              辅助方法
// ============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		log.Error("JSON 编码失败", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
