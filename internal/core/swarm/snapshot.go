package swarm

import (
	"sort"

	"github.com/libp2p/go-libp2p/core/peer"
)

// PeerSnapshot 一个已连接对端的状态
type PeerSnapshot struct {
	ID              string   `json:"id"`
	Addrs           []string `json:"addrs"`
	Conns           int      `json:"conns"`
	AgentVersion    string   `json:"agent_version,omitempty"`
	ProtocolVersion string   `json:"protocol_version,omitempty"`
	InRoutingTable  bool     `json:"in_routing_table"`
}

// TopicSnapshot 一个已订阅主题的状态
type TopicSnapshot struct {
	Name  string `json:"name"`
	Peers int    `json:"peers"`
}

// Snapshot 节点状态快照，供诊断接口使用
type Snapshot struct {
	ID               string          `json:"id"`
	ListenAddrs      []string        `json:"listen_addrs"`
	Peers            []PeerSnapshot  `json:"peers"`
	RoutingTableSize int             `json:"routing_table_size"`
	Topics           []TopicSnapshot `json:"topics"`
	PendingIdentify  int             `json:"pending_identify"`
	InFlightQueries  int             `json:"in_flight_queries"`
}

// Snapshot 生成状态快照，可在任意 goroutine 调用
func (s *Swarm) Snapshot() Snapshot {
	n := s.host.Network()

	snap := Snapshot{
		ID:               s.host.ID().String(),
		RoutingTableSize: s.discovery.RoutingTableSize(),
		PendingIdentify:  s.identify.Pending(),
		InFlightQueries:  s.discovery.InFlightQueries(),
	}
	for _, a := range n.ListenAddresses() {
		snap.ListenAddrs = append(snap.ListenAddrs, a.String())
	}

	inTable := make(map[peer.ID]struct{})
	for _, p := range s.discovery.RoutingPeers() {
		inTable[p] = struct{}{}
	}

	store := s.host.Peerstore()
	for _, p := range n.Peers() {
		conns := n.ConnsToPeer(p)
		info := PeerSnapshot{
			ID:              p.String(),
			Conns:           len(conns),
			AgentVersion:    peerstoreString(store, p, "AgentVersion"),
			ProtocolVersion: peerstoreString(store, p, "ProtocolVersion"),
		}
		_, info.InRoutingTable = inTable[p]
		for _, c := range conns {
			info.Addrs = append(info.Addrs, c.RemoteMultiaddr().String())
		}
		snap.Peers = append(snap.Peers, info)
	}
	sort.Slice(snap.Peers, func(i, j int) bool { return snap.Peers[i].ID < snap.Peers[j].ID })

	for _, name := range s.gossip.Topics() {
		snap.Topics = append(snap.Topics, TopicSnapshot{Name: name, Peers: len(s.gossip.Peers(name))})
	}
	sort.Slice(snap.Topics, func(i, j int) bool { return snap.Topics[i].Name < snap.Topics[j].Name })

	return snap
}

type metadataGetter interface {
	Get(p peer.ID, key string) (interface{}, error)
}

func peerstoreString(m metadataGetter, p peer.ID, key string) string {
	v, err := m.Get(p, key)
	if err != nil {
		return ""
	}
	str, _ := v.(string)
	return str
}
