package gossipsub

import (
	"crypto/sha256"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	pb "github.com/libp2p/go-libp2p-pubsub/pb"
	"github.com/mr-tron/base58"

	"github.com/hivemind/go-hive/pkg/types"
)

// messageID 以来源和内容的哈希作为消息 ID
//
// 相同内容的消息在 SeenTTL 内被视为重复，不再转发。
func messageID(from, data []byte) types.MessageID {
	h := sha256.New()
	h.Write(from)
	h.Write(data)
	return types.MessageID(base58.Encode(h.Sum(nil)))
}

func pubsubMessageID(m *pb.Message) string {
	return string(messageID(m.GetFrom(), m.GetData()))
}

// routerParams 由配置生成 GossipSub 路由参数
//
// 其余参数沿用 go-libp2p-pubsub 的默认值，
// Dout 与 Dscore 收敛到配置的 mesh 范围内以满足参数约束。
func routerParams(cfg *Config) pubsub.GossipSubParams {
	p := pubsub.DefaultGossipSubParams()
	p.D = cfg.D
	p.Dlo = cfg.Dlo
	p.Dhi = cfg.Dhi
	p.HeartbeatInterval = cfg.HeartbeatInterval

	if p.Dout >= p.Dlo {
		p.Dout = p.Dlo - 1
	}
	if p.Dout > p.D/2 {
		p.Dout = p.D / 2
	}
	if p.Dscore > p.D {
		p.Dscore = p.D
	}
	if p.Dlazy > p.Dhi {
		p.Dlazy = p.Dhi
	}
	return p
}

func pubsubOptions(cfg *Config, tracer pubsub.RawTracer) []pubsub.Option {
	policy := pubsub.StrictSign
	if !cfg.SignMessages {
		policy = pubsub.StrictNoSign
	}
	return []pubsub.Option{
		pubsub.WithMessageSignaturePolicy(policy),
		pubsub.WithMessageIdFn(pubsubMessageID),
		pubsub.WithGossipSubParams(routerParams(cfg)),
		pubsub.WithSeenMessagesTTL(cfg.SeenTTL),
		pubsub.WithMaxMessageSize(cfg.MaxMessageSize),
		pubsub.WithRawTracer(tracer),
	}
}
