// Package identity 提供节点身份
//
// 节点身份是一把 Ed25519 私钥及由其派生的 peer.ID。
// 未配置密钥文件时每次启动生成临时身份；配置后从文件加载，
// 文件不存在则生成并持久化，使节点在重启后保持同一身份。
package identity

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/hivemind/go-hive/config"
	"github.com/hivemind/go-hive/internal/util/logger"
)

var log = logger.Logger("identity")

var (
	// ErrInvalidPEM 密钥文件不是有效的 PEM
	ErrInvalidPEM = errors.New("invalid PEM data")

	// ErrUnsupportedKeyType 密钥文件中的密钥类型不受支持
	ErrUnsupportedKeyType = errors.New("unsupported key type")
)

// Identity 进程生命周期内不变的节点身份
type Identity struct {
	priv crypto.PrivKey
	id   peer.ID
}

// New 使用给定私钥创建身份
func New(priv crypto.PrivKey) (*Identity, error) {
	if priv == nil {
		return nil, errors.New("private key is nil")
	}
	id, err := peer.IDFromPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("derive peer id: %w", err)
	}
	return &Identity{priv: priv, id: id}, nil
}

// Generate 生成临时 Ed25519 身份
func Generate() (*Identity, error) {
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return New(priv)
}

// Load 根据配置加载或生成身份
//
// 密钥文件损坏属于配置错误，直接返回错误而不是静默覆盖。
func Load(cfg config.IdentityConfig) (*Identity, error) {
	if cfg.KeyFile == "" {
		id, err := Generate()
		if err != nil {
			return nil, err
		}
		log.Info("生成临时身份", "peer", id.ID())
		return id, nil
	}

	priv, err := LoadKeyFile(cfg.KeyFile)
	switch {
	case err == nil:
		id, err := New(priv)
		if err != nil {
			return nil, err
		}
		log.Info("从密钥文件加载身份", "peer", id.ID(), "path", cfg.KeyFile)
		return id, nil
	case errors.Is(err, ErrKeyNotFound):
		id, err := Generate()
		if err != nil {
			return nil, err
		}
		if err := SaveKeyFile(id.PrivKey(), cfg.KeyFile); err != nil {
			return nil, fmt.Errorf("save key file: %w", err)
		}
		log.Info("生成并保存新身份", "peer", id.ID(), "path", cfg.KeyFile)
		return id, nil
	default:
		return nil, fmt.Errorf("load key file %s: %w", cfg.KeyFile, err)
	}
}

// ID 返回节点身份标识
func (i *Identity) ID() peer.ID {
	return i.id
}

// PrivKey 返回私钥，用于传输层认证和消息签名
func (i *Identity) PrivKey() crypto.PrivKey {
	return i.priv
}
