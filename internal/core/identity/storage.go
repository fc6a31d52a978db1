package identity

import (
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/libp2p/go-libp2p/core/crypto"
)

const pemTypePrivateKey = "LIBP2P PRIVATE KEY"

// ErrKeyNotFound 密钥文件不存在
var ErrKeyNotFound = errors.New("key not found")

// SaveKeyFile 将私钥以 PEM 格式写入文件
//
// PEM 块内容为 libp2p 的 protobuf 编码私钥。使用临时文件加 rename
// 的原子写，文件权限 0600。
func SaveKeyFile(priv crypto.PrivKey, path string) error {
	raw, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: raw})
	return atomicWriteFile(path, data, 0o600)
}

// LoadKeyFile 从 PEM 文件加载私钥
func LoadKeyFile(path string) (crypto.PrivKey, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户配置的密钥路径
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}
	if block.Type != pemTypePrivateKey {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyType, block.Type)
	}

	priv, err := crypto.UnmarshalPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("unmarshal private key: %w", err)
	}
	return priv, nil
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".hive-key-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
