package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/hivemind/go-hive/config"
)

func TestGenerate(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.True(t, a.ID().MatchesPrivateKey(a.PrivKey()))
}

func TestNew_NilKey(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestLoad_Ephemeral(t *testing.T) {
	id, err := Load(config.IdentityConfig{})
	require.NoError(t, err)
	assert.NotEmpty(t, id.ID())
}

func TestLoad_PersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "node.key")
	cfg := config.IdentityConfig{KeyFile: path}

	first, err := Load(cfg)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := Load(cfg)
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	_, err := Load(config.IdentityConfig{KeyFile: path})
	assert.ErrorIs(t, err, ErrInvalidPEM)

	// 损坏的文件不会被覆盖
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not a key", string(data))
}

func TestLoadKeyFile_WrongBlockType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")
	pemData := "-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"
	require.NoError(t, os.WriteFile(path, []byte(pemData), 0o600))

	_, err := LoadKeyFile(path)
	assert.ErrorIs(t, err, ErrUnsupportedKeyType)
}

func TestModule(t *testing.T) {
	var id *Identity
	app := fxtest.New(t,
		fx.Supply(config.NewConfig()),
		Module(),
		fx.Populate(&id),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, id)
	assert.NotEmpty(t, id.ID())
}
