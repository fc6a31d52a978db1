package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind/go-hive/config"
	"github.com/hivemind/go-hive/pkg/types"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func parse(t *testing.T, args []string, vars map[string]string) (*launch, error) {
	t.Helper()
	fs, f := newFlagSet(io.Discard)
	return parseLaunch(fs, f, args, env(vars))
}

func TestParseLaunch_Defaults(t *testing.T) {
	l, err := parse(t, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, types.ModeBootstrap, l.mode)
	assert.Nil(t, l.target)
	assert.Equal(t, config.NewConfig(), l.cfg)
}

func TestParseLaunch_Follower(t *testing.T) {
	l, err := parse(t, []string{"-tcp-port", "9100", "/ip4/127.0.0.1/tcp/9000"}, nil)
	require.NoError(t, err)

	assert.Equal(t, types.ModeFollower, l.mode)
	assert.Equal(t, "/ip4/127.0.0.1/tcp/9000", l.target.String())
	assert.Equal(t, 9100, l.cfg.Transport.TCPPort)
}

func TestParseLaunch_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hive.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"transport": {"tcp_port": 7000, "quic_port": 7001},
		"messaging": {"topic": "from-file"}
	}`), 0600))

	l, err := parse(t,
		[]string{"-config", path, "-tcp-port", "9000"},
		map[string]string{
			"HIVE_TCP_PORT":  "8000",
			"HIVE_QUIC_PORT": "8001",
		})
	require.NoError(t, err)

	// 命令行 > 环境变量 > 配置文件
	assert.Equal(t, 9000, l.cfg.Transport.TCPPort)
	assert.Equal(t, 8001, l.cfg.Transport.QUICPort)
	assert.Equal(t, "from-file", l.cfg.Messaging.Topic)
}

func TestParseLaunch_StatusAddrEnablesIntrospect(t *testing.T) {
	l, err := parse(t, []string{"-status-addr", "127.0.0.1:9999"}, nil)
	require.NoError(t, err)

	assert.True(t, l.cfg.Diagnostics.EnableIntrospect)
	assert.Equal(t, "127.0.0.1:9999", l.cfg.Diagnostics.IntrospectAddr)
}

func TestParseLaunch_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		vars map[string]string
	}{
		{"端口越界", []string{"-tcp-port", "70000"}, nil},
		{"非法监听地址", []string{"-listen-host", "example.com"}, nil},
		{"空主题", nil, map[string]string{"HIVE_TOPIC": " "}},
		{"多个位置参数", []string{"/ip4/127.0.0.1/tcp/1", "/ip4/127.0.0.1/tcp/2"}, nil},
		{"非法对端地址", []string{"nonsense"}, nil},
		{"配置文件不存在", []string{"-config", "/nonexistent/hive.json"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.args, tt.vars)
			assert.Error(t, err)
		})
	}
}

func TestRun_ExitCodes(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 0, run([]string{"-version"}, env(nil), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "HiveMind")

	stdout.Reset()
	assert.Equal(t, 0, run([]string{"-help"}, env(nil), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "-tcp-port")

	assert.Equal(t, 2, run([]string{"-tcp-port", "-1"}, env(nil), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "配置错误")
}
