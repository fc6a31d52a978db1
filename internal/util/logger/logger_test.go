package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_SubsystemAttr(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)

	log := Logger("test-subsystem")
	log.Info("测试消息", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "测试消息")
	assert.Contains(t, out, "key=value")
	assert.Contains(t, out, "subsystem=test-subsystem")
	assert.Contains(t, out, "level=info")
}

func TestLogger_Cached(t *testing.T) {
	assert.Same(t, Logger("cached"), Logger("cached"))
}

func TestSetOutput_ExistingLogger(t *testing.T) {
	log := Logger("switch")

	buf := &bytes.Buffer{}
	SetOutput(buf)
	log.Info("切换之后")

	assert.Contains(t, buf.String(), "切换之后")
}

func TestSetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)

	log := Logger("leveled").With("peer", "p1")
	SetLevel("leveled", slog.LevelError)
	log.Warn("不应输出")
	assert.Empty(t, buf.String())

	SetLevel("leveled", slog.LevelDebug)
	log.Debug("应当输出")
	assert.Contains(t, buf.String(), "应当输出")
	assert.Contains(t, buf.String(), "peer=p1")
}

func TestParseConfig(t *testing.T) {
	env := map[string]string{
		EnvLevel:     "discovery=debug, gossip=warn ,error,bogus=nope",
		EnvFormat:    "JSON",
		EnvAddSource: "1",
	}
	cfg := ParseConfig(func(k string) string { return env[k] })

	assert.Equal(t, slog.LevelError, cfg.DefaultLevel)
	assert.Equal(t, slog.LevelDebug, cfg.LevelForSubsystem("discovery"))
	assert.Equal(t, slog.LevelWarn, cfg.LevelForSubsystem("gossip"))
	assert.Equal(t, slog.LevelError, cfg.LevelForSubsystem("loop"))
	assert.NotContains(t, cfg.SubsystemLevels, "bogus")
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.True(t, cfg.AddSource)
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg := ParseConfig(func(string) string { return "" })
	assert.Equal(t, slog.LevelInfo, cfg.DefaultLevel)
	assert.Equal(t, FormatText, cfg.Format)
	assert.False(t, cfg.AddSource)
}

func TestSetLibp2pLevel(t *testing.T) {
	require.NoError(t, SetLibp2pLevel("warn"))
	assert.Error(t, SetLibp2pLevel("loud"))
}

func TestDiscard(t *testing.T) {
	log := Discard()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}
