package config

import (
	"strconv"
	"strings"
	"time"
)

// 环境变量名，均使用 HIVE_ 前缀
const (
	EnvPrefix = "HIVE_"

	EnvTCPPort           = "TCP_PORT"
	EnvQUICPort          = "QUIC_PORT"
	EnvListenHost        = "LISTEN_HOST"
	EnvIdentityKeyFile   = "IDENTITY_KEY_FILE"
	EnvBootstrapPeers    = "BOOTSTRAP_PEERS"
	EnvTopic             = "TOPIC"
	EnvTelemetryInterval = "TELEMETRY_INTERVAL"
	EnvTelemetryEnabled  = "TELEMETRY_ENABLED"
	EnvIntrospectAddr    = "INTROSPECT_ADDR"
	EnvLogFile           = "LOG_FILE"
)

// ApplyEnv 使用环境变量覆盖配置
//
// getenv 通常为 os.Getenv，测试中可替换。无法解析的数值被忽略，
// 保留原值，由 Validate 负责最终检查。主题是例外：
// 显式设置为空白的主题会被采用，随后由 Validate 拒绝。
func ApplyEnv(cfg *Config, getenv func(string) string) {
	get := func(name string) string {
		return strings.TrimSpace(getenv(EnvPrefix + name))
	}

	if v := get(EnvTCPPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Transport.TCPPort = port
		}
	}
	if v := get(EnvQUICPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Transport.QUICPort = port
		}
	}
	if v := get(EnvListenHost); v != "" {
		cfg.Transport.ListenHost = v
	}
	if v := get(EnvIdentityKeyFile); v != "" {
		cfg.Identity.KeyFile = v
	}
	if v := get(EnvBootstrapPeers); v != "" {
		cfg.Discovery.BootstrapPeers = splitAndTrim(v, ",")
	}
	if raw := getenv(EnvPrefix + EnvTopic); raw != "" {
		cfg.Messaging.Topic = strings.TrimSpace(raw)
	}
	if v := get(EnvTelemetryInterval); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Telemetry.Interval = Duration(d)
		}
	}
	if v := get(EnvTelemetryEnabled); v != "" {
		cfg.Telemetry.Enabled = parseBool(v)
	}
	if v := get(EnvIntrospectAddr); v != "" {
		cfg.Diagnostics.EnableIntrospect = true
		cfg.Diagnostics.IntrospectAddr = v
	}
	if v := get(EnvLogFile); v != "" {
		cfg.Log.File = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
