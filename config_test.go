// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name      string
		arg       CoreArgument
		wantCache bool
	}{
		{"cache on", CoreArgument{CachePath: "/tmp/cache", EnableCache: 1}, true},
		{"cache flag without path", CoreArgument{EnableCache: 1}, false},
		{"cache path without flag", CoreArgument{CachePath: "/tmp/cache"}, false},
		{"flag must be exactly one", CoreArgument{CachePath: "/tmp/cache", EnableCache: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewConfig(tt.arg).EnableCache; got != tt.wantCache {
				t.Fatalf("EnableCache = %v, want %v", got, tt.wantCache)
			}
		})
	}

	cfg := NewConfig(CoreArgument{
		StoragePath:      "/data",
		EngineSocketPath: "/tmp/engine.sock",
		StreamTimeoutMS:  2500,
	})
	if cfg.StoragePath != "/data" || cfg.EngineSocketPath != "/tmp/engine.sock" {
		t.Fatalf("paths not carried: %+v", cfg)
	}
	if cfg.StreamTimeout != 2500*time.Millisecond {
		t.Fatalf("StreamTimeout = %s", cfg.StreamTimeout)
	}
	if cfg.Transport != DefaultTransport {
		t.Fatalf("Transport = %q", cfg.Transport)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Transport = "carrier-pigeon"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "carrier-pigeon") {
		t.Fatalf("err = %v", err)
	}
	cfg = DefaultConfig()
	cfg.StreamTimeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative timeout accepted")
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
engine_tcp_port = "18000"
engine_socket_path = " /tmp/engine.sock "
token = "secret"
cache_path = "/var/cache/bridge"
enable_cache = true
stream_timeout = "1.5s"
transport = "zap"
debug_addr = "127.0.0.1:9090"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.EngineTCPPort != "18000" || cfg.EngineSocketPath != "/tmp/engine.sock" {
		t.Fatalf("endpoints = %q %q", cfg.EngineTCPPort, cfg.EngineSocketPath)
	}
	if cfg.Token != "secret" || !cfg.EnableCache || cfg.Transport != TransportZAP {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.StreamTimeout != 1500*time.Millisecond {
		t.Fatalf("StreamTimeout = %s", cfg.StreamTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want default", cfg.LogLevel)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `enable_cache = true`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.EnableCache {
		t.Fatal("cache enabled without cache_path")
	}
	if cfg.Transport != DefaultTransport {
		t.Fatalf("Transport = %q", cfg.Transport)
	}
}

func TestLoadConfigTimeoutMS(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `stream_timeout_ms = 250`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StreamTimeout != 250*time.Millisecond {
		t.Fatalf("StreamTimeout = %s", cfg.StreamTimeout)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	for name, body := range map[string]string{
		"bad duration":  `stream_timeout = "soon"`,
		"bad transport": `transport = "smoke"`,
		"bad toml":      `engine_tcp_port = `,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	body := "engine_tcp_port: \"18001\"\ntransport: zap\nstream_timeout_ms: 100\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.EngineTCPPort != "18001" || cfg.Transport != TransportZAP {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.StreamTimeout != 100*time.Millisecond {
		t.Fatalf("StreamTimeout = %s", cfg.StreamTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want default", cfg.LogLevel)
	}
}
