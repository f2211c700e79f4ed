// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// CoreArgument is the Go form of the C struct passed to StartServer.
// Null C strings arrive as "".
type CoreArgument struct {
	StoragePath      string
	CachePath        string
	EngineSocketPath string
	EngineTCPPort    string
	ViewSocketPath   string
	ViewTCPPort      string
	Token            string
	EnableCache      int32
	StreamTimeoutMS  int64
}

// Config is the environment handed to the lifecycle collaborator. The
// bridge core passes it through unread.
type Config struct {
	StoragePath      string
	CachePath        string
	EngineSocketPath string        // UDS path for the engine server
	EngineTCPPort    string        // TCP port for the engine server
	ViewSocketPath   string        // UDS path of the view-side server
	ViewTCPPort      string        // TCP port of the view-side server
	Token            string        // bearer token checked by network transports
	EnableCache      bool          // requires CachePath
	StreamTimeout    time.Duration // 0 means unlimited

	Transport string // engine transport: "grpc" or "zap"
	DebugAddr string // JSON-RPC and /metrics listener, empty disables
	LogLevel  string
}

// DefaultConfig returns a config with no listeners.
func DefaultConfig() Config {
	return Config{
		Transport: TransportGRPC,
		LogLevel:  "info",
	}
}

// NewConfig converts a CoreArgument. The cache is enabled only when a
// cache path is given and the flag is exactly 1.
func NewConfig(arg CoreArgument) Config {
	cfg := DefaultConfig()
	cfg.StoragePath = arg.StoragePath
	cfg.CachePath = arg.CachePath
	cfg.EngineSocketPath = arg.EngineSocketPath
	cfg.EngineTCPPort = arg.EngineTCPPort
	cfg.ViewSocketPath = arg.ViewSocketPath
	cfg.ViewTCPPort = arg.ViewTCPPort
	cfg.Token = arg.Token
	cfg.EnableCache = arg.CachePath != "" && arg.EnableCache == 1
	cfg.StreamTimeout = time.Duration(arg.StreamTimeoutMS) * time.Millisecond
	return cfg
}

// Validate checks the fields the bridge's own collaborator depends on.
func (c Config) Validate() error {
	if !HasTransport(c.Transport) {
		return fmt.Errorf("config: unknown transport %q (available: %s)",
			c.Transport, strings.Join(AvailableTransports(), ", "))
	}
	if c.StreamTimeout < 0 {
		return fmt.Errorf("config: negative stream timeout %s", c.StreamTimeout)
	}
	return nil
}

type fileConfig struct {
	StoragePath      string `toml:"storage_path" yaml:"storage_path"`
	CachePath        string `toml:"cache_path" yaml:"cache_path"`
	EngineSocketPath string `toml:"engine_socket_path" yaml:"engine_socket_path"`
	EngineTCPPort    string `toml:"engine_tcp_port" yaml:"engine_tcp_port"`
	ViewSocketPath   string `toml:"view_socket_path" yaml:"view_socket_path"`
	ViewTCPPort      string `toml:"view_tcp_port" yaml:"view_tcp_port"`
	Token            string `toml:"token" yaml:"token"`
	EnableCache      bool   `toml:"enable_cache" yaml:"enable_cache"`
	StreamTimeout    string `toml:"stream_timeout" yaml:"stream_timeout"`
	StreamTimeoutMS  int64  `toml:"stream_timeout_ms" yaml:"stream_timeout_ms"`
	Transport        string `toml:"transport" yaml:"transport"`
	DebugAddr        string `toml:"debug_addr" yaml:"debug_addr"`
	LogLevel         string `toml:"log_level" yaml:"log_level"`
}

// LoadConfig reads a TOML file, or YAML when the extension is .yaml or
// .yml. Keys absent from the file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	var (
		raw     fileConfig
		defined func(key string) bool
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		var keys map[string]yaml.Node
		if err := yaml.Unmarshal(data, &keys); err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		defined = func(key string) bool {
			_, ok := keys[key]
			return ok
		}
	default:
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		defined = func(key string) bool { return meta.IsDefined(key) }
	}
	return raw.apply(DefaultConfig(), defined)
}

// apply overlays the keys present in the file onto cfg and validates the
// result.
func (raw fileConfig) apply(cfg Config, defined func(key string) bool) (Config, error) {
	str := func(key, v string, dst *string) {
		if defined(key) {
			*dst = strings.TrimSpace(v)
		}
	}
	str("storage_path", raw.StoragePath, &cfg.StoragePath)
	str("cache_path", raw.CachePath, &cfg.CachePath)
	str("engine_socket_path", raw.EngineSocketPath, &cfg.EngineSocketPath)
	str("engine_tcp_port", raw.EngineTCPPort, &cfg.EngineTCPPort)
	str("view_socket_path", raw.ViewSocketPath, &cfg.ViewSocketPath)
	str("view_tcp_port", raw.ViewTCPPort, &cfg.ViewTCPPort)
	str("token", raw.Token, &cfg.Token)
	str("transport", raw.Transport, &cfg.Transport)
	str("debug_addr", raw.DebugAddr, &cfg.DebugAddr)
	str("log_level", raw.LogLevel, &cfg.LogLevel)

	if defined("enable_cache") {
		cfg.EnableCache = raw.EnableCache && cfg.CachePath != ""
	}

	if defined("stream_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.StreamTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse stream_timeout: %w", err)
		}
		cfg.StreamTimeout = d
	}

	if defined("stream_timeout_ms") {
		cfg.StreamTimeout = time.Duration(raw.StreamTimeoutMS) * time.Millisecond
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
