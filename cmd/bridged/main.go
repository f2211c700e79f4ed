// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command bridged serves the bridge dispatcher over the network without a
// managed host. It is the process the conformance and load tools talk to.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/luxfi/bridge"
)

var version = "dev"

// EchoMethod returns the request bytes unchanged.
const EchoMethod = "/bridge.v1.DebugService/Echo"

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("bridged", pflag.ContinueOnError)
	var (
		configPath   = fs.StringP("config", "c", "", "config file (TOML, or YAML by extension)")
		transport    = fs.StringP("transport", "t", bridge.DefaultTransport, "engine transport (grpc, zap)")
		socketPath   = fs.String("engine-socket", "", "unix socket path for the engine server")
		tcpPort      = fs.String("engine-tcp-port", "", "TCP port for the engine server")
		debugAddr    = fs.String("debug-addr", "", "JSON-RPC and /metrics listen address")
		token        = fs.String("token", "", "bearer token required from clients")
		logLevel     = fs.String("log-level", "info", "log level (debug, info, warn, error)")
		printVersion = fs.Bool("version", false, "print version and exit")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *printVersion {
		fmt.Printf("bridged %s\n", version)
		return nil
	}

	cfg := bridge.DefaultConfig()
	if *configPath != "" {
		loaded, err := bridge.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	// Flags given explicitly win over the file.
	if fs.Changed("transport") || *configPath == "" {
		cfg.Transport = *transport
	}
	if fs.Changed("engine-socket") {
		cfg.EngineSocketPath = *socketPath
	}
	if fs.Changed("engine-tcp-port") {
		cfg.EngineTCPPort = *tcpPort
	}
	if fs.Changed("debug-addr") {
		cfg.DebugAddr = *debugAddr
	}
	if fs.Changed("token") {
		cfg.Token = *token
	}
	if fs.Changed("log-level") || *configPath == "" {
		cfg.LogLevel = *logLevel
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()
	bridge.SetLogger(log)

	router := bridge.NewRouter()
	if err := bridge.RegisterHealth(router, version); err != nil {
		return err
	}
	if err := router.RegisterRaw(EchoMethod, echo); err != nil {
		return err
	}

	b := bridge.New(bridge.WithLogger(log))
	b.Register(router)
	srv := bridge.NewServer(b.Dispatcher(), log.Named("server"))
	if err := b.SetLifecycle(srv); err != nil {
		return err
	}

	if code := b.StartServer(cfg); code != 0 {
		return fmt.Errorf("start server failed (code %d)", code)
	}
	defer b.StopServer()

	log.Info("bridged started",
		zap.String("version", version),
		zap.String("transport", cfg.Transport),
		zap.Strings("methods", router.Methods()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-srv.Errors():
		return err
	}
}

func echo(_ context.Context, payload []byte) ([]byte, error) {
	// payload aliases caller memory.
	return append([]byte(nil), payload...), nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
