// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command bridgectl invokes a method on a running bridge server.
//
//	bridgectl --addr localhost:18000 /core.v1.HealthService/Ping
//	bridgectl --transport zap --addr unix:///tmp/engine.sock /bridge.v1.DebugService/Echo hello
//	bridgectl --rpc http://localhost:9090/rpc /core.v1.HealthService/Ping
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/luxfi/bridge"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("bridgectl", pflag.ContinueOnError)
	var (
		addr      = fs.StringP("addr", "a", "localhost:18000", "engine address (host:port or unix:///path)")
		transport = fs.StringP("transport", "t", bridge.DefaultTransport, "engine transport (grpc, zap)")
		rpcURL    = fs.String("rpc", "", "JSON-RPC endpoint URL; overrides --addr")
		token     = fs.String("token", "", "bearer token")
		useStdin  = fs.Bool("stdin", false, "read the payload from stdin")
		timeout   = fs.Duration("timeout", 10*time.Second, "call timeout")
		verbose   = fs.BoolP("verbose", "v", false, "debug logging to stderr")
	)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: bridgectl [flags] <method> [payload]\n\n%s", fs.FlagUsages())
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return errors.New("method is required")
	}
	method := fs.Arg(0)

	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer log.Sync()
		bridge.SetLogger(log)
	}

	var payload []byte
	switch {
	case *useStdin:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		payload = b
	case fs.NArg() > 1:
		payload = []byte(fs.Arg(1))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := invoke(ctx, method, payload, *addr, *transport, *rpcURL, *token)
	if err != nil {
		return err
	}
	return printResponse(stdout, method, resp)
}

func invoke(ctx context.Context, method string, payload []byte, addr, transport, rpcURL, token string) ([]byte, error) {
	if rpcURL != "" {
		uri, err := url.Parse(rpcURL)
		if err != nil {
			return nil, fmt.Errorf("parse rpc url: %w", err)
		}
		var opts []bridge.RequestOption
		if token != "" {
			opts = append(opts, bridge.WithBearerToken(token))
		}
		return bridge.InvokeJSON(ctx, uri, method, payload, opts...)
	}

	client, err := bridge.Dial(ctx, addr, bridge.WithTransport(transport), bridge.WithToken(token))
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.CallRaw(ctx, method, payload)
}

func printResponse(w io.Writer, method string, resp []byte) error {
	if method == bridge.HealthPingMethod {
		var ping bridge.PingResponse
		if err := ping.UnmarshalBinary(resp); err != nil {
			return fmt.Errorf("decode health response: %w", err)
		}
		out, err := json.Marshal(map[string]string{
			"timestamp": ping.Timestamp.AsTime().Format(time.RFC3339Nano),
			"version":   ping.Version,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", out)
		return err
	}
	_, err := w.Write(resp)
	return err
}
