// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"
)

func startDebug(t *testing.T, token string) *url.URL {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DebugAddr = "127.0.0.1:0"
	cfg.Token = token
	s := startServer(t, cfg)
	return &url.URL{Scheme: "http", Host: s.DebugAddr().String(), Path: "/rpc"}
}

func TestJSONRPCInvoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := InvokeJSON(ctx, startDebug(t, ""), echoMethod, []byte{0, 1, 2, 0xff})
	if err != nil {
		t.Fatalf("InvokeJSON: %v", err)
	}
	if string(resp) != "\x00\x01\x02\xff" {
		t.Fatalf("resp = %v", resp)
	}
}

func TestJSONRPCHandlerError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := InvokeJSON(ctx, startDebug(t, ""), "/nope/Nope", nil)
	if err == nil {
		t.Fatal("unknown method succeeded")
	}
}

func TestJSONRPCToken(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := startDebug(t, "secret")
	if _, err := InvokeJSON(ctx, uri, echoMethod, []byte("x")); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("unauthenticated err = %v", err)
	}
	resp, err := InvokeJSON(ctx, uri, echoMethod, []byte("x"), WithBearerToken("secret"))
	if err != nil {
		t.Fatalf("InvokeJSON: %v", err)
	}
	if string(resp) != "x" {
		t.Fatalf("resp = %q", resp)
	}
}
