// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"testing"
)

func TestEchoCopies(t *testing.T) {
	in := []byte("abc")
	out, err := echo(context.Background(), in)
	if err != nil {
		t.Fatalf("echo: %v", err)
	}
	if string(out) != "abc" {
		t.Fatalf("echo = %q", out)
	}
	if &out[0] == &in[0] {
		t.Fatal("echo aliases the request")
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger("debug"); err != nil {
		t.Fatalf("newLogger(debug): %v", err)
	}
	if _, err := newLogger("chatty"); err == nil {
		t.Fatal("unknown level accepted")
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	if err := run([]string{"--transport", "smoke"}); err == nil {
		t.Fatal("unknown transport accepted")
	}
	if err := run([]string{"--version"}); err != nil {
		t.Fatalf("--version: %v", err)
	}
}
