// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	pingMethod = "/core.v1.CoreService/Ping"
	getMethod  = "/core.v1.CoreService/Get"
)

type getRequest struct {
	Key string `cbor:"key" json:"key"`
}

type getReply struct {
	Key   string `cbor:"key" json:"key"`
	Value []byte `cbor:"value" json:"value"`
	Found bool   `cbor:"found" json:"found"`
}

// newCoreRouter routes the methods used by the conformance tests.
func newCoreRouter(t testing.TB) *Router {
	t.Helper()
	store := map[string][]byte{"alpha": []byte("one")}
	r := NewRouter()
	if err := Route(r, pingMethod, Proto, func(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
		return wrapperspb.String("pong"), nil
	}); err != nil {
		t.Fatalf("route ping: %v", err)
	}
	if err := Route(r, getMethod, CBOR, func(_ context.Context, req *getRequest) (*getReply, error) {
		v, ok := store[req.Key]
		return &getReply{Key: req.Key, Value: v, Found: ok}, nil
	}); err != nil {
		t.Fatalf("route get: %v", err)
	}
	return r
}

func TestRouterProtoPing(t *testing.T) {
	r := newCoreRouter(t)
	resp, err := r.Handle(context.Background(), pingMethod, nil)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	var out wrapperspb.StringValue
	if err := Proto.Decode(resp, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.GetValue() != "pong" {
		t.Fatalf("got %q, want pong", out.GetValue())
	}
}

func TestRouterCBORGet(t *testing.T) {
	r := newCoreRouter(t)
	for _, tt := range []struct {
		key   string
		found bool
		value string
	}{
		{"alpha", true, "one"},
		{"missing", false, ""},
	} {
		req, err := CBOR.Encode(&getRequest{Key: tt.key})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		resp, err := r.Handle(context.Background(), getMethod, req)
		if err != nil {
			t.Fatalf("Handle(%s): %v", tt.key, err)
		}
		var out getReply
		if err := CBOR.Decode(resp, &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Key != tt.key || out.Found != tt.found || string(out.Value) != tt.value {
			t.Fatalf("Get(%s) = %+v", tt.key, out)
		}
	}
}

func TestRouterUnknownMethod(t *testing.T) {
	r := newCoreRouter(t)
	_, err := r.Handle(context.Background(), "/nope/Nope", nil)
	if err == nil || !strings.Contains(err.Error(), "unknown method: /nope/Nope") {
		t.Fatalf("err = %v", err)
	}
}

func TestRouterDecodeError(t *testing.T) {
	r := newCoreRouter(t)
	_, err := r.Handle(context.Background(), pingMethod, []byte{0xff, 0xff, 0xff})
	if err == nil || !strings.Contains(err.Error(), "decode request") {
		t.Fatalf("err = %v", err)
	}
}

func TestRouterRegisterRawValidation(t *testing.T) {
	r := NewRouter()
	if err := r.RegisterRaw("", func(context.Context, []byte) ([]byte, error) { return nil, nil }); err == nil {
		t.Fatal("empty method accepted")
	}
	if err := r.RegisterRaw("m", nil); err == nil {
		t.Fatal("nil handler accepted")
	}
}

func TestRouterMethodsSorted(t *testing.T) {
	r := newCoreRouter(t)
	if err := RegisterHealth(r, "test"); err != nil {
		t.Fatalf("RegisterHealth: %v", err)
	}
	got := r.Methods()
	want := []string{getMethod, pingMethod, HealthPingMethod}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Methods = %v, want %v", got, want)
	}
}

func TestRouteHandlerError(t *testing.T) {
	r := NewRouter()
	cause := errors.New("boom")
	if err := Route(r, "m", nil, func(context.Context, *getRequest) (*getReply, error) {
		return nil, cause
	}); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if _, err := r.Handle(context.Background(), "m", []byte(`{"key":"a"}`)); !errors.Is(err, cause) {
		t.Fatalf("err = %v, want %v", err, cause)
	}
}

func TestHealthPing(t *testing.T) {
	r := NewRouter()
	if err := RegisterHealth(r, "1.2.3"); err != nil {
		t.Fatalf("RegisterHealth: %v", err)
	}
	resp, err := r.Handle(context.Background(), HealthPingMethod, nil)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	var ping PingResponse
	if err := ping.UnmarshalBinary(resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ping.Version != "1.2.3" {
		t.Fatalf("version = %q", ping.Version)
	}
	if err := ping.Timestamp.CheckValid(); err != nil {
		t.Fatalf("timestamp: %v", err)
	}
	if d := time.Since(ping.Timestamp.AsTime()); d < 0 || d > time.Minute {
		t.Fatalf("timestamp %s is not current", ping.Timestamp.AsTime())
	}
}

func TestPingResponseWire(t *testing.T) {
	want := &PingResponse{Timestamp: timestamppb.New(time.Unix(1700000000, 42).UTC()), Version: "v1"}
	b, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	// A field from a newer schema is skipped.
	b = protowire.AppendTag(b, 9, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	var got PingResponse
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got.Version != "v1" || !proto.Equal(got.Timestamp, want.Timestamp) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if err := got.UnmarshalBinary([]byte{0x0a, 0x05}); err == nil {
		t.Fatal("truncated message accepted")
	}
}

func TestCBORDeterministic(t *testing.T) {
	a, err := CBOR.Encode(map[string]int{"zeta": 1, "alpha": 2, "mid": 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := CBOR.Encode(map[string]int{"mid": 3, "alpha": 2, "zeta": 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("equal maps encoded differently")
	}
}

func TestProtoCodecRejectsPlainValues(t *testing.T) {
	if _, err := Proto.Encode(struct{}{}); err == nil {
		t.Fatal("encoded a non-proto value")
	}
	if err := Proto.Decode(nil, &getReply{}); err == nil {
		t.Fatal("decoded into a non-proto value")
	}
}

func TestBinaryCodecPassthrough(t *testing.T) {
	in := []byte{0, 1, 2}
	out, err := Binary.Encode(in)
	if err != nil || !bytes.Equal(out, in) {
		t.Fatalf("Encode = %v, %v", out, err)
	}
	var dst []byte
	if err := Binary.Decode(in, &dst); err != nil || !bytes.Equal(dst, in) {
		t.Fatalf("Decode = %v, %v", dst, err)
	}
}
