// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const upperMethod = "/test.v1.TextService/Upper"

func TestClientConnUnary(t *testing.T) {
	r := newCoreRouter(t)
	if err := Route(r, upperMethod, Proto, func(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
		return wrapperspb.String(req.GetValue() + "!"), nil
	}); err != nil {
		t.Fatalf("Route: %v", err)
	}
	b := New()
	b.Register(r)

	var conn grpc.ClientConnInterface = NewClientConn(b.Dispatcher())

	var out wrapperspb.StringValue
	if err := conn.Invoke(context.Background(), upperMethod, wrapperspb.String("hi"), &out); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.GetValue() != "hi!" {
		t.Fatalf("got %q, want hi!", out.GetValue())
	}

	var pong wrapperspb.StringValue
	if err := conn.Invoke(context.Background(), pingMethod, &emptypb.Empty{}, &pong); err != nil {
		t.Fatalf("Invoke ping: %v", err)
	}
	if pong.GetValue() != "pong" {
		t.Fatalf("got %q, want pong", pong.GetValue())
	}
}

func TestClientConnErrors(t *testing.T) {
	ctx := context.Background()

	conn := NewClientConn(NewDispatcher())
	err := conn.Invoke(ctx, pingMethod, &emptypb.Empty{}, &wrapperspb.StringValue{})
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("no handler: err = %v, want Unimplemented", err)
	}

	d := NewDispatcher()
	d.Register(newCoreRouter(t))
	conn = NewClientConn(d)
	err = conn.Invoke(ctx, "/nope.v1.Nope/Nope", &emptypb.Empty{}, &wrapperspb.StringValue{})
	if status.Code(err) != codes.Unknown {
		t.Fatalf("unknown method: err = %v, want Unknown", err)
	}

	if err := conn.Invoke(ctx, pingMethod, "not a message", &wrapperspb.StringValue{}); err == nil {
		t.Fatal("non-proto args accepted")
	}

	if _, err := conn.NewStream(ctx, &grpc.StreamDesc{}, "/svc/Watch"); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("NewStream err = %v", err)
	}
}
