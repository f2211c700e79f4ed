// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"

	"google.golang.org/grpc"
)

var _ grpc.ClientConnInterface = (*ClientConn)(nil)

// ClientConn lets generated gRPC clients call a Handler in process, with
// no network in between:
//
//	conn := bridge.NewClientConn(bridge.Default().Dispatcher())
//	client := pb.NewGreeterClient(conn)
//
// Only unary methods are supported.
type ClientConn struct {
	handler Handler
	codec   Codec
}

// NewClientConn creates a connection to h. Messages are protobuf encoded.
func NewClientConn(h Handler) *ClientConn {
	return &ClientConn{handler: h, codec: Proto}
}

// Invoke implements grpc.ClientConnInterface. Handler failures are
// reported as gRPC status errors, the same way the gRPC transport does.
func (c *ClientConn) Invoke(ctx context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	req, err := c.codec.Encode(args)
	if err != nil {
		return err
	}
	resp, err := c.handler.Handle(ctx, method, req)
	if err != nil {
		return toStatus(err)
	}
	return c.codec.Decode(resp, reply)
}

// NewStream implements grpc.ClientConnInterface. Streaming is not
// available in process.
func (c *ClientConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, ErrNotImplemented
}
