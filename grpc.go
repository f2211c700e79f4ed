// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// rawCodec hands message bytes through untouched, so the dispatcher sees
// exactly what the client serialized. It names itself "proto" because
// generated clients send protobuf wire bytes.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case *[]byte:
		return *b, nil
	default:
		return nil, fmt.Errorf("raw codec: cannot marshal %T", v)
	}
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	b, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("raw codec: cannot unmarshal into %T", v)
	}
	*b = append((*b)[:0], data...)
	return nil
}

func (rawCodec) Name() string { return "proto" }

// grpcServer routes every gRPC method, known or not, to one Handler.
type grpcServer struct {
	srv     *grpc.Server
	handler Handler
	token   string
	log     *zap.Logger
}

func listenGRPC(h Handler, cfg Config, log *zap.Logger) transportServer {
	if log == nil {
		log = Logger()
	}
	s := &grpcServer{handler: h, token: cfg.Token, log: log}
	s.srv = grpc.NewServer(
		grpc.ForceServerCodec(rawCodec{}),
		grpc.UnknownServiceHandler(s.handleStream),
		grpc.StreamInterceptor(s.authInterceptor),
	)
	return s
}

func (s *grpcServer) Serve(_ context.Context, l net.Listener) error {
	err := s.srv.Serve(l)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

func (s *grpcServer) Close() error {
	s.srv.Stop()
	return nil
}

// handleStream answers a unary call: one request message, one response.
func (s *grpcServer) handleStream(_ any, stream grpc.ServerStream) error {
	method, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "method not found in stream context")
	}

	var req []byte
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}

	resp, err := s.handler.Handle(stream.Context(), method, req)
	if err != nil {
		s.log.Debug("grpc invoke", zap.String("method", method), zap.Error(err))
		return toStatus(err)
	}
	return stream.SendMsg(&resp)
}

func toStatus(err error) error {
	if errors.Is(err, ErrNoHandler) {
		return status.Error(codes.Unimplemented, err.Error())
	}
	if st, ok := status.FromError(err); ok {
		return st.Err()
	}
	return status.Error(codes.Unknown, err.Error())
}

// authInterceptor validates the bearer token in metadata
func (s *grpcServer) authInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if s.token == "" {
		return handler(srv, ss)
	}

	md, ok := metadata.FromIncomingContext(ss.Context())
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}

	tokens := md.Get("authorization")
	if len(tokens) == 0 {
		return status.Error(codes.Unauthenticated, "missing token")
	}

	if subtle.ConstantTimeCompare([]byte(tokens[0]), []byte("Bearer "+s.token)) != 1 {
		return status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(srv, ss)
}

func dialGRPC(ctx context.Context, addr string, o *dialOptions) (Client, error) {
	network, address := splitAddr(addr)
	target := address
	if network == "unix" {
		target = "unix://" + address
	}
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rawCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &grpcClient{conn: conn, codec: o.codec, token: o.token}, nil
}

type grpcClient struct {
	conn  *grpc.ClientConn
	codec Codec
	token string
}

func (c *grpcClient) outgoing(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}

func (c *grpcClient) Call(ctx context.Context, method string, args, reply interface{}) error {
	return callWithCodec(ctx, c, c.codec, method, args, reply)
}

func (c *grpcClient) CallRaw(ctx context.Context, method string, payload []byte) ([]byte, error) {
	var resp []byte
	if err := c.conn.Invoke(c.outgoing(ctx), method, payload, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Notify is a call whose response is discarded; gRPC has no one-way calls.
func (c *grpcClient) Notify(ctx context.Context, method string, args interface{}) error {
	payload, err := encodeArgs(c.codec, args)
	if err != nil {
		return err
	}
	_, err = c.CallRaw(ctx, method, payload)
	return err
}

func (c *grpcClient) Close() error {
	return c.conn.Close()
}
