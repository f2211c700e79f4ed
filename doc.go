// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridge lets a managed runtime (Dart, a JVM, anything with its
// own collector) call methods implemented in Go through a C ABI without
// copying request bytes and without either side freeing the other's
// memory.
//
// # Memory model
//
// Requests are read in place: View wraps the caller's pointer and length
// in a slice that is only valid for the duration of the call.
//
// Responses are transferred: the slice returned by the handler is pinned,
// recorded in the Registry under its address, and handed to the caller as
// a TransferBuffer. The caller gives it back with FreeTransferBuffer, which
// reclaims it exactly once. Releasing nil, an unknown address, or the same
// address twice does nothing.
//
// # Dispatch
//
// One Handler is active per Bridge. The bridge does not look at method
// names; a Router maps them to typed handlers:
//
//	r := bridge.NewRouter()
//	bridge.Route(r, "/greeter.v1.Greeter/Hello", bridge.Proto,
//	    func(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
//	        return wrapperspb.String("hello " + req.GetValue()), nil
//	    })
//	bridge.RegisterHandler(r)
//
// Any failure (no handler, handler error) reaches the caller as an empty
// TransferBuffer. Details are logged through the package zap logger.
//
// # Transports
//
// The same dispatcher can be served over the network by Server, the
// lifecycle collaborator behind StartServer:
//
//	go build              # gRPC (default) and ZAP engine transports
//	bridged --transport zap --engine-tcp-port 18000
//
// Client usage:
//
//	client, err := bridge.Dial(ctx, "localhost:18000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	resp, err := client.CallRaw(ctx, bridge.HealthPingMethod, nil)
//
// # Architecture
//
//   - buffer.go, registry.go, allocator.go: transfer buffers and ownership tracking
//   - dispatcher.go, router.go, codec.go: handler slot and method routing
//   - bridge.go: boundary entry points and the process-wide Default bridge
//   - clientconn.go: in-process grpc.ClientConnInterface for generated clients
//   - stubs.go: streaming, cache and callback entry points kept for ABI stability
//   - server.go, transport.go, zap.go, grpc.go, jsonrpc.go: network lifecycle
//   - cmd/libbridge: the C ABI, built with -buildmode=c-shared
package bridge
