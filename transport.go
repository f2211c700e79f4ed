// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"net"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Transport types
const (
	TransportZAP  = "zap"  // length-prefixed frames over a stream socket
	TransportGRPC = "grpc" // gRPC with raw byte messages, default
)

// DefaultTransport is the default engine transport
const DefaultTransport = TransportGRPC

// transportServer serves a Handler on any number of listeners.
type transportServer interface {
	Serve(ctx context.Context, l net.Listener) error
	Close() error
}

type dialFunc func(ctx context.Context, addr string, o *dialOptions) (Client, error)
type listenFunc func(h Handler, cfg Config, log *zap.Logger) transportServer

var (
	transportsMu sync.RWMutex
	transports   = map[string]struct {
		dial   dialFunc
		listen listenFunc
	}{
		TransportZAP:  {dialZAP, listenZAP},
		TransportGRPC: {dialGRPC, listenGRPC},
	}
)

// registerTransport registers a new transport
func registerTransport(name string, dial dialFunc, listen listenFunc) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[name] = struct {
		dial   dialFunc
		listen listenFunc
	}{dial, listen}
}

func lookupTransport(name string) (dialFunc, listenFunc, bool) {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	t, ok := transports[name]
	return t.dial, t.listen, ok
}

// AvailableTransports returns the sorted list of available transport types
func AvailableTransports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	result := make([]string, 0, len(transports))
	for name := range transports {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasTransport checks if a transport is available
func HasTransport(name string) bool {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	_, ok := transports[name]
	return ok
}
