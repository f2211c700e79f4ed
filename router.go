// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// RawHandler handles raw byte RPC calls (for zero-copy)
type RawHandler func(ctx context.Context, payload []byte) ([]byte, error)

// Router is a Handler that routes by exact method name. It is the table
// generated service stubs fill in; the bridge itself only sees
// (method, bytes) -> bytes.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]RawHandler
}

// NewRouter creates an empty routing table.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]RawHandler)}
}

// RegisterRaw registers a raw byte handler. Registering a method again
// replaces its handler.
func (r *Router) RegisterRaw(method string, handler RawHandler) error {
	if method == "" {
		return errors.New("router: empty method name")
	}
	if handler == nil {
		return fmt.Errorf("router: nil handler for %s", method)
	}
	r.mu.Lock()
	r.handlers[method] = handler
	r.mu.Unlock()
	return nil
}

// Handle implements Handler.
func (r *Router) Handle(ctx context.Context, method string, payload []byte) ([]byte, error) {
	r.mu.RLock()
	handler, ok := r.handlers[method]
	r.mu.RUnlock()
	if !ok {
		return nil, unknownMethodError(method)
	}
	return handler(ctx, payload)
}

// Methods returns the routed method names in sorted order.
func (r *Router) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for m := range r.handlers {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Route registers a typed unary method: the request is decoded with codec
// into a fresh Req, fn is called, and the response is encoded with the
// same codec.
func Route[Req, Resp any](r *Router, method string, codec Codec, fn func(ctx context.Context, req *Req) (*Resp, error)) error {
	if codec == nil {
		codec = defaultCodec
	}
	return r.RegisterRaw(method, func(ctx context.Context, payload []byte) ([]byte, error) {
		req := new(Req)
		if len(payload) > 0 {
			if err := codec.Decode(payload, req); err != nil {
				return nil, fmt.Errorf("%s: decode request: %w", method, err)
			}
		}
		resp, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}
		out, err := codec.Encode(resp)
		if err != nil {
			return nil, fmt.Errorf("%s: encode response: %w", method, err)
		}
		return out, nil
	})
}
