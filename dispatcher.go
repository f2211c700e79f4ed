// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"sync"
)

// Handler answers one invocation. payload may alias caller memory and is
// only valid until Handle returns; the returned slice becomes owned by the
// bridge.
type Handler interface {
	Handle(ctx context.Context, method string, payload []byte) ([]byte, error)
}

// HandlerFunc is a function adapter for Handler
type HandlerFunc func(ctx context.Context, method string, payload []byte) ([]byte, error)

func (f HandlerFunc) Handle(ctx context.Context, method string, payload []byte) ([]byte, error) {
	return f(ctx, method, payload)
}

// Dispatcher holds the single active handler. Registration and lookup are
// linearized by one lock; the handler itself runs outside it, so
// invocations proceed in parallel.
type Dispatcher struct {
	mu      sync.Mutex
	handler Handler
}

// NewDispatcher creates a dispatcher with no handler.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register makes h the active handler, replacing any previous one.
// Concurrent registrations race; the last writer wins.
func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()
}

// Registered reports whether a handler is set.
func (d *Dispatcher) Registered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handler != nil
}

// Invoke routes method and payload to the active handler. It does not
// interpret method, retry, or time out.
func (d *Dispatcher) Invoke(ctx context.Context, method string, payload []byte) ([]byte, error) {
	d.mu.Lock()
	h := d.handler
	d.mu.Unlock()

	if h == nil {
		return nil, ErrNoHandler
	}
	resp, err := h.Handle(ctx, method, payload)
	if err != nil {
		return nil, &HandlerError{Method: method, Err: err}
	}
	return resp, nil
}

// Handle lets a Dispatcher sit behind any transport that expects a Handler.
func (d *Dispatcher) Handle(ctx context.Context, method string, payload []byte) ([]byte, error) {
	return d.Invoke(ctx, method, payload)
}
