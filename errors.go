// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNoHandler is returned by Invoke before any handler was registered.
	ErrNoHandler = errors.New("bridge: no handler registered")

	// ErrNotImplemented marks the streaming, cache and reverse-callback
	// surfaces, which exist for ABI stability only.
	ErrNotImplemented = errors.New("bridge: not implemented")

	// ErrAlreadyStarted is returned when StartServer is called twice
	// without an intervening StopServer.
	ErrAlreadyStarted = errors.New("bridge: server already started")
)

// HandlerError is an application-level failure reported by the registered
// handler. The message of the underlying error is preserved as is.
type HandlerError struct {
	Method string
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("bridge: handler error: %v", e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// unknownMethodError is what Router returns for unrouted method names.
func unknownMethodError(method string) error {
	return fmt.Errorf("unknown method: %s", method)
}
