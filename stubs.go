// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

// StreamUnavailable is the stream identifier reported while streaming is
// not available. Real identifiers are positive.
const StreamUnavailable int64 = -1

// Streaming surface. These entry points keep the C ABI stable; each one
// reports ErrNotImplemented.

func ServerStream(method string, payload []byte) (int64, error) {
	return StreamUnavailable, ErrNotImplemented
}

func ClientStream(method string) (int64, error) {
	return StreamUnavailable, ErrNotImplemented
}

func BidiStream(method string) (int64, error) {
	return StreamUnavailable, ErrNotImplemented
}

func SendStreamData(streamID int64, payload []byte) error { return ErrNotImplemented }

func CloseStream(streamID int64) error { return ErrNotImplemented }

func CloseStreamInput(streamID int64) error { return ErrNotImplemented }

func StreamReady(streamID int64) error { return ErrNotImplemented }

// Reverse-callback surface (native to managed). Inert.

func RegisterDartCallback(callback uintptr) error { return ErrNotImplemented }

func RegisterStreamCallback(callback uintptr) error { return ErrNotImplemented }

func SendFfiResponse(requestID int64, payload []byte) error { return ErrNotImplemented }

// Cache surface. A real cache is a separate subsystem; lookups miss and
// mutations are accepted and dropped.

func CacheGet(store, key string) (TransferBuffer, error) {
	return Empty(), ErrNotImplemented
}

func CachePut(store, key string, value []byte, ttlSeconds int64) error { return ErrNotImplemented }

func CacheContains(store, key string) (bool, error) { return false, ErrNotImplemented }

func CacheDelete(store, key string) error { return ErrNotImplemented }
