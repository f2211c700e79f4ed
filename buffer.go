// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"unicode/utf8"
	"unsafe"
)

// TransferBuffer is the value that crosses the boundary. Its layout matches
// the C struct { void* data; long long len; }.
//
// A TransferBuffer is either a view into caller memory, valid only for the
// call that produced it, or a transferred allocation that stays valid until
// the caller releases it through FreeTransferBuffer. Both share this shape;
// only the registry knows which addresses are transferred.
type TransferBuffer struct {
	Data unsafe.Pointer
	Len  int64
}

// Empty returns the null buffer. It is the result of every failure path.
func Empty() TransferBuffer {
	return TransferBuffer{}
}

// IsEmpty reports whether b carries no data.
func (b TransferBuffer) IsEmpty() bool {
	return b.Data == nil || b.Len <= 0
}

// Bytes returns a view of the buffer contents without copying. For a
// transferred buffer the view is valid until the buffer is released.
func (b TransferBuffer) Bytes() []byte {
	return View(b.Data, b.Len)
}

// View returns a zero-copy, read-only view of n bytes at data. A nil
// address or a non-positive length yields the empty view. The returned
// slice aliases caller memory and must not be retained or written after
// the call that received it returns.
func View(data unsafe.Pointer, n int64) []byte {
	if data == nil || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(data), n)
}

// SanitizeMethod returns method unchanged when it is valid UTF-8 and the
// empty string otherwise.
func SanitizeMethod(method string) string {
	if !utf8.ValidString(method) {
		return ""
	}
	return method
}
