// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

// Allocator reclaims memory that was handed across the boundary. Free
// receives the allocation reconstructed from the registry: its length is
// the logical length and its capacity is the full backing capacity.
// Free is called at most once per transferred allocation.
type Allocator interface {
	Free(buf []byte)
}

// GoAllocator owns buffers allocated on the Go heap. Freeing is a matter
// of dropping the pin and the last reference; the collector does the rest.
type GoAllocator struct{}

func (GoAllocator) Free([]byte) {}

var goHeap Allocator = GoAllocator{}
