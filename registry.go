// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"runtime"
	"sync"
	"unsafe"

	"go.uber.org/zap"
)

// allocation is the reclamation record of one transferred buffer.
// Records are never mutated after insertion.
type allocation struct {
	length   int
	capacity int
	owner    Allocator
	pin      *runtime.Pinner
}

// Registry tracks every buffer whose ownership moved across the boundary
// and guarantees each is reclaimed exactly once by the allocator that
// produced it.
//
// The lock covers the table only. Freeing happens after it is released.
type Registry struct {
	mu      sync.Mutex
	entries map[unsafe.Pointer]allocation
	log     *zap.Logger
}

// NewRegistry creates an empty registry. A nil logger uses Logger().
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = Logger()
	}
	return &Registry{
		entries: make(map[unsafe.Pointer]allocation),
		log:     log,
	}
}

// FromOwnedBytes takes ownership of b without copying it and returns the
// transferred buffer describing it. b must not be used by the caller
// afterwards. An empty b has no address to hand out and yields Empty().
func (r *Registry) FromOwnedBytes(b []byte) TransferBuffer {
	return r.Transfer(b, goHeap)
}

// Transfer is FromOwnedBytes for memory owned by a specific allocator.
func (r *Registry) Transfer(b []byte, owner Allocator) TransferBuffer {
	if len(b) == 0 {
		return Empty()
	}
	addr := unsafe.Pointer(unsafe.SliceData(b))
	r.Register(addr, len(b), cap(b), owner)
	return TransferBuffer{Data: addr, Len: int64(len(b))}
}

// Register records a transferred allocation at addr. The backing array is
// pinned so the address stays valid while the foreign side holds it.
// Registering an address twice replaces the earlier record; that is a
// caller bug and is logged.
func (r *Registry) Register(addr unsafe.Pointer, length, capacity int, owner Allocator) {
	r.insert(addr, length, capacity, owner, true)
}

// TransferUnique is Transfer that refuses an allocation which is already
// live. It reports false, and records nothing, when b's backing array is
// still held by the caller from an earlier transfer.
func (r *Registry) TransferUnique(b []byte, owner Allocator) (TransferBuffer, bool) {
	if len(b) == 0 {
		return Empty(), true
	}
	addr := unsafe.Pointer(unsafe.SliceData(b))
	if !r.insert(addr, len(b), cap(b), owner, false) {
		return Empty(), false
	}
	return TransferBuffer{Data: addr, Len: int64(len(b))}, true
}

// insert records addr. With replace unset an existing record wins and
// insert reports false.
func (r *Registry) insert(addr unsafe.Pointer, length, capacity int, owner Allocator, replace bool) bool {
	if addr == nil {
		return false
	}
	if owner == nil {
		owner = goHeap
	}
	pin := new(runtime.Pinner)
	// No-op for memory outside the Go heap.
	pin.Pin(addr)

	r.mu.Lock()
	prev, exists := r.entries[addr]
	if exists && !replace {
		r.mu.Unlock()
		pin.Unpin()
		return false
	}
	r.entries[addr] = allocation{
		length:   length,
		capacity: capacity,
		owner:    owner,
		pin:      pin,
	}
	r.mu.Unlock()

	if exists {
		prev.pin.Unpin()
		r.log.Warn("transfer registered twice",
			zap.Uintptr("addr", uintptr(addr)),
			zap.Int("prev_len", prev.length),
			zap.Int("len", length))
	}
	return true
}

// Release reclaims the allocation at addr. Unknown addresses, nil, and
// addresses that were already released are no-ops. It reports whether an
// allocation was reclaimed.
func (r *Registry) Release(addr unsafe.Pointer) bool {
	if addr == nil {
		return false
	}

	r.mu.Lock()
	a, ok := r.entries[addr]
	if ok {
		delete(r.entries, addr)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	buf := unsafe.Slice((*byte)(addr), a.capacity)[:a.length]
	a.owner.Free(buf)
	a.pin.Unpin()
	return true
}

// Len returns the number of live transferred allocations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Lookup returns the logical length and backing capacity recorded for addr.
func (r *Registry) Lookup(addr unsafe.Pointer) (length, capacity int, ok bool) {
	r.mu.Lock()
	a, ok := r.entries[addr]
	r.mu.Unlock()
	return a.length, a.capacity, ok
}
