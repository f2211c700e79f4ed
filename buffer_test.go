// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"bytes"
	"testing"
	"unsafe"
)

func TestViewEmpty(t *testing.T) {
	src := []byte("abc")
	p := unsafe.Pointer(&src[0])

	tests := []struct {
		name string
		data unsafe.Pointer
		n    int64
	}{
		{"nil pointer", nil, 5},
		{"zero length", p, 0},
		{"negative length", p, -1},
		{"nil and zero", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v := View(tt.data, tt.n); len(v) != 0 {
				t.Fatalf("View(%v, %d) = %q, want empty", tt.data, tt.n, v)
			}
		})
	}
}

func TestViewAliasesCallerMemory(t *testing.T) {
	for _, size := range []int{1, 1 << 20} {
		src := make([]byte, size)
		for i := range src {
			src[i] = byte(i * 7)
		}
		v := View(unsafe.Pointer(&src[0]), int64(len(src)))
		if len(v) != size {
			t.Fatalf("len = %d, want %d", len(v), size)
		}
		if &v[0] != &src[0] {
			t.Fatal("view copied caller memory")
		}
		if !bytes.Equal(v, src) {
			t.Fatalf("size %d: contents differ", size)
		}
	}
}

func TestTransferBufferEmpty(t *testing.T) {
	if !Empty().IsEmpty() {
		t.Fatal("Empty() is not empty")
	}
	if b := Empty().Bytes(); b != nil {
		t.Fatalf("Empty().Bytes() = %v", b)
	}

	src := []byte("x")
	tb := TransferBuffer{Data: unsafe.Pointer(&src[0]), Len: 0}
	if !tb.IsEmpty() {
		t.Fatal("zero length buffer is not empty")
	}
}

func TestSanitizeMethod(t *testing.T) {
	if got := SanitizeMethod("/svc.v1.Svc/Get"); got != "/svc.v1.Svc/Get" {
		t.Fatalf("valid method changed: %q", got)
	}
	if got := SanitizeMethod("bad\xff\xfe"); got != "" {
		t.Fatalf("invalid UTF-8 = %q, want empty", got)
	}
	if got := SanitizeMethod(""); got != "" {
		t.Fatalf("empty = %q", got)
	}
}
