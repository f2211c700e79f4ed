// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"errors"
	"testing"
)

func TestStreamingUnavailable(t *testing.T) {
	opens := map[string]func() (int64, error){
		"server": func() (int64, error) { return ServerStream("/svc/Watch", []byte("x")) },
		"client": func() (int64, error) { return ClientStream("/svc/Upload") },
		"bidi":   func() (int64, error) { return BidiStream("/svc/Chat") },
	}
	for name, open := range opens {
		id, err := open()
		if id != StreamUnavailable || !errors.Is(err, ErrNotImplemented) {
			t.Fatalf("%s stream = %d, %v", name, id, err)
		}
	}

	for name, err := range map[string]error{
		"send":        SendStreamData(1, []byte("x")),
		"close":       CloseStream(1),
		"close input": CloseStreamInput(1),
		"ready":       StreamReady(1),
		"callback":    RegisterDartCallback(0),
		"stream cb":   RegisterStreamCallback(0),
		"response":    SendFfiResponse(1, nil),
	} {
		if !errors.Is(err, ErrNotImplemented) {
			t.Fatalf("%s = %v", name, err)
		}
	}
}

func TestCacheInert(t *testing.T) {
	if err := CachePut("store", "k", []byte("v"), 60); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("CachePut = %v", err)
	}
	tb, _ := CacheGet("store", "k")
	if !tb.IsEmpty() {
		t.Fatalf("CacheGet = %+v, want empty", tb)
	}
	if ok, _ := CacheContains("store", "k"); ok {
		t.Fatal("CacheContains reported a hit")
	}
	if err := CacheDelete("store", "k"); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("CacheDelete = %v", err)
	}
}
