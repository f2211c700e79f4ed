// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command libbridge is the C ABI of the bridge. Build it as a shared
// library:
//
//	go build -buildmode=c-shared -o libbridge.so ./cmd/libbridge
//
// Every TransferBuffer with a non-null data pointer returned by
// InvokeBackend or InvokeBackendWithMeta must be passed to
// FreeTransferBuffer exactly once.
package main

/*
#include <stdlib.h>

struct CoreArgument {
    char* storagePath;
    char* cachePath;
    char* engineSocketPath;
    char* engineTcpPort;
    char* viewSocketPath;
    char* viewTcpPort;
    char* token;
    int enableCache;
    long long streamTimeout;
};

typedef struct {
    void* data;
    long long len;
} TransferBuffer;
*/
import "C"

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/luxfi/bridge"
)

var version = "dev"

func init() {
	log, err := zap.NewProduction()
	if err != nil {
		log = zap.NewNop()
	}
	bridge.SetLogger(log.Named("libbridge"))

	router := bridge.NewRouter()
	if err := bridge.RegisterHealth(router, version); err != nil {
		log.Error("register health", zap.Error(err))
	}
	b := bridge.Default()
	b.Register(router)
	if err := b.SetLifecycle(bridge.NewServer(b.Dispatcher(), log.Named("server"))); err != nil {
		log.Error("set lifecycle", zap.Error(err))
	}
}

func goString(p *C.char) string {
	if p == nil {
		return ""
	}
	return C.GoString(p)
}

func toC(tb bridge.TransferBuffer) C.TransferBuffer {
	return C.TransferBuffer{data: tb.Data, len: C.longlong(tb.Len)}
}

// =============================================================================
// Lifecycle
// =============================================================================

//export StartServer
func StartServer(cArg C.struct_CoreArgument) C.int {
	arg := coreArgument{
		storagePath:      goString(cArg.storagePath),
		cachePath:        goString(cArg.cachePath),
		engineSocketPath: goString(cArg.engineSocketPath),
		engineTCPPort:    goString(cArg.engineTcpPort),
		viewSocketPath:   goString(cArg.viewSocketPath),
		viewTCPPort:      goString(cArg.viewTcpPort),
		token:            goString(cArg.token),
		enableCache:      int32(cArg.enableCache),
		streamTimeoutMS:  int64(cArg.streamTimeout),
	}
	return C.int(bridge.StartServer(arg.config()))
}

//export StopServer
func StopServer() C.int {
	return C.int(bridge.StopServer())
}

// =============================================================================
// Invocation
// =============================================================================

//export InvokeBackend
func InvokeBackend(method *C.char, data unsafe.Pointer, dataLen C.longlong) C.TransferBuffer {
	return toC(bridge.InvokeBackend(goString(method), data, int64(dataLen)))
}

//export InvokeBackendWithMeta
func InvokeBackendWithMeta(method *C.char, data unsafe.Pointer, dataLen C.longlong,
	meta unsafe.Pointer, metaLen C.longlong) C.TransferBuffer {
	return toC(bridge.InvokeBackendWithMeta(goString(method), data, int64(dataLen), meta, int64(metaLen)))
}

//export FreeTransferBuffer
func FreeTransferBuffer(data unsafe.Pointer) {
	bridge.FreeTransferBuffer(data)
}

// =============================================================================
// Streaming (not available)
// =============================================================================

//export ServerStream
func ServerStream(method *C.char, data unsafe.Pointer, dataLen C.longlong) C.longlong {
	id, _ := bridge.ServerStream(goString(method), bridge.View(data, int64(dataLen)))
	return C.longlong(id)
}

//export ClientStream
func ClientStream(method *C.char) C.longlong {
	id, _ := bridge.ClientStream(goString(method))
	return C.longlong(id)
}

//export BidiStream
func BidiStream(method *C.char) C.longlong {
	id, _ := bridge.BidiStream(goString(method))
	return C.longlong(id)
}

//export SendStreamData
func SendStreamData(streamID C.longlong, data unsafe.Pointer, dataLen C.longlong) C.int {
	return C.int(resultCode(bridge.SendStreamData(int64(streamID), bridge.View(data, int64(dataLen)))))
}

//export CloseStream
func CloseStream(streamID C.longlong) {
	_ = bridge.CloseStream(int64(streamID))
}

//export CloseStreamInput
func CloseStreamInput(streamID C.longlong) {
	_ = bridge.CloseStreamInput(int64(streamID))
}

//export StreamReady
func StreamReady(streamID C.longlong) {
	_ = bridge.StreamReady(int64(streamID))
}

// =============================================================================
// Reverse callbacks (inert)
// =============================================================================

//export RegisterDartCallback
func RegisterDartCallback(callback unsafe.Pointer) {
	_ = bridge.RegisterDartCallback(uintptr(callback))
}

//export RegisterStreamCallback
func RegisterStreamCallback(callback unsafe.Pointer) {
	_ = bridge.RegisterStreamCallback(uintptr(callback))
}

//export SendFfiResponse
func SendFfiResponse(requestID C.longlong, data unsafe.Pointer, dataLen C.longlong) {
	_ = bridge.SendFfiResponse(int64(requestID), bridge.View(data, int64(dataLen)))
}

// =============================================================================
// Cache (inert: lookups miss, mutations succeed without effect)
// =============================================================================

//export CacheGet
func CacheGet(storeName *C.char, key *C.char) C.TransferBuffer {
	tb, _ := bridge.CacheGet(goString(storeName), goString(key))
	return toC(tb)
}

//export CachePut
func CachePut(storeName *C.char, key *C.char, data unsafe.Pointer, dataLen C.longlong, ttlSeconds C.longlong) C.int {
	return C.int(cacheMutationCode(bridge.CachePut(goString(storeName), goString(key), bridge.View(data, int64(dataLen)), int64(ttlSeconds))))
}

//export CacheContains
func CacheContains(storeName *C.char, key *C.char) C.int {
	return C.int(boolCode(bridge.CacheContains(goString(storeName), goString(key))))
}

//export CacheDelete
func CacheDelete(storeName *C.char, key *C.char) C.int {
	return C.int(cacheMutationCode(bridge.CacheDelete(goString(storeName), goString(key))))
}

func main() {}
