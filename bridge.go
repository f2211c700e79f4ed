// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"bytes"
	"context"
	"sync"
	"unsafe"

	"go.uber.org/zap"
)

// Lifecycle is the transport collaborator started and stopped through the
// boundary. The bridge passes Config through without interpreting it.
type Lifecycle interface {
	Start(cfg Config) error
	Stop() error
}

// Option configures a Bridge
type Option func(*options)

type options struct {
	log       *zap.Logger
	registry  *Registry
	lifecycle Lifecycle
}

// WithLogger sets the bridge logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRegistry shares an existing allocation registry
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithLifecycle sets the collaborator behind StartServer/StopServer
func WithLifecycle(lc Lifecycle) Option {
	return func(o *options) { o.lifecycle = lc }
}

// Bridge ties the allocation registry and the dispatcher into the boundary
// entry points. All methods are safe for concurrent use.
type Bridge struct {
	registry   *Registry
	dispatcher *Dispatcher
	log        *zap.Logger

	lifeMu    sync.Mutex
	lifecycle Lifecycle
	started   bool
}

// New creates a bridge with its own registry and an empty dispatcher.
func New(opts ...Option) *Bridge {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = Logger()
	}
	if o.registry == nil {
		o.registry = NewRegistry(o.log)
	}
	return &Bridge{
		registry:   o.registry,
		dispatcher: NewDispatcher(),
		log:        o.log,
		lifecycle:  o.lifecycle,
	}
}

// Registry returns the bridge's allocation registry.
func (b *Bridge) Registry() *Registry { return b.registry }

// Dispatcher returns the bridge's dispatcher.
func (b *Bridge) Dispatcher() *Dispatcher { return b.dispatcher }

// Register makes h the active handler.
func (b *Bridge) Register(h Handler) {
	b.dispatcher.Register(h)
	b.log.Debug("handler registered")
}

// Invoke is the boundary entry point. The request is read in place from
// caller memory; a successful response is transferred to the caller, who
// must release it with Free. Every failure degrades to Empty().
func (b *Bridge) Invoke(method string, data unsafe.Pointer, n int64) TransferBuffer {
	method = SanitizeMethod(method)
	req := View(data, n)
	resp, err := b.dispatcher.Invoke(context.Background(), method, req)
	recordInvocation(err)
	if err != nil {
		b.log.Warn("invoke failed",
			zap.String("method", method),
			zap.Int64("len", n),
			zap.Error(err))
		return Empty()
	}
	out := b.transferReply(req, resp)
	recordTransfer(out)
	return out
}

// transferReply hands resp to the caller. A reply the bridge cannot own
// outright is copied first: one that aliases the request view still
// belongs to the caller, and one whose backing array is already live was
// handed out by an earlier call.
func (b *Bridge) transferReply(req, resp []byte) TransferBuffer {
	if len(resp) == 0 {
		return Empty()
	}
	if overlaps(req, resp) {
		b.log.Debug("reply aliases request, copying", zap.Int("len", len(resp)))
		return b.registry.FromOwnedBytes(bytes.Clone(resp))
	}
	if out, ok := b.registry.TransferUnique(resp, goHeap); ok {
		return out
	}
	b.log.Debug("reply already transferred, copying", zap.Int("len", len(resp)))
	return b.registry.FromOwnedBytes(bytes.Clone(resp))
}

// overlaps reports whether the backing arrays of a and b share any byte.
func overlaps(a, b []byte) bool {
	if cap(a) == 0 || cap(b) == 0 {
		return false
	}
	as := uintptr(unsafe.Pointer(unsafe.SliceData(a)))
	bs := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	return as < bs+uintptr(cap(b)) && bs < as+uintptr(cap(a))
}

// InvokeWithMeta accepts out-of-band metadata alongside the request. The
// metadata is not forwarded; only the primary request reaches the handler.
func (b *Bridge) InvokeWithMeta(method string, data unsafe.Pointer, n int64, meta unsafe.Pointer, metaLen int64) TransferBuffer {
	if ce := b.log.Check(zap.DebugLevel, "metadata ignored"); ce != nil {
		ce.Write(zap.Int("meta_len", len(View(meta, metaLen))))
	}
	return b.Invoke(method, data, n)
}

// Free releases a buffer returned by Invoke. Any other address, including
// nil and already released ones, is ignored.
func (b *Bridge) Free(addr unsafe.Pointer) {
	recordRelease(b.registry.Release(addr))
}

// SetLifecycle replaces the transport collaborator. While the current
// collaborator is running it is kept and ErrAlreadyStarted is returned.
func (b *Bridge) SetLifecycle(lc Lifecycle) error {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()
	if b.started {
		b.log.Warn("set lifecycle", zap.Error(ErrAlreadyStarted))
		return ErrAlreadyStarted
	}
	b.lifecycle = lc
	return nil
}

// StartServer starts the lifecycle collaborator. It returns 0 on success
// and -1 on failure or when already started. Without a collaborator it is
// a no-op returning 0.
func (b *Bridge) StartServer(cfg Config) int {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()

	if b.lifecycle == nil {
		b.log.Info("no lifecycle collaborator, running in FFI-only mode")
		return 0
	}
	if b.started {
		b.log.Warn("start server", zap.Error(ErrAlreadyStarted))
		return -1
	}
	if err := b.lifecycle.Start(cfg); err != nil {
		b.log.Error("start server", zap.Error(err))
		return -1
	}
	b.started = true
	return 0
}

// StopServer stops the lifecycle collaborator. Stopping a bridge that was
// never started returns 0.
func (b *Bridge) StopServer() int {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()

	if b.lifecycle == nil || !b.started {
		return 0
	}
	b.started = false
	if err := b.lifecycle.Stop(); err != nil {
		b.log.Error("stop server", zap.Error(err))
		return -1
	}
	return 0
}

var defaultBridge = sync.OnceValue(func() *Bridge { return New() })

// Default returns the process-wide bridge used by the C entry points. It
// is created on first use and lives for the rest of the process.
func Default() *Bridge { return defaultBridge() }

// RegisterHandler makes h the active handler of the default bridge.
func RegisterHandler(h Handler) { Default().Register(h) }

// InvokeBackend invokes the default bridge.
func InvokeBackend(method string, data unsafe.Pointer, n int64) TransferBuffer {
	return Default().Invoke(method, data, n)
}

// InvokeBackendWithMeta invokes the default bridge with metadata.
func InvokeBackendWithMeta(method string, data unsafe.Pointer, n int64, meta unsafe.Pointer, metaLen int64) TransferBuffer {
	return Default().InvokeWithMeta(method, data, n, meta, metaLen)
}

// FreeTransferBuffer releases a buffer returned by the default bridge.
func FreeTransferBuffer(addr unsafe.Pointer) { Default().Free(addr) }

// StartServer starts the default bridge's lifecycle collaborator.
func StartServer(cfg Config) int { return Default().StartServer(cfg) }

// StopServer stops the default bridge's lifecycle collaborator.
func StopServer() int { return Default().StopServer() }
