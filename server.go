// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server is the network lifecycle collaborator. It serves a Handler,
// normally a bridge's Dispatcher, on the engine endpoints named in Config
// and optionally exposes JSON-RPC and metrics on DebugAddr.
type Server struct {
	handler Handler
	log     *zap.Logger

	mu        sync.Mutex
	engine    transportServer
	listeners []net.Listener
	debug     *http.Server
	debugAddr net.Addr
	cancel    context.CancelFunc
	errs      chan error
}

// NewServer creates a stopped server for h.
func NewServer(h Handler, log *zap.Logger) *Server {
	if log == nil {
		log = Logger()
	}
	return &Server{handler: h, log: log}
}

// Start opens the engine listeners and begins serving. With no engine
// endpoint configured the server runs in FFI-only mode and only the debug
// listener, if any, is opened.
func (s *Server) Start(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine != nil {
		return ErrAlreadyStarted
	}

	listeners, err := openEngineListeners(cfg)
	if err != nil {
		return err
	}

	_, listen, _ := lookupTransport(cfg.Transport)
	engine := listen(s.handler, cfg, s.log)
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, len(listeners)+1)

	if len(listeners) == 0 {
		s.log.Info("running in FFI-only mode")
	}
	for _, l := range listeners {
		s.log.Info("serving", zap.String("transport", cfg.Transport), zap.Stringer("addr", l.Addr()))
		go func(l net.Listener) {
			if err := engine.Serve(ctx, l); err != nil {
				s.log.Error("serve", zap.Stringer("addr", l.Addr()), zap.Error(err))
				errs <- err
			}
		}(l)
	}

	if cfg.DebugAddr != "" {
		debug, addr, err := s.startDebug(cfg, errs)
		if err != nil {
			cancel()
			engine.Close()
			closeListeners(listeners)
			return err
		}
		s.debug = debug
		s.debugAddr = addr
	}

	s.engine = engine
	s.listeners = listeners
	s.cancel = cancel
	s.errs = errs
	return nil
}

// openEngineListeners opens the unix socket and TCP port concurrently.
// On any failure every listener already opened is closed.
func openEngineListeners(cfg Config) ([]net.Listener, error) {
	var (
		mu        sync.Mutex
		listeners []net.Listener
		g         errgroup.Group
	)
	add := func(l net.Listener) {
		mu.Lock()
		listeners = append(listeners, l)
		mu.Unlock()
	}

	if cfg.EngineSocketPath != "" {
		g.Go(func() error {
			if _, err := os.Stat(cfg.EngineSocketPath); err == nil {
				os.Remove(cfg.EngineSocketPath)
			}
			l, err := net.Listen("unix", cfg.EngineSocketPath)
			if err != nil {
				return fmt.Errorf("listen unix %s: %w", cfg.EngineSocketPath, err)
			}
			add(l)
			return nil
		})
	}

	if cfg.EngineTCPPort != "" {
		g.Go(func() error {
			l, err := net.Listen("tcp", ":"+cfg.EngineTCPPort)
			if err != nil {
				return fmt.Errorf("listen tcp :%s: %w", cfg.EngineTCPPort, err)
			}
			add(l)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		closeListeners(listeners)
		return nil, err
	}
	return listeners, nil
}

func closeListeners(listeners []net.Listener) {
	for _, l := range listeners {
		l.Close()
		if addr := l.Addr(); addr.Network() == "unix" {
			os.Remove(addr.String())
		}
	}
}

func (s *Server) startDebug(cfg Config, errs chan<- error) (*http.Server, net.Addr, error) {
	rpcHandler, err := NewJSONRPCHandler(s.handler, cfg.Token)
	if err != nil {
		return nil, nil, err
	}
	RegisterMetrics()

	mux := http.NewServeMux()
	mux.Handle("/rpc", rpcHandler)
	mux.Handle("/metrics", promhttp.Handler())

	l, err := net.Listen("tcp", cfg.DebugAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen debug %s: %w", cfg.DebugAddr, err)
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("debug endpoint", zap.Stringer("addr", l.Addr()))
	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("debug serve", zap.Error(err))
			errs <- err
		}
	}()
	return srv, l.Addr(), nil
}

// Stop closes every listener and connection. Unix socket files are
// removed. Stopping a stopped server is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return nil
	}

	s.cancel()
	err := s.engine.Close()
	closeListeners(s.listeners)
	if s.debug != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = errors.Join(err, s.debug.Shutdown(ctx))
		s.debug = nil
		s.debugAddr = nil
	}

	s.engine = nil
	s.listeners = nil
	s.log.Info("server stopped")
	return err
}

// Addrs returns the engine listener addresses while running.
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]net.Addr, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l.Addr())
	}
	return out
}

// DebugAddr returns the debug listener address, or nil.
func (s *Server) DebugAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugAddr
}

// Errors reports fatal serve errors. It is nil before the first Start.
func (s *Server) Errors() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs
}
