package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.eggybyte.com/carddesk/core/log"
)

// Service is the interface for services that can be started and stopped.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type server struct {
	name string
	srv  *http.Server
	ln   net.Listener
}

// Runtime manages the lifecycle of services and servers.
type Runtime struct {
	logger          log.Logger
	services        []Service
	servers         []*server
	shutdownTimeout time.Duration
	errCh           chan error
}

// NewRuntime creates a new runtime instance.
func NewRuntime(logger log.Logger, services []Service, shutdownTimeout time.Duration) *Runtime {
	return &Runtime{
		logger:          logger,
		services:        services,
		shutdownTimeout: shutdownTimeout,
		errCh:           make(chan error, 4),
	}
}

// AddServer registers an HTTP server under name. Servers are started in the order added.
func (r *Runtime) AddServer(name string, srv *http.Server) {
	r.servers = append(r.servers, &server{name: name, srv: srv})
}

// Addr returns the bound address of the named server once Start has returned.
func (r *Runtime) Addr(name string) string {
	for _, s := range r.servers {
		if s.name == name && s.ln != nil {
			return s.ln.Addr().String()
		}
	}
	return ""
}

// Errors reports servers that stopped serving unexpectedly.
func (r *Runtime) Errors() <-chan error {
	return r.errCh
}

// Start starts every service concurrently, then binds and serves every server.
// A bind failure releases the listeners already opened.
func (r *Runtime) Start(ctx context.Context) error {
	r.logger.Info("starting runtime")

	var wg sync.WaitGroup
	errs := make([]error, len(r.services))
	for i, svc := range r.services {
		wg.Add(1)
		go func(idx int, svc Service) {
			defer wg.Done()
			if err := svc.Start(ctx); err != nil {
				r.logger.Error(err, "service start failed", log.Int("index", idx))
				errs[idx] = fmt.Errorf("service %d start failed: %w", idx, err)
			}
		}(i, svc)
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return err
	}

	for i, s := range r.servers {
		ln, err := net.Listen("tcp", s.srv.Addr)
		if err != nil {
			for _, prev := range r.servers[:i] {
				_ = prev.ln.Close()
				prev.ln = nil
			}
			return fmt.Errorf("%s server listen on %s: %w", s.name, s.srv.Addr, err)
		}
		s.ln = ln
	}

	for _, s := range r.servers {
		go func(s *server) {
			r.logger.Info("server listening", log.Str("server", s.name), log.Str("addr", s.ln.Addr().String()))
			if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.logger.Error(err, "server failed", log.Str("server", s.name))
				select {
				case r.errCh <- fmt.Errorf("%s server: %w", s.name, err):
				default:
				}
			}
		}(s)
	}

	r.logger.Info("runtime started")
	return nil
}

// Stop drains the servers first and then stops the services, all within the shutdown timeout.
func (r *Runtime) Stop(ctx context.Context) error {
	r.logger.Info("stopping runtime")

	shutdownCtx, cancel := context.WithTimeout(ctx, r.shutdownTimeout)
	defer cancel()

	var errs []error
	for _, s := range r.servers {
		if s.ln == nil {
			continue
		}
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Error(err, "server shutdown failed", log.Str("server", s.name))
			errs = append(errs, fmt.Errorf("%s server shutdown: %w", s.name, err))
		}
	}

	for i, svc := range r.services {
		if err := svc.Stop(shutdownCtx); err != nil {
			r.logger.Error(err, "service stop failed", log.Int("index", i))
			errs = append(errs, fmt.Errorf("service %d stop failed: %w", i, err))
		}
	}

	r.logger.Info("runtime stopped")
	return errors.Join(errs...)
}
