// Package chiserver hosts the application on the standard net/http
// stack: one long-lived process, a real listener, graceful shutdown on
// SIGINT/SIGTERM. Configuration comes from a fixed source read once
// per request; the container is composed fresh every time.
package chiserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/manifold/internal/container"
	"github.com/dmitrymomot/manifold/internal/webapp"
	"github.com/dmitrymomot/manifold/pkg/appenv"
	"github.com/dmitrymomot/manifold/pkg/health"
)

// Server drives the application from a standard HTTP server.
type Server struct {
	handler webapp.Handler
	factory container.Factory
	env     appenv.Source
	log     *slog.Logger

	addr            string
	shutdownTimeout time.Duration
	shutdownHooks   []func(context.Context) error
	healthChecks    health.Checks
	server          *http.Server
	done            chan struct{}
}

// Option configures the server.
type Option func(*Server)

// WithShutdownTimeout bounds graceful shutdown. Default 30s.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// WithShutdownHook registers a hook run during graceful shutdown,
// after the HTTP server stopped accepting requests.
func WithShutdownHook(hook func(context.Context) error) Option {
	return func(s *Server) { s.shutdownHooks = append(s.shutdownHooks, hook) }
}

// WithHealthChecks enables /healthz and /readyz probes. These are a
// server concern and never enter the application.
func WithHealthChecks(checks health.Checks) Option {
	return func(s *Server) { s.healthChecks = checks }
}

// New builds the server bridge listening on addr.
func New(addr string, handler webapp.Handler, factory container.Factory, env appenv.Source, log *slog.Logger, opts ...Option) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		handler:         handler,
		factory:         factory,
		env:             env,
		log:             log,
		addr:            addr,
		shutdownTimeout: 30 * time.Second,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ServeHTTP composes a fresh container and runs the request through
// the application, then copies the returned response onto the wire:
// headers first, then status, then body.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.healthChecks != nil && r.Method == http.MethodGet {
		switch r.URL.Path {
		case "/healthz":
			health.Liveness()(w, r)
			return
		case "/readyz":
			health.Readiness(s.healthChecks, s.log)(w, r)
			return
		}
	}

	cfg, err := appenv.Extract(s.env)
	if err != nil {
		s.fail(w, r, "configuration extraction failed", err)
		return
	}
	c, err := s.factory(r.Context(), cfg)
	if err != nil {
		s.fail(w, r, "container composition failed", err)
		return
	}

	lc := &webapp.LoadContext{Config: cfg, Container: c, Platform: "server"}
	resp := s.handler(r, lc)
	defer resp.Body.Close()

	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.log.ErrorContext(r.Context(), "response write failed", slog.Any("error", err))
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.log.ErrorContext(r.Context(), msg, slog.Any("error", err))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"Something went wrong. Please try again."}`))
}

// Run binds the listener and blocks until shutdown. It handles SIGINT
// and SIGTERM; a bind failure is returned immediately so the caller
// can exit non-zero.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Listen first so bind errors surface before anything else starts.
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-s.done:
	}

	s.log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	// Hooks run concurrently; a slow one must not starve the rest of
	// the shutdown window.
	g, hookCtx := errgroup.WithContext(shutdownCtx)
	for _, hook := range s.shutdownHooks {
		g.Go(func() error {
			if err := hook(hookCtx); err != nil {
				s.log.Error("shutdown hook failed", slog.Any("error", err))
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.log.Info("shutdown completed")
	return nil
}

// Stop triggers graceful shutdown programmatically.
func (s *Server) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
