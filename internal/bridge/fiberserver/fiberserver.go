// Package fiberserver hosts the application on Fiber's fasthttp stack.
// Fiber never hands out a *http.Request, so the bridge reconstructs
// one per request (URL from the host header, headers copied entry by
// entry, raw body buffered) and writes the application's response back
// headers-first. Bodies survive the translation byte-for-byte.
package fiberserver

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/dmitrymomot/manifold/internal/container"
	"github.com/dmitrymomot/manifold/internal/webapp"
	"github.com/dmitrymomot/manifold/pkg/appenv"
)

// Server drives the application from a Fiber app.
type Server struct {
	app     *fiber.App
	handler webapp.Handler
	factory container.Factory
	env     appenv.Source
	log     *slog.Logger
}

// New builds the Fiber bridge. Every route dispatches into the same
// application handler; routing happens inside the application, not in
// Fiber.
func New(handler webapp.Handler, factory container.Factory, env appenv.Source, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		handler: handler,
		factory: factory,
		env:     env,
		log:     log,
	}

	app := fiber.New(fiber.Config{
		AppName: "manifold",
	})
	app.Use(recover.New())
	app.All("/*", s.dispatch)

	s.app = app
	return s
}

// App exposes the underlying Fiber app for listening and tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen binds the Fiber server to addr and blocks.
func (s *Server) Listen(addr string) error {
	s.log.Info("fiber server starting", slog.String("address", addr))
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) dispatch(c fiber.Ctx) error {
	req, err := s.rebuildRequest(c)
	if err != nil {
		s.log.ErrorContext(c.Context(), "request reconstruction failed", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong. Please try again.",
		})
	}

	cfg, err := appenv.Extract(s.env)
	if err != nil {
		s.log.ErrorContext(c.Context(), "configuration extraction failed", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong. Please try again.",
		})
	}
	cont, err := s.factory(c.Context(), cfg)
	if err != nil {
		s.log.ErrorContext(c.Context(), "container composition failed", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong. Please try again.",
		})
	}

	lc := &webapp.LoadContext{Config: cfg, Container: cont, Platform: "fiber"}
	resp := s.handler(req, lc)
	defer resp.Body.Close()

	// Headers before body; Set-Cookie entries stay separate.
	for key, values := range resp.Header {
		for _, v := range values {
			c.Response().Header.Add(key, v)
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return c.Status(resp.StatusCode).Send(body)
}

// rebuildRequest turns the fasthttp request into a standard one. The
// body is buffered up front: fasthttp reuses its buffers after the
// handler returns, so the bytes are copied out.
func (s *Server) rebuildRequest(c fiber.Ctx) (*http.Request, error) {
	body := append([]byte(nil), c.Body()...)

	url := c.Protocol() + "://" + c.Hostname() + c.OriginalURL()
	req, err := http.NewRequestWithContext(c.Context(), c.Method(), url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	// Repeated header values stay separate entries in the multimap
	// instead of being joined with ", "; Cookie and Set-Cookie must
	// never be joined, and http.Header handles the rest either way.
	c.Request().Header.VisitAll(func(key, value []byte) {
		req.Header.Add(string(key), string(value))
	})
	req.Host = c.Hostname()
	req.RemoteAddr = c.IP()

	return req, nil
}
