// Package edge adapts the application to isolate-style runtimes: no
// listener and no process-lifetime state, the host invokes Fetch once
// per request and supplies configuration as invocation bindings.
package edge

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/manifold/internal/container"
	"github.com/dmitrymomot/manifold/internal/webapp"
	"github.com/dmitrymomot/manifold/pkg/appenv"
)

// Bridge drives the application from a fetch-shaped entrypoint.
type Bridge struct {
	handler webapp.Handler
	factory container.Factory
	log     *slog.Logger
}

// New builds the edge bridge.
func New(handler webapp.Handler, factory container.Factory, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Bridge{handler: handler, factory: factory, log: log}
}

// Fetch handles one invocation: bindings are validated into config, a
// fresh container is composed, and the request runs through the
// application. It always returns a complete response; composition
// failures become a 500 without leaking binding names or values.
func (b *Bridge) Fetch(ctx context.Context, r *http.Request, bindings map[string]any) *http.Response {
	cfg, err := appenv.Extract(appenv.Map(bindings))
	if err != nil {
		b.log.ErrorContext(ctx, "invalid invocation bindings", slog.Any("error", err))
		return errorResponse(http.StatusInternalServerError)
	}

	c, err := b.factory(ctx, cfg)
	if err != nil {
		b.log.ErrorContext(ctx, "container composition failed", slog.Any("error", err))
		return errorResponse(http.StatusInternalServerError)
	}

	lc := &webapp.LoadContext{Config: cfg, Container: c, Platform: "edge"}
	return b.handler(r.WithContext(ctx), lc)
}

func errorResponse(status int) *http.Response {
	body := []byte(`{"error":"Something went wrong. Please try again."}`)
	h := make(http.Header)
	h.Set("Content-Type", "application/json; charset=utf-8")
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}
